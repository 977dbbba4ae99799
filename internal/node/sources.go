// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/media"
)

// maxBufferedTicks bounds how much audio an IngestSource holds ahead.
const maxBufferedTicks = 8

// IngestSource adapts an Ingest. Missing audio becomes silence, missing
// video repeats the last frame and missing control yields no events.
type IngestSource struct {
	kind   media.Kind
	ingest Ingest

	fifo    []float32
	dropped int
	frame   *media.Frame
	events  []media.Event
	ended   bool
	out     *media.Buffer
}

// NewIngestSource creates a source of kind fed by in.
func NewIngestSource(kind media.Kind, in Ingest) *IngestSource {
	return &IngestSource{kind: kind, ingest: in}
}

func (s *IngestSource) Variant() Variant { return Source }
func (s *IngestSource) Shape() Shape     { return Shape{Outputs: single(s.kind, "out")} }

// Ended reports whether the ingest signalled end of stream.
func (s *IngestSource) Ended() bool { return s.ended }

// Dropped returns the number of audio samples discarded because the
// internal buffer was full.
func (s *IngestSource) Dropped() int { return s.dropped }

// Pull fetches data for the tick, waiting at most clk.Tolerance.
func (s *IngestSource) Pull(ctx context.Context, clk Clock) (bool, error) {
	s.out = nil
	if s.ended {
		return false, nil
	}

	pctx, cancel := context.WithTimeout(ctx, clk.Tolerance)
	defer cancel()

	switch s.kind {
	case media.Audio:
		return s.pullAudio(pctx, ctx, clk)
	case media.Video:
		return s.pullVideo(pctx, ctx, clk)
	default:
		return false, s.pullControl(pctx, ctx, clk)
	}
}

func (s *IngestSource) pullAudio(pctx, ctx context.Context, clk Clock) (bool, error) {
	need := clk.Frames * clk.Channels
	for len(s.fifo) < need {
		buf, err := s.next(pctx, ctx)
		if err != nil {
			return false, err
		}
		if buf == nil {
			break
		}
		if buf.Kind != media.Audio || buf.Channels != clk.Channels {
			return false, fmt.Errorf("%w: ingest produced %s/%dch on a %dch audio source",
				apperr.ErrTypeMismatch, buf.Kind, buf.Channels, clk.Channels)
		}
		s.fifo = append(s.fifo, buf.Samples...)
	}
	if limit := need * maxBufferedTicks; len(s.fifo) > limit {
		s.dropped += len(s.fifo) - limit
		s.fifo = s.fifo[len(s.fifo)-limit:]
	}

	samples := make([]float32, need)
	n := copy(samples, s.fifo)
	s.fifo = s.fifo[n:]
	s.out = media.NewAudio(clk.Time, clk.Channels, samples)
	s.out.Underrun = n < need && !s.ended
	if s.ended && n == 0 {
		s.out = nil
	}
	return s.out != nil && s.out.Underrun, nil
}

func (s *IngestSource) pullVideo(pctx, ctx context.Context, clk Clock) (bool, error) {
	buf, err := s.next(pctx, ctx)
	if err != nil {
		return false, err
	}
	if buf != nil && buf.Frame != nil {
		s.frame = buf.Frame
		s.out = media.NewVideo(clk.Time, buf.Frame)
		return false, nil
	}
	if s.ended {
		return false, nil
	}
	if s.frame != nil {
		s.out = media.NewVideo(clk.Time, s.frame)
	} else {
		s.out = media.Black(clk.Time, clk.Width, clk.Height)
	}
	s.out.Underrun = true
	return true, nil
}

func (s *IngestSource) pullControl(pctx, ctx context.Context, clk Clock) error {
	for {
		buf, err := s.next(pctx, ctx)
		if err != nil {
			return err
		}
		if buf == nil {
			break
		}
		s.events = append(s.events, buf.Events...)
	}
	s.out = media.NewControl(clk.Time, s.events...)
	s.events = nil
	return nil
}

// next returns nil with no error when nothing arrived within tolerance.
func (s *IngestSource) next(pctx, ctx context.Context) (*media.Buffer, error) {
	buf, err := s.ingest.Next(pctx)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.EOF):
		s.ended = true
		return nil, nil
	case errors.Is(err, ErrUnavailable):
		return nil, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("ingest: %w", err)
	}
}

// Process emits what Pull fetched.
func (s *IngestSource) Process(_ Clock, _ []*media.Buffer) ([]*media.Buffer, error) {
	out := s.out
	s.out = nil
	return []*media.Buffer{out}, nil
}

// Close closes the ingest when it is an io.Closer.
func (s *IngestSource) Close() error {
	if c, ok := s.ingest.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// StreamReader is the read side of a stored stream.
type StreamReader interface {
	ReadAt(p []byte, off int64) (int, error)
}

// StreamSource plays back float32 PCM from a stream at tick cadence.
// A live stream that has not caught up yields silence marked as underrun;
// a complete stream ends after its last sample.
type StreamSource struct {
	r   StreamReader
	pos int64

	buf   []byte
	ended bool
	out   *media.Buffer
}

// NewStreamSource plays r from offset.
func NewStreamSource(r StreamReader, offset int64) *StreamSource {
	return &StreamSource{r: r, pos: offset}
}

func (s *StreamSource) Variant() Variant { return Source }
func (s *StreamSource) Shape() Shape     { return Shape{Outputs: single(media.Audio, "out")} }

// Position returns the next byte offset to be played.
func (s *StreamSource) Position() int64 { return s.pos }

// Pull reads one tick of PCM.
func (s *StreamSource) Pull(_ context.Context, clk Clock) (bool, error) {
	s.out = nil
	if s.ended {
		return false, nil
	}
	need := clk.Frames * clk.Channels * media.BytesPerSample
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := s.r.ReadAt(s.buf, s.pos)
	switch {
	case err == nil || n == need:
	case errors.Is(err, io.EOF):
		s.ended = true
		if n == 0 {
			return false, nil
		}
	case errors.Is(err, apperr.ErrOutOfRange):
		s.out = media.Silence(clk.Time, clk.Channels, clk.Frames)
		s.out.Underrun = true
		return true, nil
	default:
		return false, fmt.Errorf("stream playback at %d: %w", s.pos, err)
	}

	n -= n % media.BytesPerSample
	samples, err := media.DecodePCM(s.buf[:n])
	if err != nil {
		return false, err
	}
	s.pos += int64(n)
	padded := make([]float32, clk.Frames*clk.Channels)
	copy(padded, samples)
	s.out = media.NewAudio(clk.Time, clk.Channels, padded)
	return false, nil
}

func (s *StreamSource) Process(_ Clock, _ []*media.Buffer) ([]*media.Buffer, error) {
	out := s.out
	s.out = nil
	return []*media.Buffer{out}, nil
}

// Sine generates a test tone on every channel.
type Sine struct {
	freq      *Param
	amplitude *Param
}

// NewSine creates a tone generator.
func NewSine(freq, amplitude float32) *Sine {
	return &Sine{freq: NewParam(freq), amplitude: NewParam(amplitude)}
}

func (s *Sine) Variant() Variant { return Source }
func (s *Sine) Shape() Shape     { return Shape{Outputs: single(media.Audio, "out")} }

// SetFrequency changes the tone in Hz.
func (s *Sine) SetFrequency(hz float32) { s.freq.Set(hz) }

// Process renders the tone from absolute sample time, so output depends
// only on the tick number.
func (s *Sine) Process(clk Clock, _ []*media.Buffer) ([]*media.Buffer, error) {
	co := float64(s.freq.Get()) * 2 * math.Pi
	amp := s.amplitude.Get()
	base := clk.Tick * uint64(clk.Frames)

	samples := make([]float32, clk.Frames*clk.Channels)
	for i := 0; i < clk.Frames; i++ {
		t := float64(base+uint64(i)) / float64(clk.SampleRate)
		x := amp * float32(math.Sin(co*t))
		for ch := 0; ch < clk.Channels; ch++ {
			samples[i*clk.Channels+ch] = x
		}
	}
	return []*media.Buffer{media.NewAudio(clk.Time, clk.Channels, samples)}, nil
}
