// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package media

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// BytesPerSample is the size of one encoded PCM sample.
const BytesPerSample = 4

// EncodeBuffer appends the persisted form of b to dst.
//
// Audio is little-endian float32 interleaved PCM, video is the raw RGBA
// frame and control is one JSON object per event, newline terminated.
func EncodeBuffer(dst []byte, b *Buffer) ([]byte, error) {
	switch b.Kind {
	case Audio:
		return AppendPCM(dst, b.Samples), nil
	case Video:
		if b.Frame == nil {
			return dst, nil
		}
		return append(dst, b.Frame.Pix...), nil
	case Control:
		for _, ev := range b.Events {
			line, err := json.Marshal(ev)
			if err != nil {
				return dst, fmt.Errorf("encode event %q: %w", ev.Name, err)
			}
			dst = append(dst, line...)
			dst = append(dst, '\n')
		}
		return dst, nil
	default:
		return dst, fmt.Errorf("encode: unknown media kind %s", b.Kind)
	}
}

// AppendPCM appends samples as little-endian float32.
func AppendPCM(dst []byte, samples []float32) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s))
	}
	return dst
}

// DecodePCM decodes little-endian float32 samples. A trailing partial
// sample is an error.
func DecodePCM(src []byte) ([]float32, error) {
	if len(src)%BytesPerSample != 0 {
		return nil, fmt.Errorf("decode pcm: %d bytes is not a whole number of samples", len(src))
	}
	out := make([]float32, len(src)/BytesPerSample)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*BytesPerSample:]))
	}
	return out, nil
}
