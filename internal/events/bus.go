// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/mixgraph/internal/config"
	"github.com/tomtom215/mixgraph/internal/logging"
	"github.com/tomtom215/mixgraph/internal/metrics"
)

// ErrSubscribeUnsupported is returned by Subscribe on the NATS backend.
var ErrSubscribeUnsupported = errors.New("subscribe is only supported on the in-process bus")

// Bus publishes events to Watermill.
type Bus struct {
	prefix  string
	pub     message.Publisher
	local   *gochannel.GoChannel
	breaker *gobreaker.CircuitBreaker[struct{}]
	buf     chan *Event
	log     zerolog.Logger

	dropped   atomic.Uint64
	published atomic.Uint64

	closeOnce sync.Once
}

// NewBus creates the bus selected by cfg.
func NewBus(cfg config.EventsConfig) (*Bus, error) {
	b := &Bus{
		prefix: cfg.TopicPrefix,
		buf:    make(chan *Event, max(cfg.BufferSize, 1)),
		log:    logging.WithComponent("events"),
	}
	if b.prefix == "" {
		b.prefix = "mixgraph"
	}
	logger := logging.NewWatermillLogger()

	if cfg.NATSURL != "" {
		pub, err := newNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			return nil, err
		}
		b.pub = pub
	} else {
		b.local = gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: int64(max(cfg.BufferSize, 1)),
		}, logger)
		b.pub = b.local
	}

	b.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "event-bus",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Event bus circuit breaker state changed")
		},
	})
	return b, nil
}

func newNATSPublisher(url string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		// status events are ephemeral
		JetStream: wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill NATS publisher: %w", err)
	}
	return pub, nil
}

// Publish queues e for dispatch. It never blocks; a full buffer drops e.
func (b *Bus) Publish(e *Event) {
	select {
	case b.buf <- e:
	default:
		b.dropped.Add(1)
		metrics.EventsDropped.Inc()
	}
}

// Dropped returns the number of events that were not published.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Published returns the number of events handed to the backend.
func (b *Bus) Published() uint64 { return b.published.Load() }

// Run dispatches queued events until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-b.buf:
			b.dispatch(e)
		}
	}
}

func (b *Bus) dispatch(e *Event) {
	data, err := json.Marshal(e)
	if err != nil {
		b.log.Error().Err(err).Str("type", string(e.Type)).Msg("Failed to encode event")
		return
	}
	msg := message.NewMessage(e.ID, data)
	msg.Metadata.Set("type", string(e.Type))

	_, err = b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.pub.Publish(Topic(b.prefix, e.Type), msg)
	})
	if err != nil {
		b.dropped.Add(1)
		metrics.EventsDropped.Inc()
		if !errors.Is(err, gobreaker.ErrOpenState) {
			b.log.Warn().Err(err).Str("type", string(e.Type)).Msg("Event publish failed")
		}
		return
	}
	b.published.Add(1)
	metrics.EventsPublished.WithLabelValues(string(e.Type)).Inc()
}

// Subscribe returns messages of type t published on the in-process bus.
// Receivers must Ack every message.
func (b *Bus) Subscribe(ctx context.Context, t Type) (<-chan *message.Message, error) {
	if b.local == nil {
		return nil, ErrSubscribeUnsupported
	}
	return b.local.Subscribe(ctx, Topic(b.prefix, t))
}

// Close closes the backend. Queued events are discarded.
func (b *Bus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if cerr := b.pub.Close(); cerr != nil {
			err = fmt.Errorf("close event publisher: %w", cerr)
		}
	})
	return err
}

// Decode parses a message payload published by the bus.
func Decode(msg *message.Message) (*Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}
