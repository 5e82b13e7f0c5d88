// Package worker runs background delivery of lifecycle events.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/events"
)

// ErrRelayFull is returned when the relay buffer cannot take another event.
var ErrRelayFull = errors.New("event relay buffer full")

// Appender writes one event to durable storage.
type Appender interface {
	Append(ctx context.Context, event events.Event) (string, error)
}

// StreamRelay buffers events in memory and appends them to a Redis stream
// off the request path.
type StreamRelay struct {
	appender Appender
	queue    chan events.Event
	logger   *zap.Logger
	timeout  time.Duration
}

// NewStreamRelay builds a relay with the given buffer size.
func NewStreamRelay(appender Appender, buffer int, logger *zap.Logger) *StreamRelay {
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamRelay{
		appender: appender,
		queue:    make(chan events.Event, buffer),
		logger:   logger,
		timeout:  3 * time.Second,
	}
}

// Enqueue hands an event to the relay without blocking.
func (r *StreamRelay) Enqueue(_ context.Context, event events.Event) error {
	select {
	case r.queue <- event:
		return nil
	default:
		r.logger.Warn("dropping event, relay buffer full", zap.String("event_id", event.ID))
		return ErrRelayFull
	}
}

// Run appends events until ctx is cancelled, then drains what is buffered.
func (r *StreamRelay) Run(ctx context.Context) error {
	for {
		select {
		case event := <-r.queue:
			r.append(event)
		case <-ctx.Done():
			r.drain()
			return nil
		}
	}
}

func (r *StreamRelay) drain() {
	for {
		select {
		case event := <-r.queue:
			r.append(event)
		default:
			return
		}
	}
}

func (r *StreamRelay) append(event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	id, err := r.appender.Append(ctx, event)
	if err != nil {
		r.logger.Error("append event to stream", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	r.logger.Debug("event appended", zap.String("event_id", event.ID), zap.String("stream_id", id))
}
