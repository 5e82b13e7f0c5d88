package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamWriter appends events to a capped Redis stream for out-of-process consumers.
type StreamWriter struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewStreamWriter builds a writer; it fails without a client or stream name.
func NewStreamWriter(client redis.Cmdable, stream string, maxLen int64) (*StreamWriter, error) {
	if client == nil {
		return nil, errors.New("stream writer requires a redis client")
	}
	stream = strings.TrimSpace(stream)
	if stream == "" {
		return nil, errors.New("stream name required")
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &StreamWriter{client: client, stream: stream, maxLen: maxLen}, nil
}

// Append writes the event and returns the stream entry id.
func (w *StreamWriter) Append(ctx context.Context, event Event) (string, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return "", err
	}
	return w.client.XAdd(ctx, &redis.XAddArgs{
		Stream: w.stream,
		MaxLen: w.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":   event.ID,
			"type":       string(event.Type),
			"listing_id": event.ListingID,
			"request_id": event.RequestID,
			"actor_id":   event.Actor.UserID,
			"timestamp":  event.Timestamp.UTC().Format(time.RFC3339Nano),
			"payload":    string(payload),
		},
	}).Result()
}
