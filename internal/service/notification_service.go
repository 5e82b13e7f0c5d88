package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/events"
)

// EventSink receives lifecycle events for out-of-process delivery.
type EventSink interface {
	Enqueue(ctx context.Context, event events.Event) error
}

// EventCounter records delivered events.
type EventCounter interface {
	RecordEvent(eventType string)
}

// NotificationService reacts to lifecycle events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.EventsConfig
	sink       EventSink
	counter    EventCounter
}

// NotificationDependencies bundles requirements for the notification service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.EventsConfig
	Sink       EventSink
	Counter    EventCounter
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		logger:     logger,
		cfg:        deps.Config,
		sink:       deps.Sink,
		counter:    deps.Counter,
	}
}

// RegisterHandlers subscribes to every lifecycle event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info("lifecycle event",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.String("listing_id", event.ListingID),
		zap.String("request_id", event.RequestID),
		zap.String("actor_id", event.Actor.UserID),
		zap.Any("payload", event.Payload))
	if n.counter != nil {
		n.counter.RecordEvent(string(event.Type))
	}
	n.sendWebhookNotificationStub(event)
	if n.sink == nil {
		return nil
	}
	return n.sink.Enqueue(ctx, event)
}

func (n *NotificationService) sendWebhookNotificationStub(event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}
