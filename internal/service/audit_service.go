package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/lqviet45/light-novel-BE/internal/events"
)

// EventPublisher forwards audit events to an external sink.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// AuditService records session lifecycle events.
type AuditService struct {
	dispatcher events.Dispatcher
	publisher  EventPublisher
	logger     *zap.Logger
}

// NewAuditService creates the service. publisher may be nil.
func NewAuditService(dispatcher events.Dispatcher, publisher EventPublisher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to every auth event.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllTypes {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
}

func (a *AuditService) handle(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("subject", event.Subject),
	}
	if event.UserID != 0 {
		fields = append(fields, zap.Int64("user_id", event.UserID))
	}
	for k, v := range event.Attrs {
		fields = append(fields, zap.String(k, v))
	}
	a.logger.Info("auth event", fields...)

	if a.publisher == nil {
		return nil
	}
	return a.publisher.Publish(ctx, event)
}
