package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/supportdesk/triage-service/internal/config"
	"github.com/supportdesk/triage-service/internal/events"
)

// NotificationService handles emitting notifications for pipeline events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events. wrap, when set, decorates every
// handler before it is subscribed.
func (n *NotificationService) RegisterHandlers(wrap func(events.EventHandler) events.EventHandler) {
	if n.dispatcher == nil {
		return
	}
	if wrap == nil {
		wrap = func(h events.EventHandler) events.EventHandler { return h }
	}
	n.dispatcher.Subscribe(events.EventTicketEscalated, wrap(n.handleTicketEscalated))
	n.dispatcher.Subscribe(events.EventTicketRejected, wrap(n.handleTicketRejected))
	n.dispatcher.Subscribe(events.EventFeedbackUpdated, wrap(n.handleFeedbackUpdated))
}

// Escalations page the support team by email and webhook.
func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	fields := []zap.Field{zap.String("ticket_id", event.TicketID)}
	if p, ok := event.Payload.(events.TicketDecidedPayload); ok {
		fields = append(fields,
			zap.String("intent", p.Category+"/"+p.Intent),
			zap.String("priority", string(p.Priority)),
			zap.Float64("confidence", p.Confidence),
		)
	}
	n.logger.Info("TicketEscalated", fields...)
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketRejected(ctx context.Context, event events.Event) error {
	if p, ok := event.Payload.(events.TicketRejectedPayload); ok {
		n.logger.Info("TicketRejected", zap.String("ticket_id", event.TicketID), zap.String("reason", string(p.Reason)))
	}
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleFeedbackUpdated(ctx context.Context, event events.Event) error {
	n.logger.Info("FeedbackUpdated", zap.String("ticket_id", event.TicketID), zap.String("operator", event.Actor.ID))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
