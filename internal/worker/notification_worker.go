// Package worker moves notification delivery off the request path.
package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/supportdesk/triage-service/internal/events"
	"github.com/supportdesk/triage-service/internal/service"
)

type job struct {
	handler events.EventHandler
	event   events.Event
}

// NotificationWorker runs notification handlers on a single background
// goroutine. When the queue is full new events are dropped with a warning.
type NotificationWorker struct {
	queue  chan job
	logger *zap.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewNotificationWorker(queueSize int, logger *zap.Logger) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &NotificationWorker{queue: make(chan job, queueSize), logger: logger}
}

// StartNotificationWorker subscribes the notification handlers through the
// worker queue and starts draining it.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, w *NotificationWorker) {
	if notificationService == nil || w == nil {
		return
	}
	notificationService.RegisterHandlers(w.Enqueue)
	w.Start(ctx)
}

// Enqueue wraps h so that publishing only schedules it.
func (w *NotificationWorker) Enqueue(h events.EventHandler) events.EventHandler {
	return func(_ context.Context, e events.Event) error {
		w.mu.RLock()
		defer w.mu.RUnlock()

		if w.closed {
			w.logger.Warn("notification worker stopped; dropping event",
				zap.String("event_type", string(e.Type)),
				zap.String("ticket_id", e.TicketID),
			)
			return nil
		}
		select {
		case w.queue <- job{handler: h, event: e}:
		default:
			w.logger.Warn("notification queue full; dropping event",
				zap.String("event_type", string(e.Type)),
				zap.String("ticket_id", e.TicketID),
			)
		}
		return nil
	}
}

// Start drains the queue until Stop is called. Handlers run with ctx.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for j := range w.queue {
			if err := j.handler(ctx, j.event); err != nil {
				w.logger.Warn("notification handler failed",
					zap.String("event_type", string(j.event.Type)),
					zap.Error(err),
				)
			}
		}
	}()
}

// Stop closes the queue and waits for queued events to be handled. Events
// enqueued after Stop are dropped.
func (w *NotificationWorker) Stop() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
