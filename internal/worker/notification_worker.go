package worker

import (
	"context"

	"github.com/spec-kit/urbispulse/internal/service"
)

// StartNotificationWorker registers notification handlers and starts delivery.
// Delivery stops once ctx is cancelled and the queue has drained; the returned
// channel is closed at that point.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService) <-chan struct{} {
	done := make(chan struct{})
	if notificationService == nil {
		close(done)
		return done
	}
	notificationService.RegisterHandlers()
	go func() {
		defer close(done)
		notificationService.Run(ctx)
	}()
	return done
}
