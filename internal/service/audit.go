package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/urbispulse/internal/domain"
	"github.com/spec-kit/urbispulse/internal/events"
	"github.com/spec-kit/urbispulse/internal/repository"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

// auditTrail records history entries and publishes events after a committed mutation.
// Failures here are logged; the mutation has already happened.
type auditTrail struct {
	history    repository.ComplaintHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (a auditTrail) record(ctx context.Context, actor *domain.Viewer, complaintID string, changeType domain.ComplaintChangeType, oldValue, newValue map[string]any, at time.Time) {
	if a.history == nil {
		return
	}
	entry := &domain.ComplaintHistory{
		ComplaintID: complaintID,
		ActorRole:   actor.RoleOrAnonymous(),
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
		CreatedAt:   at,
	}
	if actor.Authenticated() {
		id := actor.UserID
		entry.ActorID = &id
	}
	if err := a.history.Create(ctx, entry); err != nil {
		a.logger.Error("record complaint history",
			zap.String("complaint_id", complaintID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}

func (a auditTrail) publish(ctx context.Context, event events.Event) {
	if a.dispatcher == nil {
		return
	}
	if err := a.dispatcher.Publish(ctx, event); err != nil {
		a.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("complaint_id", event.ComplaintID),
			zap.Error(err))
	}
}

// mapRepoError turns store sentinels into domain errors.
func mapRepoError(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicateID):
		return apperrors.NewConflict(resource+" already exists", map[string]any{"id": id})
	}
	return err
}

func clockOrDefault(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
