package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/urbispulse/internal/auth"
	"github.com/spec-kit/urbispulse/internal/domain"
	"github.com/spec-kit/urbispulse/internal/events"
	"github.com/spec-kit/urbispulse/internal/observability"
	"github.com/spec-kit/urbispulse/internal/repository"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

// UpvoteState is the result of a toggle as seen by the toggling viewer.
type UpvoteState struct {
	Upvoted        bool
	EffectiveCount int
}

// EngagementService owns the per-viewer upvote ledger.
type EngagementService struct {
	complaints repository.ComplaintRepository
	upvotes    repository.UpvoteRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// EngagementDependencies bundles collaborators for the ledger.
type EngagementDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	UpvoteRepo    repository.UpvoteRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Clock         func() time.Time
}

// NewEngagementService constructs the service.
func NewEngagementService(deps EngagementDependencies) *EngagementService {
	return &EngagementService{
		complaints: deps.ComplaintRepo,
		upvotes:    deps.UpvoteRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Clock),
	}
}

// ToggleUpvote flips viewer's mark on a complaint. The stored base count is never written.
func (s *EngagementService) ToggleUpvote(ctx context.Context, viewer *domain.Viewer, complaintID string) (UpvoteState, error) {
	if !viewer.Authenticated() {
		return UpvoteState{}, apperrors.NewUnauthorized("sign in to upvote")
	}
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return UpvoteState{}, mapRepoError(err, "complaint", complaintID)
	}
	if !auth.CanView(viewer, *complaint) {
		return UpvoteState{}, apperrors.NewForbidden("complaint is outside your ward")
	}

	marked, err := s.upvotes.Toggle(ctx, viewer.UserID, complaintID)
	if err != nil {
		s.logger.Error("toggle upvote", zap.String("complaint_id", complaintID), zap.Error(err))
		return UpvoteState{}, err
	}
	state := UpvoteState{Upvoted: marked, EffectiveCount: effectiveCount(complaint.UpvoteCount, marked)}

	s.metrics.RecordUpvote(marked)
	if s.dispatcher != nil {
		event := events.NewEvent(events.EventUpvoteToggled, complaintID, events.ActorOf(viewer), s.now(),
			events.UpvoteToggledPayload{Upvoted: state.Upvoted, EffectiveCount: state.EffectiveCount})
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handler failed", zap.String("complaint_id", complaintID), zap.Error(err))
		}
	}
	return state, nil
}
