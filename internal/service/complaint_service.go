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

// ComplaintService drives the complaint lifecycle.
type ComplaintService struct {
	complaints repository.ComplaintRepository
	audit      auditTrail
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	HistoryRepo   repository.ComplaintHistoryRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Clock         func() time.Time
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	logger := loggerOrNop(deps.Logger)
	return &ComplaintService{
		complaints: deps.ComplaintRepo,
		audit:      auditTrail{history: deps.HistoryRepo, dispatcher: deps.Dispatcher, logger: logger},
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clockOrDefault(deps.Clock),
	}
}

// GetComplaint returns the stored record regardless of viewer.
func (s *ComplaintService) GetComplaint(ctx context.Context, id string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "complaint", id)
	}
	return complaint, nil
}

// GetForViewer returns the record if viewer may see it. Out-of-scope records read as missing.
func (s *ComplaintService) GetForViewer(ctx context.Context, id string, viewer *domain.Viewer) (*domain.Complaint, error) {
	complaint, err := s.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanView(viewer, *complaint) {
		return nil, apperrors.NewNotFound("complaint", map[string]any{"id": id})
	}
	return complaint, nil
}

// History lists the audit trail of a complaint visible to viewer, oldest first.
func (s *ComplaintService) History(ctx context.Context, id string, viewer *domain.Viewer) ([]domain.ComplaintHistory, error) {
	if _, err := s.GetForViewer(ctx, id, viewer); err != nil {
		return nil, err
	}
	if s.audit.history == nil {
		return []domain.ComplaintHistory{}, nil
	}
	return s.audit.history.ListByComplaint(ctx, id)
}

// TransitionStatus moves a complaint to target. Admins may jump to any later status;
// Ward Members may only take the next step.
func (s *ComplaintService) TransitionStatus(ctx context.Context, id string, target domain.ComplaintStatus, actor *domain.Viewer) (*domain.Complaint, error) {
	path := auth.PathAdvance
	if actor.Authenticated() && actor.Role == domain.RoleAdmin {
		path = auth.PathSet
	}
	return s.transition(ctx, id, actor, path, func(domain.Complaint) domain.ComplaintStatus { return target })
}

// Advance moves a complaint exactly one step forward.
func (s *ComplaintService) Advance(ctx context.Context, id string, actor *domain.Viewer) (*domain.Complaint, error) {
	return s.transition(ctx, id, actor, auth.PathAdvance, func(current domain.Complaint) domain.ComplaintStatus {
		return current.Status.Next()
	})
}

// FastTrack moves an Under Review complaint to In Progress and raises severity to High in one write.
func (s *ComplaintService) FastTrack(ctx context.Context, id string, actor *domain.Viewer) (*domain.Complaint, error) {
	return s.transition(ctx, id, actor, auth.PathFastTrack, func(domain.Complaint) domain.ComplaintStatus {
		return domain.StatusInProgress
	})
}

func (s *ComplaintService) transition(ctx context.Context, id string, actor *domain.Viewer, path auth.TransitionPath, targetOf func(domain.Complaint) domain.ComplaintStatus) (*domain.Complaint, error) {
	var (
		before  domain.Complaint
		applied bool
	)
	updated, err := s.complaints.Modify(ctx, id, func(current domain.Complaint) (domain.ComplaintChange, error) {
		target := targetOf(current)
		if err := auth.CanTransition(actor, current, target, path); err != nil {
			return domain.ComplaintChange{}, err
		}
		if current.Status.IsTerminal() {
			return domain.ComplaintChange{}, nil
		}
		before = current
		applied = true
		change := domain.ComplaintChange{Status: &target}
		if path == auth.PathFastTrack {
			high := domain.SeverityHigh
			change.Severity = &high
		}
		return change, nil
	})
	if err != nil {
		err = mapRepoError(err, "complaint", id)
		s.logger.Warn("complaint transition rejected",
			zap.String("complaint_id", id),
			zap.String("path", string(path)),
			zap.String("actor_role", actor.RoleOrAnonymous()),
			zap.Error(err))
		return nil, err
	}
	if !applied {
		return updated, nil
	}

	at := s.now()
	s.audit.record(ctx, actor, id, domain.ChangeTypeStatus,
		map[string]any{"status": string(before.Status)},
		map[string]any{"status": string(updated.Status), "path": string(path)}, at)
	s.audit.publish(ctx, events.NewEvent(events.EventComplaintStatusChanged, id, events.ActorOf(actor), at,
		events.ComplaintStatusChangedPayload{OldStatus: before.Status, NewStatus: updated.Status, Path: string(path)}))
	if before.Severity != updated.Severity {
		s.recordSeverityChange(ctx, actor, id, before.Severity, updated.Severity, at)
	}
	s.metrics.RecordTransition(string(path), string(updated.Status))

	s.logger.Info("complaint status changed",
		zap.String("complaint_id", id),
		zap.String("from", string(before.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("path", string(path)),
		zap.String("actor_role", actor.RoleOrAnonymous()))
	return updated, nil
}

// SetSeverity changes triage priority. It follows the same role and ward scoping as transitions.
func (s *ComplaintService) SetSeverity(ctx context.Context, id string, severity domain.Severity, actor *domain.Viewer) (*domain.Complaint, error) {
	if !severity.Valid() {
		return nil, apperrors.NewValidationError("unknown severity", map[string]any{"severity": string(severity)})
	}
	var old domain.Severity
	updated, err := s.complaints.Modify(ctx, id, func(current domain.Complaint) (domain.ComplaintChange, error) {
		if err := auth.CanMutate(actor, current); err != nil {
			return domain.ComplaintChange{}, err
		}
		old = current.Severity
		if current.Severity == severity {
			return domain.ComplaintChange{}, nil
		}
		return domain.ComplaintChange{Severity: &severity}, nil
	})
	if err != nil {
		return nil, mapRepoError(err, "complaint", id)
	}
	if old != updated.Severity {
		s.recordSeverityChange(ctx, actor, id, old, updated.Severity, s.now())
		s.logger.Info("complaint severity changed",
			zap.String("complaint_id", id),
			zap.String("from", string(old)),
			zap.String("to", string(updated.Severity)))
	}
	return updated, nil
}

func (s *ComplaintService) recordSeverityChange(ctx context.Context, actor *domain.Viewer, id string, from, to domain.Severity, at time.Time) {
	s.audit.record(ctx, actor, id, domain.ChangeTypeSeverity,
		map[string]any{"severity": string(from)},
		map[string]any{"severity": string(to)}, at)
	s.audit.publish(ctx, events.NewEvent(events.EventComplaintSeverityChanged, id, events.ActorOf(actor), at,
		events.ComplaintSeverityChangedPayload{OldSeverity: from, NewSeverity: to}))
}
