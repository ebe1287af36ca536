package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/urbispulse/internal/domain"
	"github.com/spec-kit/urbispulse/internal/events"
	"github.com/spec-kit/urbispulse/internal/observability"
	"github.com/spec-kit/urbispulse/internal/repository"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

const maxIDAttempts = 5

// SubmissionService runs the five-stage reporting workflow.
type SubmissionService struct {
	drafts     repository.DraftRepository
	complaints repository.ComplaintRepository
	audit      auditTrail
	categories *domain.CategorySet
	classifier Classifier
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// SubmissionDependencies bundles collaborators for the workflow.
type SubmissionDependencies struct {
	DraftRepo     repository.DraftRepository
	ComplaintRepo repository.ComplaintRepository
	HistoryRepo   repository.ComplaintHistoryRepository
	Dispatcher    events.Dispatcher
	Categories    *domain.CategorySet
	Classifier    Classifier
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Clock         func() time.Time
	// IDGenerator overrides complaint id generation.
	IDGenerator func() string
}

// DetailsInput is the stage 2 payload.
type DetailsInput struct {
	Title       string
	Description string
	IsAnonymous bool
}

// LocationInput is the stage 4 payload.
type LocationInput struct {
	Location  string
	Latitude  *float64
	Longitude *float64
}

// CommitResult is delivered once by CommitAsync.
type CommitResult struct {
	Complaint *domain.Complaint
	Err       error
}

// NewSubmissionService constructs the service.
func NewSubmissionService(deps SubmissionDependencies) *SubmissionService {
	logger := loggerOrNop(deps.Logger)
	categories := deps.Categories
	if categories == nil {
		categories = domain.NewCategorySet(domain.DefaultCategories)
	}
	classifier := deps.Classifier
	if classifier == nil {
		classifier = DelayClassifier{}
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = generateComplaintID
	}
	return &SubmissionService{
		drafts:     deps.DraftRepo,
		complaints: deps.ComplaintRepo,
		audit:      auditTrail{history: deps.HistoryRepo, dispatcher: deps.Dispatcher, logger: logger},
		categories: categories,
		classifier: classifier,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clockOrDefault(deps.Clock),
		newID:      newID,
	}
}

// Categories lists the configured category set.
func (s *SubmissionService) Categories() []domain.Category {
	return s.categories.All()
}

// StartDraft opens a new draft at the category stage.
func (s *SubmissionService) StartDraft(ctx context.Context, actor *domain.Viewer) (*domain.Draft, error) {
	if !actor.Authenticated() {
		return nil, apperrors.NewUnauthorized("sign in to report an issue")
	}
	now := s.now()
	draft := &domain.Draft{
		ID:        uuid.NewString(),
		OwnerID:   actor.UserID,
		Stage:     domain.FirstStage,
		State:     domain.DraftEditing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// GetDraft returns a draft owned by actor.
func (s *SubmissionService) GetDraft(ctx context.Context, draftID string, actor *domain.Viewer) (*domain.Draft, error) {
	if !actor.Authenticated() {
		return nil, apperrors.NewUnauthorized("sign in to report an issue")
	}
	draft, err := s.drafts.GetByID(ctx, draftID)
	if err != nil {
		return nil, mapRepoError(err, "draft", draftID)
	}
	if draft.OwnerID != actor.UserID {
		return nil, apperrors.NewNotFound("draft", map[string]any{"id": draftID})
	}
	return draft, nil
}

// SelectCategory records the category and moves on to the details stage.
func (s *SubmissionService) SelectCategory(ctx context.Context, draftID string, actor *domain.Viewer, categoryID string) (*domain.Draft, error) {
	categoryID = strings.TrimSpace(categoryID)
	return s.edit(ctx, draftID, actor, domain.StageCategory, func(d *domain.Draft) error {
		if _, ok := s.categories.Lookup(categoryID); !ok {
			return apperrors.NewValidationError("unknown category", map[string]any{"category": categoryID})
		}
		d.CategoryID = categoryID
		d.Stage = domain.StageDetails
		return nil
	})
}

// UpdateDetails stores title, description and anonymity.
func (s *SubmissionService) UpdateDetails(ctx context.Context, draftID string, actor *domain.Viewer, input DetailsInput) (*domain.Draft, error) {
	return s.edit(ctx, draftID, actor, domain.StageDetails, func(d *domain.Draft) error {
		d.Title = strings.TrimSpace(input.Title)
		d.Description = strings.TrimSpace(input.Description)
		d.IsAnonymous = input.IsAnonymous
		return nil
	})
}

// UpdateLocation stores the free-text location and optional coordinates.
func (s *SubmissionService) UpdateLocation(ctx context.Context, draftID string, actor *domain.Viewer, input LocationInput) (*domain.Draft, error) {
	if input.Latitude != nil && (*input.Latitude < -90 || *input.Latitude > 90) {
		return nil, apperrors.NewValidationError("latitude out of range", map[string]any{"latitude": *input.Latitude})
	}
	if input.Longitude != nil && (*input.Longitude < -180 || *input.Longitude > 180) {
		return nil, apperrors.NewValidationError("longitude out of range", map[string]any{"longitude": *input.Longitude})
	}
	return s.edit(ctx, draftID, actor, domain.StageLocation, func(d *domain.Draft) error {
		d.Location = strings.TrimSpace(input.Location)
		d.Latitude = copyFloat(input.Latitude)
		d.Longitude = copyFloat(input.Longitude)
		return nil
	})
}

// Next moves forward one stage. Leaving the category stage requires a category.
func (s *SubmissionService) Next(ctx context.Context, draftID string, actor *domain.Viewer) (*domain.Draft, error) {
	return s.edit(ctx, draftID, actor, 0, func(d *domain.Draft) error {
		if d.Stage <= domain.StageCategory && d.CategoryID == "" {
			return apperrors.NewValidationError("choose a category first", map[string]any{"stage": d.Stage.String()})
		}
		if d.Stage < domain.LastStage {
			d.Stage++
		}
		return nil
	})
}

// Back moves one stage backward, keeping every field.
func (s *SubmissionService) Back(ctx context.Context, draftID string, actor *domain.Viewer) (*domain.Draft, error) {
	return s.edit(ctx, draftID, actor, 0, func(d *domain.Draft) error {
		if d.Stage > domain.FirstStage {
			d.Stage--
		}
		return nil
	})
}

// Preview assembles the record a commit would create, with fallbacks applied. It has no side effects.
func (s *SubmissionService) Preview(ctx context.Context, draftID string, actor *domain.Viewer) (*domain.Complaint, error) {
	draft, err := s.GetDraft(ctx, draftID, actor)
	if err != nil {
		return nil, err
	}
	complaint := s.assemble(*draft)
	return &complaint, nil
}

// CommitAsync runs Commit in the background and delivers exactly one result.
func (s *SubmissionService) CommitAsync(ctx context.Context, draftID string, actor *domain.Viewer) <-chan CommitResult {
	out := make(chan CommitResult, 1)
	go func() {
		defer close(out)
		complaint, err := s.Commit(ctx, draftID, actor)
		out <- CommitResult{Complaint: complaint, Err: err}
	}()
	return out
}

// Commit finalizes a draft at the review stage and creates exactly one complaint.
// A second commit while one is in flight fails with a conflict; a commit after
// completion returns the record already created. Cancelling ctx before the record
// is written abandons the commit and returns the draft to editing.
func (s *SubmissionService) Commit(ctx context.Context, draftID string, actor *domain.Viewer) (*domain.Complaint, error) {
	if !actor.Authenticated() {
		return nil, apperrors.NewUnauthorized("sign in to report an issue")
	}

	var existingID string
	draft, err := s.drafts.Modify(ctx, draftID, func(d *domain.Draft) error {
		if d.OwnerID != actor.UserID {
			return apperrors.NewNotFound("draft", map[string]any{"id": draftID})
		}
		switch d.State {
		case domain.DraftCommitted:
			existingID = d.ComplaintID
			return nil
		case domain.DraftCommitting:
			return apperrors.NewConflict("draft is already being submitted", map[string]any{"id": draftID})
		}
		if d.Stage != domain.StageReview {
			return apperrors.NewValidationError("draft is not at the review stage", map[string]any{"stage": d.Stage.String()})
		}
		if d.CategoryID == "" {
			return apperrors.NewValidationError("category is required", nil)
		}
		d.State = domain.DraftCommitting
		d.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			s.metrics.RecordSubmission("conflict")
		}
		return nil, mapRepoError(err, "draft", draftID)
	}
	if existingID != "" {
		return s.GetComplaintFor(ctx, existingID)
	}

	if err := s.classifier.Classify(ctx, *draft); err != nil {
		s.release(draftID)
		s.metrics.RecordSubmission("cancelled")
		s.logger.Info("submission abandoned", zap.String("draft_id", draftID), zap.Error(err))
		return nil, fmt.Errorf("submission abandoned: %w", err)
	}

	// From here on the commit runs to completion even if the caller goes away.
	persistCtx := context.WithoutCancel(ctx)
	complaint, err := s.create(persistCtx, *draft)
	if err != nil {
		s.release(draftID)
		s.metrics.RecordSubmission("failed")
		s.logger.Error("create complaint", zap.String("draft_id", draftID), zap.Error(err))
		return nil, err
	}

	if _, err := s.drafts.Modify(persistCtx, draftID, func(d *domain.Draft) error {
		d.State = domain.DraftCommitted
		d.ComplaintID = complaint.ID
		d.UpdatedAt = s.now()
		return nil
	}); err != nil {
		s.logger.Warn("mark draft committed", zap.String("draft_id", draftID), zap.Error(err))
	}

	s.audit.record(persistCtx, actor, complaint.ID, domain.ChangeTypeCreated, nil,
		map[string]any{"status": string(complaint.Status), "severity": string(complaint.Severity)}, complaint.CreatedAt)
	s.audit.publish(persistCtx, events.NewEvent(events.EventComplaintCreated, complaint.ID, events.ActorOf(actor), complaint.CreatedAt,
		events.ComplaintCreatedPayload{
			Title:       complaint.Title,
			Category:    complaint.Category,
			Location:    complaint.Location,
			Severity:    complaint.Severity,
			IsAnonymous: complaint.IsAnonymous,
		}))
	s.metrics.RecordSubmission("created")
	s.logger.Info("complaint submitted",
		zap.String("complaint_id", complaint.ID),
		zap.String("draft_id", draftID),
		zap.String("category", complaint.CategoryID))
	return complaint, nil
}

// GetComplaintFor loads a complaint created by an earlier commit.
func (s *SubmissionService) GetComplaintFor(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, mapRepoError(err, "complaint", complaintID)
	}
	return complaint, nil
}

func (s *SubmissionService) create(ctx context.Context, draft domain.Draft) (*domain.Complaint, error) {
	complaint := s.assemble(draft)
	complaint.CreatedAt = s.now()
	complaint.UpdatedAt = complaint.CreatedAt
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		complaint.ID = s.newID()
		err := s.complaints.Create(ctx, &complaint)
		if err == nil {
			return &complaint, nil
		}
		if !errors.Is(err, repository.ErrDuplicateID) {
			return nil, err
		}
	}
	return nil, apperrors.NewInternalError(errors.New("could not allocate a unique complaint id"))
}

// assemble applies the commit defaults and fallbacks to a draft.
func (s *SubmissionService) assemble(draft domain.Draft) domain.Complaint {
	category := domain.FallbackCategory
	if c, ok := s.categories.Lookup(draft.CategoryID); ok {
		category = c.Name
	}
	title := draft.Title
	if title == "" {
		title = domain.FallbackTitle
	}
	location := draft.Location
	if location == "" {
		location = domain.FallbackLocation
	}
	return domain.Complaint{
		Title:       title,
		Description: draft.Description,
		CategoryID:  draft.CategoryID,
		Category:    category,
		Location:    location,
		Latitude:    copyFloat(draft.Latitude),
		Longitude:   copyFloat(draft.Longitude),
		Status:      domain.StatusSubmitted,
		Severity:    domain.SeverityMedium,
		IsAnonymous: draft.IsAnonymous,
		UpvoteCount: 1,
	}
}

// edit applies fn to an owned draft in the editing state. A zero stage skips the stage gate.
func (s *SubmissionService) edit(ctx context.Context, draftID string, actor *domain.Viewer, stage domain.DraftStage, fn func(*domain.Draft) error) (*domain.Draft, error) {
	if !actor.Authenticated() {
		return nil, apperrors.NewUnauthorized("sign in to report an issue")
	}
	draft, err := s.drafts.Modify(ctx, draftID, func(d *domain.Draft) error {
		if d.OwnerID != actor.UserID {
			return apperrors.NewNotFound("draft", map[string]any{"id": draftID})
		}
		if d.State != domain.DraftEditing {
			return apperrors.NewConflict("draft has already been submitted", map[string]any{"id": draftID, "state": string(d.State)})
		}
		if stage != 0 && d.Stage != stage {
			return apperrors.NewValidationError(
				fmt.Sprintf("this field is edited at the %s stage", stage),
				map[string]any{"stage": d.Stage.String()})
		}
		if err := fn(d); err != nil {
			return err
		}
		d.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err, "draft", draftID)
	}
	return draft, nil
}

// release returns a draft to editing after an abandoned or failed commit.
func (s *SubmissionService) release(draftID string) {
	_, err := s.drafts.Modify(context.Background(), draftID, func(d *domain.Draft) error {
		if d.State == domain.DraftCommitting {
			d.State = domain.DraftEditing
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("release draft", zap.String("draft_id", draftID), zap.Error(err))
	}
}

func generateComplaintID() string {
	return "CT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
