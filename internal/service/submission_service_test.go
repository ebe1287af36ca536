package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/urbispulse/internal/domain"
	"github.com/spec-kit/urbispulse/internal/events"
	"github.com/spec-kit/urbispulse/internal/observability"
	"github.com/spec-kit/urbispulse/internal/repository"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

// gateClassifier blocks each Classify call until released or cancelled.
type gateClassifier struct {
	entered chan struct{}
	release chan struct{}
}

func newGateClassifier() *gateClassifier {
	return &gateClassifier{entered: make(chan struct{}, 4), release: make(chan struct{})}
}

func (g *gateClassifier) Classify(ctx context.Context, _ domain.Draft) error {
	g.entered <- struct{}{}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.release:
		return nil
	}
}

type submissionFixture struct {
	complaints repository.ComplaintRepository
	drafts     repository.DraftRepository
	history    repository.ComplaintHistoryRepository
	dispatcher *recordingDispatcher
	service    *SubmissionService
}

func newSubmissionFixture(t *testing.T, classifier Classifier, idGen func() string) *submissionFixture {
	t.Helper()
	f := &submissionFixture{
		complaints: repository.NewMemoryComplaintRepository(),
		drafts:     repository.NewMemoryDraftRepository(),
		history:    repository.NewMemoryComplaintHistoryRepository(),
		dispatcher: newRecordingDispatcher(),
	}
	f.service = NewSubmissionService(SubmissionDependencies{
		DraftRepo:     f.drafts,
		ComplaintRepo: f.complaints,
		HistoryRepo:   f.history,
		Dispatcher:    f.dispatcher,
		Categories:    domain.NewCategorySet(domain.DefaultCategories),
		Classifier:    classifier,
		Metrics:       observability.NewMetrics(),
		Clock:         fixedClock,
		IDGenerator:   idGen,
	})
	return f
}

// draftAtReview walks a draft through every stage with the given fields.
func draftAtReview(t *testing.T, svc *SubmissionService, actor *domain.Viewer, category, title, description, location string) *domain.Draft {
	t.Helper()
	ctx := context.Background()
	draft, err := svc.StartDraft(ctx, actor)
	require.NoError(t, err)

	draft, err = svc.SelectCategory(ctx, draft.ID, actor, category)
	require.NoError(t, err)
	require.Equal(t, domain.StageDetails, draft.Stage)

	_, err = svc.UpdateDetails(ctx, draft.ID, actor, DetailsInput{Title: title, Description: description})
	require.NoError(t, err)
	_, err = svc.Next(ctx, draft.ID, actor)
	require.NoError(t, err)
	_, err = svc.Next(ctx, draft.ID, actor)
	require.NoError(t, err)
	_, err = svc.UpdateLocation(ctx, draft.ID, actor, LocationInput{Location: location})
	require.NoError(t, err)
	draft, err = svc.Next(ctx, draft.ID, actor)
	require.NoError(t, err)
	require.Equal(t, domain.StageReview, draft.Stage)
	return draft
}

var complaintIDPattern = regexp.MustCompile(`^CT-[0-9A-F]{8}$`)

func TestCommitCreatesExactlyOneRecord(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, DelayClassifier{}, nil)
	draft := draftAtReview(t, f.service, citizenViewer, "roads", "Pothole", "Deep pothole near the bus stop", "Main St")

	complaint, err := f.service.Commit(ctx, draft.ID, citizenViewer)
	require.NoError(t, err)

	assert.Regexp(t, complaintIDPattern, complaint.ID)
	assert.Equal(t, "Pothole", complaint.Title)
	assert.Equal(t, "roads", complaint.CategoryID)
	assert.Equal(t, "Roads & Traffic", complaint.Category)
	assert.Equal(t, "Main St", complaint.Location)
	assert.Equal(t, domain.StatusSubmitted, complaint.Status)
	assert.Equal(t, domain.SeverityMedium, complaint.Severity)
	assert.Equal(t, 1, complaint.UpvoteCount)
	assert.Equal(t, fixedNow, complaint.CreatedAt)

	all, err := f.complaints.List(ctx, repository.ComplaintFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	history, err := f.history.ListByComplaint(ctx, complaint.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ChangeTypeCreated, history[0].ChangeType)
	assert.Equal(t, []events.EventType{events.EventComplaintCreated}, f.dispatcher.types())

	again, err := f.service.Commit(ctx, draft.ID, citizenViewer)
	require.NoError(t, err)
	assert.Equal(t, complaint.ID, again.ID, "a repeated commit returns the created record")

	all, err = f.complaints.List(ctx, repository.ComplaintFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	stored, err := f.service.GetDraft(ctx, draft.ID, citizenViewer)
	require.NoError(t, err)
	assert.Equal(t, domain.DraftCommitted, stored.State)
	assert.Equal(t, complaint.ID, stored.ComplaintID)
}

func TestConcurrentCommitProducesAtMostOneRecord(t *testing.T) {
	ctx := context.Background()
	gate := newGateClassifier()
	f := newSubmissionFixture(t, gate, nil)
	draft := draftAtReview(t, f.service, citizenViewer, "roads", "Pothole", "", "Main St")

	first := f.service.CommitAsync(ctx, draft.ID, citizenViewer)
	<-gate.entered

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Commit(ctx, draft.ID, citizenViewer)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "unexpected error %v", err)
	}

	close(gate.release)
	result := <-first
	require.NoError(t, result.Err)
	require.NotNil(t, result.Complaint)

	all, err := f.complaints.List(ctx, repository.ComplaintFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCancelledCommitHasNoSideEffects(t *testing.T) {
	gate := newGateClassifier()
	f := newSubmissionFixture(t, gate, nil)
	draft := draftAtReview(t, f.service, citizenViewer, "water", "Leak", "", "Ward 4")

	ctx, cancel := context.WithCancel(context.Background())
	result := f.service.CommitAsync(ctx, draft.ID, citizenViewer)
	<-gate.entered
	cancel()

	res := <-result
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Nil(t, res.Complaint)

	all, err := f.complaints.List(context.Background(), repository.ComplaintFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, f.dispatcher.types())

	stored, err := f.service.GetDraft(context.Background(), draft.ID, citizenViewer)
	require.NoError(t, err)
	assert.Equal(t, domain.DraftEditing, stored.State)
	assert.Equal(t, "Leak", stored.Title)

	close(gate.release)
	complaint, err := f.service.Commit(context.Background(), draft.ID, citizenViewer)
	require.NoError(t, err)
	assert.Equal(t, "Leak", complaint.Title)
}

func TestCommitAppliesFallbacks(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, DelayClassifier{}, nil)
	draft := draftAtReview(t, f.service, citizenViewer, "waste", "  ", "", "")

	preview, err := f.service.Preview(ctx, draft.ID, citizenViewer)
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackTitle, preview.Title)
	assert.Equal(t, domain.FallbackLocation, preview.Location)
	assert.Empty(t, preview.ID)

	complaint, err := f.service.Commit(ctx, draft.ID, citizenViewer)
	require.NoError(t, err)
	assert.Equal(t, "Street Issue", complaint.Title)
	assert.Equal(t, "", complaint.Description)
	assert.Equal(t, "Detected Ward", complaint.Location)
	assert.Equal(t, "Waste Management", complaint.Category)
}

func TestStageGates(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, DelayClassifier{}, nil)
	svc := f.service

	draft, err := svc.StartDraft(ctx, citizenViewer)
	require.NoError(t, err)
	assert.Equal(t, domain.StageCategory, draft.Stage)

	_, err = svc.Next(ctx, draft.ID, citizenViewer)
	assert.True(t, apperrors.IsValidationFailed(err), "leaving stage 1 requires a category")

	_, err = svc.SelectCategory(ctx, draft.ID, citizenViewer, "parking")
	assert.True(t, apperrors.IsValidationFailed(err))

	_, err = svc.UpdateDetails(ctx, draft.ID, citizenViewer, DetailsInput{Title: "Too early"})
	assert.True(t, apperrors.IsValidationFailed(err))

	_, err = svc.Commit(ctx, draft.ID, citizenViewer)
	assert.True(t, apperrors.IsValidationFailed(err), "commit only happens at review")

	draft, err = svc.SelectCategory(ctx, draft.ID, citizenViewer, "safety")
	require.NoError(t, err)
	assert.Equal(t, domain.StageDetails, draft.Stage)

	_, err = svc.SelectCategory(ctx, draft.ID, citizenViewer, "roads")
	assert.True(t, apperrors.IsValidationFailed(err), "category is chosen at stage 1 only")

	_, err = svc.UpdateLocation(ctx, draft.ID, citizenViewer, LocationInput{Location: "Ward 4"})
	assert.True(t, apperrors.IsValidationFailed(err))

	for i := 0; i < 10; i++ {
		draft, err = svc.Next(ctx, draft.ID, citizenViewer)
		require.NoError(t, err)
	}
	assert.Equal(t, domain.LastStage, draft.Stage)

	for i := 0; i < 10; i++ {
		draft, err = svc.Back(ctx, draft.ID, citizenViewer)
		require.NoError(t, err)
	}
	assert.Equal(t, domain.FirstStage, draft.Stage)
	assert.Equal(t, "safety", draft.CategoryID)
}

func TestBackNavigationKeepsFields(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, DelayClassifier{}, nil)
	lat, lng := 12.97, 77.59
	draft := draftAtReview(t, f.service, citizenViewer, "health", "Open drain", "Smells", "Market Road, Ward 4")
	_, err := f.service.Back(ctx, draft.ID, citizenViewer)
	require.NoError(t, err)
	_, err = f.service.UpdateLocation(ctx, draft.ID, citizenViewer, LocationInput{Location: "Market Road, Ward 4", Latitude: &lat, Longitude: &lng})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		draft, err = f.service.Back(ctx, draft.ID, citizenViewer)
		require.NoError(t, err)
	}
	assert.Equal(t, domain.StageCategory, draft.Stage)
	assert.Equal(t, "health", draft.CategoryID)
	assert.Equal(t, "Open drain", draft.Title)
	assert.Equal(t, "Smells", draft.Description)
	assert.Equal(t, "Market Road, Ward 4", draft.Location)
	require.NotNil(t, draft.Latitude)
	assert.Equal(t, 12.97, *draft.Latitude)

	_, err = f.service.UpdateLocation(ctx, draft.ID, citizenViewer, LocationInput{Latitude: &lng, Longitude: &lat})
	assert.True(t, apperrors.IsValidationFailed(err), "stage gate is checked after range validation passes")

	bad := 120.0
	_, err = f.service.UpdateLocation(ctx, draft.ID, citizenViewer, LocationInput{Latitude: &bad})
	assert.True(t, apperrors.IsValidationFailed(err))
}

func TestDraftOwnership(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, DelayClassifier{}, nil)

	_, err := f.service.StartDraft(ctx, nil)
	assert.True(t, apperrors.IsUnauthorized(err))

	draft := draftAtReview(t, f.service, citizenViewer, "roads", "Pothole", "", "Main St")

	_, err = f.service.GetDraft(ctx, draft.ID, otherCitizen)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = f.service.Back(ctx, draft.ID, otherCitizen)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = f.service.Commit(ctx, draft.ID, otherCitizen)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = f.service.Commit(ctx, draft.ID, nil)
	assert.True(t, apperrors.IsUnauthorized(err))
	_, err = f.service.GetDraft(ctx, "missing", citizenViewer)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCommittedDraftIsFrozen(t *testing.T) {
	ctx := context.Background()
	f := newSubmissionFixture(t, DelayClassifier{}, nil)
	draft := draftAtReview(t, f.service, citizenViewer, "roads", "Pothole", "", "Main St")
	_, err := f.service.Commit(ctx, draft.ID, citizenViewer)
	require.NoError(t, err)

	_, err = f.service.Back(ctx, draft.ID, citizenViewer)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestCommitRetriesDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	generated := []string{"CT-AAAAAAAA", "CT-AAAAAAAA", "CT-BBBBBBBB"}
	var mu sync.Mutex
	next := func() string {
		mu.Lock()
		defer mu.Unlock()
		id := generated[0]
		generated = generated[1:]
		return id
	}
	f := newSubmissionFixture(t, DelayClassifier{}, next)

	first := draftAtReview(t, f.service, citizenViewer, "roads", "One", "", "Main St")
	second := draftAtReview(t, f.service, citizenViewer, "roads", "Two", "", "Main St")

	c1, err := f.service.Commit(ctx, first.ID, citizenViewer)
	require.NoError(t, err)
	c2, err := f.service.Commit(ctx, second.ID, citizenViewer)
	require.NoError(t, err)

	assert.Equal(t, "CT-AAAAAAAA", c1.ID)
	assert.Equal(t, "CT-BBBBBBBB", c2.ID)
}

func TestCommitAsyncDeliversOnce(t *testing.T) {
	f := newSubmissionFixture(t, DelayClassifier{Delay: 5 * time.Millisecond}, nil)
	draft := draftAtReview(t, f.service, citizenViewer, "roads", "Pothole", "", "Main St")

	results := f.service.CommitAsync(context.Background(), draft.ID, citizenViewer)
	res, ok := <-results
	require.True(t, ok)
	require.NoError(t, res.Err)
	_, ok = <-results
	assert.False(t, ok, "channel closes after the single result")
}

func TestDelayClassifierHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := DelayClassifier{Delay: time.Hour}.Classify(ctx, domain.Draft{})
	assert.True(t, errors.Is(err, context.Canceled))

	assert.NoError(t, DelayClassifier{Delay: time.Millisecond}.Classify(context.Background(), domain.Draft{}))
}

func TestGeneratedComplaintIDFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := generateComplaintID()
		assert.Regexp(t, complaintIDPattern, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
