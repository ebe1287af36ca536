package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/urbispulse/internal/domain"
	"github.com/spec-kit/urbispulse/internal/events"
	"github.com/spec-kit/urbispulse/internal/observability"
	"github.com/spec-kit/urbispulse/internal/repository"
)

var fixedNow = time.Date(2024, 5, 14, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var (
	adminViewer   = &domain.Viewer{UserID: "admin-1", Role: domain.RoleAdmin}
	ward4Member   = &domain.Viewer{UserID: "wm-4", Role: domain.RoleWardMember, Ward: "Ward 4"}
	ward9Member   = &domain.Viewer{UserID: "wm-9", Role: domain.RoleWardMember, Ward: "Ward 9"}
	citizenViewer = &domain.Viewer{UserID: "citizen-1", Role: domain.RoleCitizen}
	otherCitizen  = &domain.Viewer{UserID: "citizen-2", Role: domain.RoleCitizen}
)

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
	inner  events.Dispatcher
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{inner: events.NewInMemoryDispatcher()}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.events = append(d.events, event)
	d.mu.Unlock()
	return d.inner.Publish(ctx, event)
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.inner.Subscribe(eventType, handler)
}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

type complaintFixture struct {
	repo       repository.ComplaintRepository
	history    repository.ComplaintHistoryRepository
	dispatcher *recordingDispatcher
	service    *ComplaintService
}

func newComplaintFixture(t *testing.T) *complaintFixture {
	t.Helper()
	f := &complaintFixture{
		repo:       repository.NewMemoryComplaintRepository(),
		history:    repository.NewMemoryComplaintHistoryRepository(),
		dispatcher: newRecordingDispatcher(),
	}
	f.service = NewComplaintService(ComplaintDependencies{
		ComplaintRepo: f.repo,
		HistoryRepo:   f.history,
		Dispatcher:    f.dispatcher,
		Metrics:       observability.NewMetrics(),
		Clock:         fixedClock,
	})
	return f
}

func seedComplaint(t *testing.T, repo repository.ComplaintRepository, id, location string, status domain.ComplaintStatus) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &domain.Complaint{
		ID:          id,
		Title:       "Broken streetlight",
		CategoryID:  "electricity",
		Category:    "Electricity",
		Location:    location,
		Status:      status,
		Severity:    domain.SeverityMedium,
		UpvoteCount: 1,
		CreatedAt:   fixedNow,
	}))
}

// mockComplaintRepository is a testify mock of the record store.
type mockComplaintRepository struct {
	mock.Mock
}

func (m *mockComplaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	args := m.Called(ctx, complaint)
	return args.Error(0)
}

func (m *mockComplaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	args := m.Called(ctx, id)
	complaint, _ := args.Get(0).(*domain.Complaint)
	return complaint, args.Error(1)
}

func (m *mockComplaintRepository) Update(ctx context.Context, id string, change domain.ComplaintChange) (*domain.Complaint, error) {
	args := m.Called(ctx, id, change)
	complaint, _ := args.Get(0).(*domain.Complaint)
	return complaint, args.Error(1)
}

func (m *mockComplaintRepository) Modify(ctx context.Context, id string, fn repository.ModifyFunc) (*domain.Complaint, error) {
	args := m.Called(ctx, id, fn)
	complaint, _ := args.Get(0).(*domain.Complaint)
	return complaint, args.Error(1)
}

func (m *mockComplaintRepository) List(ctx context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	args := m.Called(ctx, filter)
	complaints, _ := args.Get(0).([]domain.Complaint)
	return complaints, args.Error(1)
}

// mockHistoryRepository fails the test if anything is recorded unexpectedly.
type mockHistoryRepository struct {
	mock.Mock
}

func (m *mockHistoryRepository) Create(ctx context.Context, history *domain.ComplaintHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *mockHistoryRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error) {
	args := m.Called(ctx, complaintID)
	entries, _ := args.Get(0).([]domain.ComplaintHistory)
	return entries, args.Error(1)
}
