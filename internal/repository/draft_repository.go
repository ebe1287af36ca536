package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/urbispulse/internal/domain"
)

// DraftRepository holds in-progress submissions.
type DraftRepository interface {
	Create(ctx context.Context, draft *domain.Draft) error
	GetByID(ctx context.Context, id string) (*domain.Draft, error)
	// Modify applies fn to the draft under its lock. An error from fn leaves the draft untouched.
	Modify(ctx context.Context, id string, fn func(draft *domain.Draft) error) (*domain.Draft, error)
	// DeleteStale removes drafts last touched before cutoff. Drafts mid-commit are kept.
	DeleteStale(ctx context.Context, cutoff time.Time) (int, error)
}

type memoryDraftRepository struct {
	mu     sync.Mutex
	drafts map[string]*domain.Draft
}

// NewMemoryDraftRepository returns a process-local draft store.
func NewMemoryDraftRepository() DraftRepository {
	return &memoryDraftRepository{drafts: make(map[string]*domain.Draft)}
}

func (r *memoryDraftRepository) Create(_ context.Context, draft *domain.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.drafts[draft.ID]; exists {
		return ErrDuplicateID
	}
	stored := cloneDraft(*draft)
	r.drafts[draft.ID] = &stored
	return nil
}

func (r *memoryDraftRepository) GetByID(_ context.Context, id string) (*domain.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneDraft(*stored)
	return &out, nil
}

func (r *memoryDraftRepository) Modify(_ context.Context, id string, fn func(draft *domain.Draft) error) (*domain.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := cloneDraft(*stored)
	if err := fn(&working); err != nil {
		return nil, err
	}
	saved := cloneDraft(working)
	r.drafts[id] = &saved
	return &working, nil
}

func (r *memoryDraftRepository) DeleteStale(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, draft := range r.drafts {
		if draft.State != domain.DraftCommitting && draft.UpdatedAt.Before(cutoff) {
			delete(r.drafts, id)
			removed++
		}
	}
	return removed, nil
}

func cloneDraft(d domain.Draft) domain.Draft {
	if d.Latitude != nil {
		lat := *d.Latitude
		d.Latitude = &lat
	}
	if d.Longitude != nil {
		lng := *d.Longitude
		d.Longitude = &lng
	}
	return d
}
