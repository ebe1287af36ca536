package repository

import (
	"context"
	"sync"
)

// UpvoteRepository is the per-viewer engagement ledger.
// Entries are keyed by (viewer, complaint) and never touch the stored base count.
type UpvoteRepository interface {
	// Toggle flips the viewer's mark and reports whether it is now set.
	Toggle(ctx context.Context, viewerID, complaintID string) (bool, error)
	Has(ctx context.Context, viewerID, complaintID string) (bool, error)
	// MarkedSet returns which of complaintIDs the viewer has marked.
	MarkedSet(ctx context.Context, viewerID string, complaintIDs []string) (map[string]bool, error)
}

type upvoteKey struct {
	viewerID    string
	complaintID string
}

type memoryUpvoteRepository struct {
	mu    sync.RWMutex
	marks map[upvoteKey]struct{}
}

// NewMemoryUpvoteRepository returns a process-local ledger.
func NewMemoryUpvoteRepository() UpvoteRepository {
	return &memoryUpvoteRepository{marks: make(map[upvoteKey]struct{})}
}

func (r *memoryUpvoteRepository) Toggle(_ context.Context, viewerID, complaintID string) (bool, error) {
	key := upvoteKey{viewerID: viewerID, complaintID: complaintID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.marks[key]; ok {
		delete(r.marks, key)
		return false, nil
	}
	r.marks[key] = struct{}{}
	return true, nil
}

func (r *memoryUpvoteRepository) Has(_ context.Context, viewerID, complaintID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.marks[upvoteKey{viewerID: viewerID, complaintID: complaintID}]
	return ok, nil
}

func (r *memoryUpvoteRepository) MarkedSet(_ context.Context, viewerID string, complaintIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(complaintIDs))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range complaintIDs {
		if _, ok := r.marks[upvoteKey{viewerID: viewerID, complaintID: id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}
