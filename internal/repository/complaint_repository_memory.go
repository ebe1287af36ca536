package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/urbispulse/internal/domain"
)

type memoryComplaintRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.Complaint
	locks   map[string]*sync.Mutex
	seq     int64
	now     func() time.Time
}

// NewMemoryComplaintRepository returns a process-local store.
// Reads share an RWMutex; writes to one id are serialized by a per-id mutex.
func NewMemoryComplaintRepository() ComplaintRepository {
	return &memoryComplaintRepository{
		records: make(map[string]*domain.Complaint),
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

func (r *memoryComplaintRepository) Create(_ context.Context, complaint *domain.Complaint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[complaint.ID]; exists {
		return ErrDuplicateID
	}
	r.seq++
	complaint.Seq = r.seq
	if complaint.UpdatedAt.IsZero() {
		complaint.UpdatedAt = complaint.CreatedAt
	}
	stored := complaint.Clone()
	r.records[complaint.ID] = &stored
	r.locks[complaint.ID] = &sync.Mutex{}
	return nil
}

func (r *memoryComplaintRepository) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := stored.Clone()
	return &out, nil
}

func (r *memoryComplaintRepository) Update(ctx context.Context, id string, change domain.ComplaintChange) (*domain.Complaint, error) {
	return r.Modify(ctx, id, func(domain.Complaint) (domain.ComplaintChange, error) {
		return change, nil
	})
}

func (r *memoryComplaintRepository) Modify(ctx context.Context, id string, fn ModifyFunc) (*domain.Complaint, error) {
	r.mu.RLock()
	lock, ok := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	change, err := fn(*current)
	if err != nil {
		return nil, err
	}
	if change.IsEmpty() {
		return current, nil
	}

	next := change.Apply(*current)
	next.UpdatedAt = r.now()

	r.mu.Lock()
	stored := next.Clone()
	r.records[id] = &stored
	r.mu.Unlock()
	return &next, nil
}

func (r *memoryComplaintRepository) List(_ context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	r.mu.RLock()
	result := make([]domain.Complaint, 0, len(r.records))
	for _, stored := range r.records {
		if matchesFilter(*stored, filter) {
			result = append(result, stored.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].Seq > result[j].Seq })

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []domain.Complaint{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matchesFilter(c domain.Complaint, filter ComplaintFilter) bool {
	if len(filter.Statuses) > 0 && !containsValue(filter.Statuses, c.Status) {
		return false
	}
	if len(filter.Severities) > 0 && !containsValue(filter.Severities, c.Severity) {
		return false
	}
	if ward := strings.TrimSpace(filter.Ward); ward != "" {
		return strings.Contains(strings.ToLower(c.Location), strings.ToLower(ward))
	}
	return true
}

func containsValue[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
