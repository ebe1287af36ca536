package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/urbispulse/internal/domain"
)

func newComplaint(id, location string) *domain.Complaint {
	return &domain.Complaint{
		ID:          id,
		Title:       "Pothole",
		Category:    "Roads & Traffic",
		CategoryID:  "roads",
		Location:    location,
		Status:      domain.StatusSubmitted,
		Severity:    domain.SeverityMedium,
		UpvoteCount: 1,
		CreatedAt:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestMemoryComplaintRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryComplaintRepository()

	require.NoError(t, repo.Create(ctx, newComplaint("CT-1", "Main St")))
	assert.ErrorIs(t, repo.Create(ctx, newComplaint("CT-1", "Elsewhere")), ErrDuplicateID)

	got, err := repo.GetByID(ctx, "CT-1")
	require.NoError(t, err)
	assert.Equal(t, "Main St", got.Location)
	assert.Equal(t, int64(1), got.Seq)

	_, err = repo.GetByID(ctx, "CT-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryComplaintRepositoryUpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryComplaintRepository()
	require.NoError(t, repo.Create(ctx, newComplaint("CT-1", "Main St")))

	severity := domain.SeverityHigh
	lat := 40.7
	updated, err := repo.Update(ctx, "CT-1", domain.ComplaintChange{Severity: &severity, Latitude: &lat})
	require.NoError(t, err)

	assert.Equal(t, domain.SeverityHigh, updated.Severity)
	assert.Equal(t, domain.StatusSubmitted, updated.Status)
	assert.Equal(t, "Pothole", updated.Title)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), updated.CreatedAt)

	_, err = repo.Update(ctx, "CT-404", domain.ComplaintChange{Severity: &severity})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryComplaintRepositoryModifyAbortsOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryComplaintRepository()
	require.NoError(t, repo.Create(ctx, newComplaint("CT-1", "Main St")))

	boom := errors.New("rejected")
	_, err := repo.Modify(ctx, "CT-1", func(domain.Complaint) (domain.ComplaintChange, error) {
		return domain.ComplaintChange{}, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetByID(ctx, "CT-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, got.Status)
}

func TestMemoryComplaintRepositoryModifySerializesWriters(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryComplaintRepository()
	require.NoError(t, repo.Create(ctx, newComplaint("CT-1", "Main St")))

	var wg sync.WaitGroup
	advanced := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Modify(ctx, "CT-1", func(current domain.Complaint) (domain.ComplaintChange, error) {
				if current.Status != domain.StatusSubmitted {
					return domain.ComplaintChange{}, errors.New("already moved")
				}
				next := domain.StatusUnderReview
				return domain.ComplaintChange{Status: &next}, nil
			})
			if err == nil {
				advanced <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(advanced)

	assert.Len(t, advanced, 1)
}

func TestMemoryComplaintRepositoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryComplaintRepository()
	for i := 1; i <= 4; i++ {
		location := "5th Avenue, West Side"
		if i%2 == 0 {
			location = "Central Plaza, Ward 4"
		}
		require.NoError(t, repo.Create(ctx, newComplaint(fmt.Sprintf("CT-%d", i), location)))
	}
	high := domain.SeverityHigh
	_, err := repo.Update(ctx, "CT-3", domain.ComplaintChange{Severity: &high})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter ComplaintFilter
		want   []string
	}{
		{"all", ComplaintFilter{}, []string{"CT-4", "CT-3", "CT-2", "CT-1"}},
		{"ward", ComplaintFilter{Ward: "ward 4"}, []string{"CT-4", "CT-2"}},
		{"severity", ComplaintFilter{Severities: []domain.Severity{domain.SeverityHigh}}, []string{"CT-3"}},
		{"status", ComplaintFilter{Statuses: []domain.ComplaintStatus{domain.StatusResolved}}, []string{}},
		{"page", ComplaintFilter{Limit: 2, Offset: 1}, []string{"CT-3", "CT-2"}},
		{"offset past end", ComplaintFilter{Offset: 10}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemoryComplaintRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryComplaintRepository()
	lat := 1.5
	c := newComplaint("CT-1", "Main St")
	c.Latitude = &lat
	require.NoError(t, repo.Create(ctx, c))

	lat = 9
	got, err := repo.GetByID(ctx, "CT-1")
	require.NoError(t, err)
	assert.Equal(t, 1.5, *got.Latitude)

	got.Status = domain.StatusResolved
	again, err := repo.GetByID(ctx, "CT-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, again.Status)
}
