package dto

import (
	"time"

	"github.com/spec-kit/urbispulse/internal/domain"
)

// TransitionRequest payload for POST /complaints/:id/transition.
type TransitionRequest struct {
	Status domain.ComplaintStatus `json:"status"`
}

// SeverityRequest payload for PUT /complaints/:id/severity.
type SeverityRequest struct {
	Severity domain.Severity `json:"severity"`
}

// ComplaintResponse is the public shape of a complaint.
type ComplaintResponse struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	CategoryID  string                 `json:"category_id"`
	Category    string                 `json:"category"`
	Location    string                 `json:"location"`
	Latitude    *float64               `json:"latitude,omitempty"`
	Longitude   *float64               `json:"longitude,omitempty"`
	Status      domain.ComplaintStatus `json:"status"`
	Severity    domain.Severity        `json:"severity"`
	IsAnonymous bool                   `json:"is_anonymous"`
	UpvoteCount int                    `json:"upvote_count"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// FeedItemResponse adds the caller's upvote overlay to a complaint.
type FeedItemResponse struct {
	ComplaintResponse
	Upvoted          bool `json:"upvoted"`
	EffectiveUpvotes int  `json:"effective_upvotes"`
}

// UpvoteResponse reports the ledger state after a toggle.
type UpvoteResponse struct {
	ComplaintID      string `json:"complaint_id"`
	Upvoted          bool   `json:"upvoted"`
	EffectiveUpvotes int    `json:"effective_upvotes"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID         string                     `json:"id"`
	ActorID    *string                    `json:"actor_id"`
	ActorRole  string                     `json:"actor_role"`
	ChangeType domain.ComplaintChangeType `json:"change_type"`
	OldValue   map[string]any             `json:"old_value"`
	NewValue   map[string]any             `json:"new_value"`
	CreatedAt  time.Time                  `json:"created_at"`
}

// CategoryResponse is one selectable category.
type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewComplaintResponse maps a domain complaint.
func NewComplaintResponse(c *domain.Complaint) ComplaintResponse {
	return ComplaintResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		CategoryID:  c.CategoryID,
		Category:    c.Category,
		Location:    c.Location,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		Status:      c.Status,
		Severity:    c.Severity,
		IsAnonymous: c.IsAnonymous,
		UpvoteCount: c.UpvoteCount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// NewHistoryResponses maps an audit trail.
func NewHistoryResponses(entries []domain.ComplaintHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(entries))
	for _, h := range entries {
		out = append(out, HistoryResponse{
			ID:         h.ID,
			ActorID:    h.ActorID,
			ActorRole:  h.ActorRole,
			ChangeType: h.ChangeType,
			OldValue:   h.OldValue,
			NewValue:   h.NewValue,
			CreatedAt:  h.CreatedAt,
		})
	}
	return out
}
