package dto

import (
	"time"

	"github.com/spec-kit/urbispulse/internal/domain"
)

// SelectCategoryRequest payload for stage 1.
type SelectCategoryRequest struct {
	CategoryID string `json:"category_id"`
}

// DraftDetailsRequest payload for stage 2.
type DraftDetailsRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// DraftLocationRequest payload for stage 4.
type DraftLocationRequest struct {
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// DraftResponse is the state of an in-progress submission.
type DraftResponse struct {
	ID          string            `json:"id"`
	Stage       domain.DraftStage `json:"stage"`
	StageName   string            `json:"stage_name"`
	CategoryID  string            `json:"category_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	IsAnonymous bool              `json:"is_anonymous"`
	Location    string            `json:"location"`
	Latitude    *float64          `json:"latitude,omitempty"`
	Longitude   *float64          `json:"longitude,omitempty"`
	State       domain.DraftState `json:"state"`
	ComplaintID string            `json:"complaint_id,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewDraftResponse maps a domain draft.
func NewDraftResponse(d *domain.Draft) DraftResponse {
	return DraftResponse{
		ID:          d.ID,
		Stage:       d.Stage,
		StageName:   d.Stage.String(),
		CategoryID:  d.CategoryID,
		Title:       d.Title,
		Description: d.Description,
		IsAnonymous: d.IsAnonymous,
		Location:    d.Location,
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		State:       d.State,
		ComplaintID: d.ComplaintID,
		UpdatedAt:   d.UpdatedAt,
	}
}
