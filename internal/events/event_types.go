package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/urbispulse/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated         EventType = "complaint_created"
	EventComplaintStatusChanged   EventType = "complaint_status_changed"
	EventComplaintSeverityChanged EventType = "complaint_severity_changed"
	EventUpvoteToggled            EventType = "upvote_toggled"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID *string `json:"user_id,omitempty"`
	Role   string  `json:"role"`
}

// ActorOf builds event actor metadata from a viewer.
func ActorOf(viewer *domain.Viewer) Actor {
	if !viewer.Authenticated() {
		return Actor{Role: viewer.RoleOrAnonymous()}
	}
	id := viewer.UserID
	return Actor{UserID: &id, Role: string(viewer.Role)}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ComplaintID string      `json:"complaint_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, complaintID string, actor Actor, at time.Time, payload interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ComplaintID: complaintID,
		Actor:       actor,
		Timestamp:   at,
		Payload:     payload,
	}
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Location    string          `json:"location"`
	Severity    domain.Severity `json:"severity"`
	IsAnonymous bool            `json:"is_anonymous"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	OldStatus domain.ComplaintStatus `json:"old_status"`
	NewStatus domain.ComplaintStatus `json:"new_status"`
	Path      string                 `json:"path"`
}

// ComplaintSeverityChangedPayload payload.
type ComplaintSeverityChangedPayload struct {
	OldSeverity domain.Severity `json:"old_severity"`
	NewSeverity domain.Severity `json:"new_severity"`
}

// UpvoteToggledPayload payload.
type UpvoteToggledPayload struct {
	Upvoted        bool `json:"upvoted"`
	EffectiveCount int  `json:"effective_count"`
}
