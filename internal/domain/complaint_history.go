package domain

import "time"

// ComplaintChangeType captures what changed in a history entry.
type ComplaintChangeType string

const (
	ChangeTypeCreated  ComplaintChangeType = "CREATED"
	ChangeTypeStatus   ComplaintChangeType = "STATUS_CHANGE"
	ChangeTypeSeverity ComplaintChangeType = "SEVERITY_CHANGE"
)

// ComplaintHistory is an immutable audit trail entry.
type ComplaintHistory struct {
	ID          string
	ComplaintID string
	ActorID     *string
	ActorRole   string
	ChangeType  ComplaintChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
