package domain

import "time"

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	StatusSubmitted   ComplaintStatus = "Submitted"
	StatusUnderReview ComplaintStatus = "Under Review"
	StatusAssigned    ComplaintStatus = "Assigned"
	StatusInProgress  ComplaintStatus = "In Progress"
	StatusResolved    ComplaintStatus = "Resolved"
)

// StatusOrder is the strict forward order of the lifecycle.
var StatusOrder = []ComplaintStatus{
	StatusSubmitted,
	StatusUnderReview,
	StatusAssigned,
	StatusInProgress,
	StatusResolved,
}

// Index returns the position of s in StatusOrder, or -1 for unknown values.
func (s ComplaintStatus) Index() int {
	for i, candidate := range StatusOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the five lifecycle states.
func (s ComplaintStatus) Valid() bool {
	return s.Index() >= 0
}

// IsTerminal reports whether no further transition can change s.
func (s ComplaintStatus) IsTerminal() bool {
	return s == StatusResolved
}

// Next returns the status one step forward. Resolved maps to itself.
func (s ComplaintStatus) Next() ComplaintStatus {
	idx := s.Index()
	if idx < 0 || idx == len(StatusOrder)-1 {
		return s
	}
	return StatusOrder[idx+1]
}

// Before reports whether s comes strictly earlier than other.
func (s ComplaintStatus) Before(other ComplaintStatus) bool {
	return s.Index() < other.Index()
}

// Severity enumerates triage priority.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Complaint is the aggregate for a reported civic issue.
type Complaint struct {
	ID          string
	Seq         int64
	Title       string
	Description string
	CategoryID  string
	Category    string
	Location    string
	Latitude    *float64
	Longitude   *float64
	Status      ComplaintStatus
	Severity    Severity
	IsAnonymous bool
	UpvoteCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ComplaintChange is a field-level merge applied by the record store.
// Identity, creation date and anonymity are deliberately absent.
type ComplaintChange struct {
	Status    *ComplaintStatus
	Severity  *Severity
	Latitude  *float64
	Longitude *float64
}

// IsEmpty reports whether the change carries no field.
func (c ComplaintChange) IsEmpty() bool {
	return c.Status == nil && c.Severity == nil && c.Latitude == nil && c.Longitude == nil
}

// Apply merges the change into a copy of complaint and returns it.
func (c ComplaintChange) Apply(complaint Complaint) Complaint {
	if c.Status != nil {
		complaint.Status = *c.Status
	}
	if c.Severity != nil {
		complaint.Severity = *c.Severity
	}
	if c.Latitude != nil {
		lat := *c.Latitude
		complaint.Latitude = &lat
	}
	if c.Longitude != nil {
		lng := *c.Longitude
		complaint.Longitude = &lng
	}
	return complaint
}

// Clone returns a deep copy so callers never share coordinate pointers.
func (c Complaint) Clone() Complaint {
	out := c
	if c.Latitude != nil {
		lat := *c.Latitude
		out.Latitude = &lat
	}
	if c.Longitude != nil {
		lng := *c.Longitude
		out.Longitude = &lng
	}
	return out
}
