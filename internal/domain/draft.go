package domain

import "time"

// DraftStage is a position in the five-stage submission workflow.
type DraftStage int

const (
	StageCategory DraftStage = iota + 1
	StageDetails
	StageEvidence
	StageLocation
	StageReview
)

// FirstStage and LastStage bound navigation.
const (
	FirstStage = StageCategory
	LastStage  = StageReview
)

var stageNames = map[DraftStage]string{
	StageCategory: "Category",
	StageDetails:  "Details",
	StageEvidence: "Evidence",
	StageLocation: "Location",
	StageReview:   "Review",
}

func (s DraftStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "Unknown"
}

// DraftState tracks the commit lifecycle of a draft.
type DraftState string

const (
	DraftEditing    DraftState = "editing"
	DraftCommitting DraftState = "committing"
	DraftCommitted  DraftState = "committed"
)

// Fallbacks substituted at commit time when the reporter left a field empty.
const (
	FallbackTitle    = "Street Issue"
	FallbackLocation = "Detected Ward"
	FallbackCategory = "General"
)

// Draft is an in-progress, uncommitted submission.
type Draft struct {
	ID          string
	OwnerID     string
	Stage       DraftStage
	CategoryID  string
	Title       string
	Description string
	IsAnonymous bool
	Location    string
	Latitude    *float64
	Longitude   *float64
	State       DraftState
	ComplaintID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
