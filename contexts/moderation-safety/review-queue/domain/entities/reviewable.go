package entities

import "time"

type ReviewableType string

const (
	TypeFlaggedPost ReviewableType = "flagged_post"
	TypeQueuedPost  ReviewableType = "queued_post"
	TypeUser        ReviewableType = "user"
)

type ReviewableStatus string

const (
	StatusPending  ReviewableStatus = "pending"
	StatusApproved ReviewableStatus = "approved"
	StatusRejected ReviewableStatus = "rejected"
	StatusIgnored  ReviewableStatus = "ignored"
	StatusDeleted  ReviewableStatus = "deleted"
)

// Reviewable is one queue entry awaiting a moderation decision. Status and
// Version only ever change through the transition engine; Version moves by
// exactly one per successful transition.
type Reviewable struct {
	ReviewableID          string
	Type                  ReviewableType
	Status                ReviewableStatus
	Score                 float64
	Version               int
	TargetID              string
	TargetType            string
	CreatedByID           string
	TargetCreatedByID     string
	ReviewableByModerator bool
	ReviewableByGroupID   string
	Payload               map[string]string
	LatestScoreAt         time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (r Reviewable) Pending() bool {
	return r.Status == StatusPending
}

type ScoreType string

const (
	ScoreTypeSpam          ScoreType = "spam"
	ScoreTypeInappropriate ScoreType = "inappropriate"
	ScoreTypeOffTopic      ScoreType = "off_topic"
	ScoreTypeNeedsApproval ScoreType = "needs_approval"
)

// Weight is the score contribution of one signal of this type. The aggregate
// reviewable score is the sum over still-pending contributing scores.
func (t ScoreType) Weight() float64 {
	switch t {
	case ScoreTypeSpam:
		return 5.0
	case ScoreTypeInappropriate:
		return 4.0
	case ScoreTypeOffTopic:
		return 3.0
	case ScoreTypeNeedsApproval:
		return 2.0
	default:
		return 1.0
	}
}

type ScoreDisposition string

const (
	DispositionPending   ScoreDisposition = "pending"
	DispositionAgreed    ScoreDisposition = "agreed"
	DispositionDisagreed ScoreDisposition = "disagreed"
	DispositionIgnored   ScoreDisposition = "ignored"
)

// ReviewableScore is one contributing signal, typically a single flag. Its
// disposition is written exactly once, by the transition that resolves it.
type ReviewableScore struct {
	ScoreID         string
	ReviewableID    string
	UserID          string
	ScoreType       ScoreType
	Weight          float64
	Disposition     ScoreDisposition
	DispositionByID string
	DispositionAt   *time.Time
	CreatedAt       time.Time
}

// Target is the content projection the queue acts on. The queue never owns
// the target's lifecycle; it only reads these flags and requests effects
// through the target store.
type Target struct {
	TargetID    string
	TargetType  string
	CreatedByID string
	Hidden      bool
	UserDeleted bool
	Deleted     bool
}

// Actor is the resolved identity a capability check runs against.
type Actor struct {
	UserID      string
	IsModerator bool
	GroupIDs    []string
}

type Action struct {
	ID                  string
	Icon                string
	TitleKey            string
	DescriptionKey      string
	RequireConfirmation bool
}

// ActionSet is the ephemeral, per-request catalog of permitted actions.
// Order is the display order a handler built them in.
type ActionSet struct {
	Actions []Action
}

func (s *ActionSet) Add(action Action) {
	if action.TitleKey == "" {
		action.TitleKey = "reviewables.actions." + action.ID + ".title"
	}
	if action.DescriptionKey == "" {
		action.DescriptionKey = "reviewables.actions." + action.ID + ".description"
	}
	s.Actions = append(s.Actions, action)
}

func (s ActionSet) Has(actionID string) bool {
	for _, action := range s.Actions {
		if action.ID == actionID {
			return true
		}
	}
	return false
}

func (s ActionSet) Empty() bool {
	return len(s.Actions) == 0
}

type ReviewOutcome string

const (
	OutcomeApproved ReviewOutcome = "approved"
	OutcomeRejected ReviewOutcome = "rejected"
	OutcomeIgnored  ReviewOutcome = "ignored"
)

// StatusFor maps a handler outcome onto the reviewable status the engine
// persists.
func (o ReviewOutcome) StatusFor() ReviewableStatus {
	switch o {
	case OutcomeApproved:
		return StatusApproved
	case OutcomeRejected:
		return StatusRejected
	case OutcomeIgnored:
		return StatusIgnored
	default:
		return StatusPending
	}
}

// PerformResult is the structured return of one completed transition.
type PerformResult struct {
	Success          bool
	Outcome          ReviewOutcome
	TransitionTo     ReviewableStatus
	Version          int
	RecalculateScore bool
	RemoveFromQueue  bool
}
