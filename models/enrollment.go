package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses.
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusPaused    = "paused"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusRemoved   = "removed"
)

// Enrollment outcomes recorded on termination.
const (
	EnrollmentOutcomeSequenceDone   = "sequence_completed"
	EnrollmentOutcomeReplied        = "replied"
	EnrollmentOutcomeMeetingBooked  = "meeting_booked"
	EnrollmentOutcomeConverted      = "converted"
	EnrollmentOutcomeDNC            = "dnc"
	EnrollmentOutcomeOperatorRemove = "removed_by_operator"
	EnrollmentOutcomeDeliveryFailed = "delivery_failed"
)

// Enrollment tracks one lead's run through one campaign's sequence.
// The (campaign, lead) pair is unique while the enrollment is non-removed.
type Enrollment struct {
	gorm.Model
	CampaignID uint `gorm:"not null;index" json:"campaign_id"`
	LeadID     uint `gorm:"not null;index" json:"lead_id"`

	Status string `gorm:"default:'active';index" json:"status"`

	// CurrentStepIndex is the next step to execute. It only ever moves
	// forward and is bounded by the sequence length.
	CurrentStepIndex int    `gorm:"default:0" json:"current_step_index"`
	Outcome          string `json:"outcome"`

	EnrolledAt     time.Time  `gorm:"not null" json:"enrolled_at"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	NextActionAt   *time.Time `gorm:"index" json:"next_action_at"`

	// ExcludeFromMatch keeps a removed lead out of future auto-matching.
	ExcludeFromMatch bool `gorm:"default:false" json:"exclude_from_match"`

	// Relations
	Campaign Campaign `json:"-"`
	Lead     Lead     `json:"-"`
}

// EnrollmentTransition is the append-only audit row written on every
// enrollment status change.
type EnrollmentTransition struct {
	gorm.Model
	EnrollmentID uint      `gorm:"not null;index" json:"enrollment_id"`
	CampaignID   uint      `gorm:"not null;index" json:"campaign_id"`
	LeadID       uint      `gorm:"not null;index" json:"lead_id"`
	FromStatus   string    `json:"from_status"`
	ToStatus     string    `json:"to_status"`
	Reason       string    `json:"reason"`
	OccurredAt   time.Time `gorm:"not null" json:"occurred_at"`
}

// TransitionTo builds the audit row for moving this enrollment to a new
// status. It does not mutate the enrollment.
func (e *Enrollment) TransitionTo(to, reason string, at time.Time) EnrollmentTransition {
	return EnrollmentTransition{
		EnrollmentID: e.ID,
		CampaignID:   e.CampaignID,
		LeadID:       e.LeadID,
		FromStatus:   e.Status,
		ToStatus:     to,
		Reason:       reason,
		OccurredAt:   at,
	}
}

var enrollmentTransitions = map[string][]string{
	EnrollmentStatusActive: {EnrollmentStatusPaused, EnrollmentStatusCompleted, EnrollmentStatusRemoved},
	EnrollmentStatusPaused: {EnrollmentStatusActive, EnrollmentStatusRemoved},
}

// CanTransition reports whether the state machine allows moving to the given
// status. Completed and removed are terminal.
func (e *Enrollment) CanTransition(to string) bool {
	for _, allowed := range enrollmentTransitions[e.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the enrollment can never be advanced again.
func (e *Enrollment) IsTerminal() bool {
	return e.Status == EnrollmentStatusCompleted || e.Status == EnrollmentStatusRemoved
}
