package models

import (
	"time"

	"gorm.io/gorm"
)

// Action delivery statuses.
const (
	ActionStatusSent   = "sent"
	ActionStatusFailed = "failed"
)

// Outcome types observed on outbound touches.
const (
	OutcomeOpened        = "opened"
	OutcomeClicked       = "clicked"
	OutcomeReplied       = "replied"
	OutcomeBounced       = "bounced"
	OutcomeBookedMeeting = "booked_meeting"
	OutcomeConverted     = "converted"
	OutcomeUnsubscribed  = "unsubscribed"
	OutcomeDNCRequest    = "dnc_request"
)

// OutcomeTypes lists the accepted outcome types for validation.
var OutcomeTypes = []string{
	OutcomeOpened, OutcomeClicked, OutcomeReplied, OutcomeBounced,
	OutcomeBookedMeeting, OutcomeConverted, OutcomeUnsubscribed, OutcomeDNCRequest,
}

// OutreachAction is one outbound touch sent (or attempted) for an
// enrollment step. The action log is append-only.
type OutreachAction struct {
	gorm.Model
	EnrollmentID uint `gorm:"not null;index" json:"enrollment_id"`
	CampaignID   uint `gorm:"not null;index" json:"campaign_id"`
	LeadID       uint `gorm:"not null;index" json:"lead_id"`

	StepIndex   int    `json:"step_index"`
	Channel     string `gorm:"not null" json:"channel"`
	Subject     string `json:"subject"`
	Content     string `gorm:"type:text" json:"content"`
	AIGenerated bool   `gorm:"default:false" json:"ai_generated"`

	// MessageID is the channel delivery id used to correlate outcomes.
	MessageID string `gorm:"index" json:"message_id"`

	Status string    `gorm:"default:'sent'" json:"status"`
	Error  string    `json:"error,omitempty"`
	SentAt time.Time `gorm:"not null;index" json:"sent_at"`

	// Relations
	Enrollment Enrollment `json:"-"`
	Campaign   Campaign   `json:"-"`
	Lead       Lead       `json:"-"`
}

// OutreachOutcome is one observed response to an action, recorded from
// channel callbacks or manual logging.
type OutreachOutcome struct {
	gorm.Model
	ActionID     *uint `gorm:"index" json:"action_id,omitempty"`
	EnrollmentID uint  `gorm:"index" json:"enrollment_id"`
	CampaignID   uint  `gorm:"not null;index" json:"campaign_id"`
	LeadID       uint  `gorm:"not null;index" json:"lead_id"`

	OutcomeType string    `gorm:"not null;index" json:"outcome_type"`
	Detail      string    `json:"detail"`
	OccurredAt  time.Time `gorm:"not null" json:"occurred_at"`

	// Relations
	Campaign Campaign `json:"-"`
	Lead     Lead     `json:"-"`
}
