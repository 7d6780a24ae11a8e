package models

import "gorm.io/gorm"

// Outreach channels.
const (
	ChannelEmail = "email"
	ChannelVoice = "voice"
)

// Sequence represents an ordered outreach plan, authored by an operator
// and referenced (not owned) by campaigns.
type Sequence struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	// Relations
	Steps []SequenceStep `gorm:"foreignKey:SequenceID" json:"steps,omitempty"`
}

// SequenceStep is one timed, channel-specific outreach action.
// DelayDays is counted from the previous step's send (0 for the first step).
type SequenceStep struct {
	gorm.Model
	SequenceID uint `gorm:"not null;index" json:"sequence_id"`

	StepNumber int    `gorm:"not null" json:"step_number"`
	Channel    string `gorm:"not null;default:'email'" json:"channel"`
	DelayDays  int    `gorm:"not null;default:0" json:"delay_days"`

	Subject      string `json:"subject"`
	Template     string `gorm:"type:text" json:"template"`
	Instructions string `gorm:"type:text" json:"instructions"`
	Tone         string `json:"tone"` // professional, casual, direct
	Goal         string `json:"goal"` // reply, meeting, conversion
}
