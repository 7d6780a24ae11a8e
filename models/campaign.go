package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Campaign types.
const (
	CampaignTypeColdOutbound = "cold_outbound"
	CampaignTypeWarmNurture  = "warm_nurture"
	CampaignTypeReEngagement = "re_engagement"
)

// Campaign lifecycle statuses.
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
)

// CampaignTypes lists the accepted campaign types for validation.
var CampaignTypes = []string{CampaignTypeColdOutbound, CampaignTypeWarmNurture, CampaignTypeReEngagement}

// TargetingCriteria selects which leads a campaign may auto-enroll.
type TargetingCriteria struct {
	Industries   []string `json:"industries,omitempty"`
	Titles       []string `json:"titles,omitempty"`
	CompanySizes []string `json:"company_sizes,omitempty"`
	Sources      []string `json:"sources,omitempty"`
	MinLeadScore int      `json:"min_lead_score,omitempty"`
}

// IsEmpty reports whether no targeting dimension is configured.
func (tc TargetingCriteria) IsEmpty() bool {
	return len(tc.Industries) == 0 &&
		len(tc.Titles) == 0 &&
		len(tc.CompanySizes) == 0 &&
		len(tc.Sources) == 0 &&
		tc.MinLeadScore == 0
}

// Matches reports whether a lead satisfies every configured dimension.
// Empty dimensions match everything.
func (tc TargetingCriteria) Matches(lead *Lead) bool {
	if len(tc.Industries) > 0 && !containsFold(tc.Industries, lead.Industry) {
		return false
	}
	if len(tc.Titles) > 0 && !containsSubstringFold(tc.Titles, lead.Title) {
		return false
	}
	if len(tc.CompanySizes) > 0 && !containsFold(tc.CompanySizes, lead.CompanySize) {
		return false
	}
	if len(tc.Sources) > 0 && !containsFold(tc.Sources, lead.Source) {
		return false
	}
	if lead.LeadScore < tc.MinLeadScore {
		return false
	}
	return true
}

// CallWindow constrains voice-channel sends to working hours.
type CallWindow struct {
	StartHour int    `json:"start_hour"` // inclusive, 0-23
	EndHour   int    `json:"end_hour"`   // exclusive, 0-24
	Timezone  string `json:"timezone"`   // IANA name, e.g. America/New_York
	Days      []int  `json:"days"`       // time.Weekday values; empty means Mon-Fri
}

// CampaignSettings holds per-campaign pacing and execution knobs.
type CampaignSettings struct {
	MaxLeadsPerCycle int        `json:"max_leads_per_cycle"`
	SendDelaySeconds int        `json:"send_delay_seconds"`
	CallWindow       CallWindow `json:"call_window"`
	TestMode         bool       `json:"test_mode"`
}

// Campaign represents one outreach initiative
type Campaign struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`
	Type string `gorm:"not null;default:'cold_outbound'" json:"type"`

	Status     string `gorm:"default:'draft';index" json:"status"`
	SequenceID uint   `gorm:"index" json:"sequence_id"`

	Targeting TargetingCriteria `gorm:"type:jsonb;serializer:json" json:"targeting_criteria"`
	Settings  CampaignSettings  `gorm:"type:jsonb;serializer:json" json:"settings"`

	AISystemPrompt string `gorm:"type:text" json:"ai_system_prompt"`

	BudgetTotal float64 `gorm:"default:0" json:"budget_total"`
	BudgetSpent float64 `gorm:"default:0" json:"budget_spent"`

	ActivatedAt *time.Time `json:"activated_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Relations
	Sequence    Sequence     `json:"-"`
	Enrollments []Enrollment `gorm:"foreignKey:CampaignID" json:"enrollments,omitempty"`
}

var campaignTransitions = map[string][]string{
	CampaignStatusDraft:  {CampaignStatusActive},
	CampaignStatusActive: {CampaignStatusPaused, CampaignStatusCompleted},
	CampaignStatusPaused: {CampaignStatusActive, CampaignStatusCompleted},
}

// CanTransition reports whether the lifecycle allows moving to the given status.
// Completed is terminal.
func (c *Campaign) CanTransition(to string) bool {
	for _, allowed := range campaignTransitions[c.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// BudgetExhausted reports whether spend has reached the configured budget.
// A zero budget means unlimited.
func (c *Campaign) BudgetExhausted() bool {
	return c.BudgetTotal > 0 && c.BudgetSpent >= c.BudgetTotal
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

// containsSubstringFold matches titles loosely: "VP" matches "VP of Engineering".
func containsSubstringFold(haystack []string, needle string) bool {
	lower := strings.ToLower(needle)
	for _, h := range haystack {
		if strings.Contains(lower, strings.ToLower(h)) {
			return true
		}
	}
	return false
}
