package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead temperature tiers, coldest to hottest.
const (
	TemperatureCold      = "cold"
	TemperatureCool      = "cool"
	TemperatureWarm      = "warm"
	TemperatureHot       = "hot"
	TemperatureQualified = "qualified"
)

// Lead statuses. Leads are never hard-deleted; removal and DNC are soft statuses.
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQualified = "qualified"
	LeadStatusConverted = "converted"
	LeadStatusRemoved   = "removed"
	LeadStatusDNC       = "dnc"
)

// Lead sources.
const (
	LeadSourceForm       = "form"
	LeadSourceImport     = "import"
	LeadSourceEnrichment = "enrichment"
	LeadSourceManual     = "manual"
)

// Lead represents a single prospect/contact
type Lead struct {
	gorm.Model
	Email       string `gorm:"not null;index" json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Company     string `json:"company"`
	Title       string `json:"title"`
	Industry    string `json:"industry"`
	CompanySize string `json:"company_size"` // 1-10, 11-50, 51-200, 201-1000, 1000+
	Phone       string `json:"phone"`

	// Scoring
	LeadScore       int    `gorm:"default:0" json:"lead_score"`
	LeadTemperature string `gorm:"default:'cold'" json:"lead_temperature"`

	Status   string `gorm:"default:'new';index" json:"status"`
	Source   string `json:"source"`
	FormType string `json:"form_type"` // which public form captured the lead

	LastContactAt *time.Time `json:"last_contact_at"`

	// Relations
	TemperatureHistory []LeadTemperatureHistory `gorm:"foreignKey:LeadID" json:"temperature_history,omitempty"`
	Enrollments        []Enrollment             `gorm:"foreignKey:LeadID" json:"enrollments,omitempty"`
}

// IsContactable reports whether outreach may be sent to the lead.
func (l *Lead) IsContactable() bool {
	return l.Status != LeadStatusRemoved && l.Status != LeadStatusDNC
}

// FullName joins first and last name for display and templating.
func (l *Lead) FullName() string {
	if l.FirstName == "" {
		return l.LastName
	}
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

// LeadTemperatureHistory is the audit trail of temperature changes
type LeadTemperatureHistory struct {
	gorm.Model
	LeadID uint `gorm:"not null;index" json:"lead_id"`

	PreviousTemperature string `json:"previous_temperature"`
	NewTemperature      string `gorm:"not null" json:"new_temperature"`
	TriggerType         string `json:"trigger_type"` // outcome, manual, recompute
	TriggerDetail       string `json:"trigger_detail"`

	// Relations
	Lead Lead `json:"-"`
}
