package models

import (
	"time"

	"gorm.io/gorm"
)

// Insight dimension types.
const (
	DimensionIndustry      = "industry"
	DimensionTitleCategory = "title_category"
	DimensionCompanySize   = "company_size"
	DimensionSource        = "source"
	DimensionIndustryTitle = "industry_x_title"
)

// Insight metric names.
const (
	MetricResponseRate   = "response_rate"
	MetricBookingRate    = "booking_rate"
	MetricOpenRate       = "open_rate"
	MetricConversionRate = "conversion_rate"
)

// InsightRecommendation is one ranked ICP targeting suggestion. The full
// set is superseded on every recompute.
type InsightRecommendation struct {
	gorm.Model
	CampaignType string `gorm:"index" json:"campaign_type"` // empty means all types

	DimensionType  string `gorm:"not null;index" json:"dimension_type"`
	DimensionValue string `gorm:"not null" json:"dimension_value"`

	MetricName  string  `gorm:"not null;index" json:"metric_name"`
	MetricValue float64 `json:"metric_value"`

	SampleSize int     `json:"sample_size"`
	Confidence float64 `json:"confidence"`
	Rank       int     `json:"rank"`

	ComputedAt time.Time `json:"computed_at"`
}

// ConfidenceLabel buckets a confidence score the way the admin UI displays it.
func ConfidenceLabel(confidence float64) string {
	switch {
	case confidence >= 0.30:
		return "High"
	case confidence >= 0.15:
		return "Medium"
	default:
		return "Low"
	}
}
