package models

import "gorm.io/gorm"

// Plan is a public pricing tier for the training program.
type Plan struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"not null;uniqueIndex" json:"slug"`
	Description string `json:"description"`

	PriceCents int    `gorm:"not null" json:"price_cents"`
	Currency   string `gorm:"default:'usd'" json:"currency"`
	Seats      int    `gorm:"default:1" json:"seats"`

	// StripePriceID binds the plan to the checkout provider.
	StripePriceID string `json:"-"`

	Features []string `gorm:"type:jsonb;serializer:json" json:"features"`
	IsActive bool     `gorm:"default:true" json:"is_active"`
}
