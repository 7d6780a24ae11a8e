package models

import (
	"time"

	"gorm.io/gorm"
)

// Operator is a back-office user of the admin console.
type Operator struct {
	gorm.Model
	Email        string `gorm:"not null;uniqueIndex" json:"email"`
	Name         string `json:"name"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"default:'operator'" json:"role"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at"`
}
