package models

import "time"

// User is an administrator allowed to manage the catalog.
type User struct {
	BaseModel

	Email       string     `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Name        string     `gorm:"size:255" json:"name"`
	Password    string     `gorm:"not null" json:"-"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
}
