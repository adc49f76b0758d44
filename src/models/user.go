package models

import (
	"cbs/src/types"
	"time"
)

type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Name         string     `json:"name,omitempty"`
	Email        string     `gorm:"uniqueIndex" json:"email,omitempty"`
	PasswordHash string     `json:"-"`
	Role         types.Role `gorm:"default:'USER'" json:"role,omitempty"`
	LastActive   *time.Time `json:"last_active,omitempty"`

	Bookings []Booking `gorm:"foreignKey:user_id" json:"bookings,omitempty"`
	Venues   []Venue   `gorm:"foreignKey:owner_id" json:"venues,omitempty"`

	types.Timestamps
}
