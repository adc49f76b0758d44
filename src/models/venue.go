package models

import "cbs/src/types"

// Venue is a "predio": a facility that owns one or more courts and defines
// the operating window every court inherits.
type Venue struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Name      string `json:"name,omitempty"`
	Slug      string `gorm:"uniqueIndex" json:"slug,omitempty"`
	Address   string `json:"address,omitempty"`
	OwnerID   uint   `json:"owner,omitempty"`
	OpenTime  string `gorm:"default:'08:00'" json:"open_time,omitempty"`
	CloseTime string `gorm:"default:'22:00'" json:"close_time,omitempty"`

	Owner  User    `gorm:"foreignKey:owner_id" json:"-"`
	Courts []Court `gorm:"foreignKey:venue_id" json:"courts,omitempty"`

	types.Timestamps
}
