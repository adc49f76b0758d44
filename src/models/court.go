package models

import "cbs/src/types"

// Court is a "cancha". SlotMinutes is the booking granularity; zero means any
// positive duration is accepted.
type Court struct {
	ID              uint    `gorm:"primarykey" json:"id"`
	Name            string  `json:"name,omitempty"`
	VenueID         uint    `json:"predio,omitempty"`
	Type            string  `json:"type,omitempty"`
	Size            string  `json:"size,omitempty"`
	Price           float64 `json:"price,omitempty"`
	SlotMinutes     uint    `gorm:"default:30" json:"slot_minutes,omitempty"`
	RequiresDeposit bool    `json:"requires_deposit,omitempty"`

	Venue    Venue     `gorm:"foreignKey:venue_id" json:"venue,omitempty"`
	Bookings []Booking `gorm:"foreignKey:court_id" json:"bookings,omitempty"`

	types.Timestamps
}
