package models

import (
	"cbs/src/types"
	"time"
)

// Booking is a "reserva". Cancellation flips Status, the row is never removed,
// so frequent-client stats and the cash ledger keep their history.
type Booking struct {
	ID       uint                `gorm:"primarykey" json:"id"`
	CourtID  uint                `gorm:"index" json:"cancha,omitempty"`
	UserID   uint                `gorm:"index" json:"usuario,omitempty"`
	StartsAt time.Time           `gorm:"index" json:"fecha_hora,omitempty"`
	Duration uint                `json:"duracion,omitempty"`
	Status   types.BookingStatus `gorm:"default:'PENDING'" json:"estado,omitempty"`
	Price    float64             `json:"precio,omitempty"`

	Court Court `gorm:"foreignKey:court_id" json:"court,omitempty"`
	User  User  `gorm:"foreignKey:user_id" json:"user,omitempty"`

	types.Timestamps
}

func (b *Booking) EndsAt() time.Time {
	return b.StartsAt.Add(time.Duration(b.Duration) * time.Minute)
}
