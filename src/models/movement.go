package models

import (
	"cbs/src/types"
	"time"

	"github.com/google/uuid"
)

// CashMovement is a "movimiento de caja": one income or expense line in a
// venue's ledger.
type CashMovement struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	VenueID    uint                `gorm:"index" json:"predio,omitempty"`
	CategoryID uint                `json:"categoria,omitempty"`
	Concept    string              `json:"concepto,omitempty"`
	Amount     float64             `json:"monto,omitempty"`
	Kind       types.MovementKind  `json:"tipo,omitempty"`
	Method     types.PaymentMethod `json:"metodo_pago,omitempty"`
	OccurredAt time.Time           `gorm:"index" json:"fecha_movimiento,omitempty"`
	Metadata   types.JSONB         `gorm:"type:jsonb" json:"metadata,omitempty"`

	Venue    Venue    `gorm:"foreignKey:venue_id" json:"-"`
	Category Category `gorm:"foreignKey:category_id" json:"category,omitempty"`

	types.Timestamps
}

type Category struct {
	ID          uint               `gorm:"primarykey" json:"id"`
	Name        string             `json:"nombre,omitempty"`
	Kind        types.MovementKind `json:"tipo,omitempty"`
	Description string             `json:"descripcion,omitempty"`
	Active      bool               `gorm:"default:true" json:"activo"`

	types.Timestamps
}
