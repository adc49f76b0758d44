package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Role string

const (
	ROLE_ADMIN Role = "ADMIN"
	ROLE_OWNER Role = "OWNER"
	ROLE_USER  Role = "USER"
)

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "PENDING"
	BOOKING_CONFIRMED BookingStatus = "CONFIRMED"
	BOOKING_CANCELLED BookingStatus = "CANCELLED"
)

// CanTransitionTo enforces the booking lifecycle: PENDING may confirm or
// cancel, CONFIRMED may only cancel, CANCELLED is terminal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BOOKING_PENDING:
		return next == BOOKING_CONFIRMED || next == BOOKING_CANCELLED
	case BOOKING_CONFIRMED:
		return next == BOOKING_CANCELLED
	case BOOKING_CANCELLED:
		return false
	}
	return false
}

func (s BookingStatus) Active() bool {
	return s != BOOKING_CANCELLED
}

type MovementKind string

const (
	MOVEMENT_INCOME  MovementKind = "INGRESO"
	MOVEMENT_EXPENSE MovementKind = "EGRESO"
)

type PaymentMethod string

const (
	PAYMENT_CASH     PaymentMethod = "EFECTIVO"
	PAYMENT_TRANSFER PaymentMethod = "TRANSFERENCIA"
	PAYMENT_CARD     PaymentMethod = "TARJETA"
)

type RegisterUserRequestBody struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequestBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateVenueRequestBody struct {
	Name      string `json:"name" binding:"required"`
	Address   string `json:"address" binding:"required"`
	OpenTime  string `json:"open_time" binding:"required,timeofday"`
	CloseTime string `json:"close_time" binding:"required,timeofday"`
}

type UpdateVenueRequestBody struct {
	Name      string `json:"name,omitempty"`
	Address   string `json:"address,omitempty"`
	OpenTime  string `json:"open_time,omitempty" binding:"omitempty,timeofday"`
	CloseTime string `json:"close_time,omitempty" binding:"omitempty,timeofday"`
}

type CreateCourtRequestBody struct {
	Name            string  `json:"name" binding:"required"`
	VenueID         uint    `json:"predio" binding:"required"`
	Type            string  `json:"type" binding:"required"`
	Size            string  `json:"size,omitempty"`
	Price           float64 `json:"price" binding:"required"`
	SlotMinutes     uint    `json:"slot_minutes,omitempty"`
	RequiresDeposit bool    `json:"requires_deposit,omitempty"`
}

type UpdateCourtRequestBody struct {
	Name            string   `json:"name,omitempty"`
	Type            string   `json:"type,omitempty"`
	Size            string   `json:"size,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	SlotMinutes     *uint    `json:"slot_minutes,omitempty"`
	RequiresDeposit *bool    `json:"requires_deposit,omitempty"`
}

type CreateBookingRequestBody struct {
	CourtID  uint    `json:"cancha" binding:"required"`
	StartsAt string  `json:"fecha_hora" binding:"required,bookabledate"`
	Duration uint    `json:"duracion" binding:"required,max=1440"`
	Price    float64 `json:"precio,omitempty"`
	// IgnoreBusinessHours is an administrative override, honored only for
	// ADMIN and OWNER callers.
	IgnoreBusinessHours bool `json:"ignore_business_hours,omitempty"`
}

type UpdateBookingRequestBody struct {
	StartsAt string `json:"fecha_hora,omitempty" binding:"omitempty,bookabledate"`
	Duration uint   `json:"duracion,omitempty" binding:"omitempty,max=1440"`
}

type CheckAvailabilityRequestBody struct {
	CourtID             uint   `json:"cancha" binding:"required"`
	StartsAt            string `json:"fecha_hora" binding:"required"`
	Duration            uint   `json:"duracion" binding:"required,max=1440"`
	IgnoreBusinessHours bool   `json:"ignore_business_hours,omitempty"`
}

type AvailableTimesRequestBody struct {
	CourtID uint   `json:"cancha" binding:"required"`
	Date    string `json:"fecha" binding:"required"`
}

type CreateMovementRequestBody struct {
	VenueID    uint          `json:"predio" binding:"required"`
	CategoryID uint          `json:"categoria" binding:"required"`
	Concept    string        `json:"concepto" binding:"required"`
	Amount     float64       `json:"monto" binding:"required,gt=0"`
	Kind       MovementKind  `json:"tipo" binding:"required,oneof=INGRESO EGRESO"`
	Method     PaymentMethod `json:"metodo_pago" binding:"required,oneof=EFECTIVO TRANSFERENCIA TARJETA"`
	OccurredAt string        `json:"fecha_movimiento,omitempty"`
	Metadata   JSONB         `json:"metadata,omitempty"`
}

type CreateCategoryRequestBody struct {
	Name        string       `json:"nombre" binding:"required"`
	Kind        MovementKind `json:"tipo" binding:"required,oneof=INGRESO EGRESO"`
	Description string       `json:"descripcion,omitempty"`
}

type UpdateCategoryRequestBody struct {
	Name        string `json:"nombre,omitempty"`
	Description string `json:"descripcion,omitempty"`
	Active      *bool  `json:"activo,omitempty"`
}

type UpdateMovementRequestBody struct {
	CategoryID uint          `json:"categoria,omitempty"`
	Concept    string        `json:"concepto,omitempty"`
	Amount     *float64      `json:"monto,omitempty" binding:"omitempty,gt=0"`
	Method     PaymentMethod `json:"metodo_pago,omitempty" binding:"omitempty,oneof=EFECTIVO TRANSFERENCIA TARJETA"`
}

type UpdateUserRequestBody struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty" binding:"omitempty,email"`
	Password string `json:"password,omitempty" binding:"omitempty,min=8"`
	Role     Role   `json:"role,omitempty" binding:"omitempty,oneof=ADMIN OWNER USER"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type BookingQueryFilters struct {
	CourtID uint   `form:"cancha"`
	VenueID uint   `form:"predio"`
	UserID  uint   `form:"usuario"`
	Date    string `form:"fecha"`
	Status  string `form:"estado"`
}

type MovementQueryFilters struct {
	VenueID  uint   `form:"predio" binding:"required"`
	Kind     string `form:"tipo"`
	From     string `form:"desde"`
	To       string `form:"hasta"`
	Category uint   `form:"categoria"`
}
