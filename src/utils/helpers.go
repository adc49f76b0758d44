package utils

import (
	"cbs/src/availability"
	"cbs/src/db"
	"cbs/src/models"
	"cbs/src/types"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func IsProd() bool {
	return os.Getenv("API_ENV") == "production"
}

func GenerateJWT(email string, id uint, role types.Role) (string, error) {
	claims := &types.Claims{
		Username: email,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(id),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

func VenueSlug(name string) string {
	return slug.Make(name)
}

// ReservedTimesCacheKey keys the redis cache of occupied slots for one court
// and one calendar day.
func ReservedTimesCacheKey(courtID uint, day string) string {
	return fmt.Sprintf("%d:%s:reserved", courtID, day)
}

// CourtResource maps a court and its venue's operating window into the
// availability engine's resource view.
func CourtResource(court *models.Court, venue *models.Venue) (availability.Resource, error) {
	open, err := availability.ParseTimeOfDay(venue.OpenTime)
	if err != nil {
		return availability.Resource{}, err
	}
	close_, err := availability.ParseTimeOfDay(venue.CloseTime)
	if err != nil {
		return availability.Resource{}, err
	}
	return availability.Resource{
		ID:          court.ID,
		OpenMinute:  open,
		CloseMinute: close_,
		SlotMinutes: court.SlotMinutes,
	}, nil
}

func ToEngineReservations(bookings []models.Booking) []availability.Reservation {
	rs := make([]availability.Reservation, 0, len(bookings))
	for _, b := range bookings {
		rs = append(rs, availability.Reservation{
			ID:       b.ID,
			Start:    b.StartsAt,
			Duration: b.Duration,
			Status:   b.Status,
		})
	}
	return rs
}

// ActiveBookingsAround returns the non-cancelled bookings for a court whose
// intervals could touch [start, end); the window is padded by a day on each
// side, which covers any booking since durations are capped at 24 hours at
// the binding layer.
func ActiveBookingsAround(tx *gorm.DB, courtID uint, start, end time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := tx.
		Model(&models.Booking{}).
		Where(&models.Booking{CourtID: courtID}).
		Where("status <> ?", types.BOOKING_CANCELLED).
		Where("starts_at < ?", end.Add(24*time.Hour)).
		Where("starts_at > ?", start.Add(-24*time.Hour)).
		Order("starts_at ASC").
		Find(&bookings).
		Error
	return bookings, err
}

func GetOwnBookings(id uint) ([]models.Booking, error) {
	db := db.GetDb()
	var bookings []models.Booking
	err := db.
		Model(&models.Booking{}).
		Where(&models.Booking{UserID: id}).
		Preload("Court").
		Preload("Court.Venue").
		Order("starts_at DESC").
		Limit(50).
		Find(&bookings).
		Error
	return bookings, err
}

type FrequentClient struct {
	UserID        uint           `json:"userId"`
	TotalBookings int            `json:"totalBookings"`
	TotalSpent    float64        `json:"totalSpent"`
	LastBooking   models.Booking `json:"lastBooking"`
}

// FrequentClients aggregates per-user booking counts and spend, most frequent
// first. Cancelled bookings stay in the history on purpose.
func FrequentClients(bookings []models.Booking) []FrequentClient {
	byUser := map[uint][]models.Booking{}
	for _, b := range bookings {
		byUser[b.UserID] = append(byUser[b.UserID], b)
	}
	clients := make([]FrequentClient, 0, len(byUser))
	for userId, list := range byUser {
		fc := FrequentClient{UserID: userId, TotalBookings: len(list), LastBooking: list[0]}
		for _, b := range list {
			fc.TotalSpent += b.Price
			if b.StartsAt.After(fc.LastBooking.StartsAt) {
				fc.LastBooking = b
			}
		}
		clients = append(clients, fc)
	}
	sort.Slice(clients, func(i, j int) bool {
		if clients[i].TotalBookings != clients[j].TotalBookings {
			return clients[i].TotalBookings > clients[j].TotalBookings
		}
		return clients[i].UserID < clients[j].UserID
	})
	return clients
}

// ExpireStalePendingBookings cancels PENDING bookings whose start time has
// already passed. Runs from the scheduler; see boot.InitScheduler.
func ExpireStalePendingBookings() {
	db := db.GetDb()
	res := db.
		Model(&models.Booking{}).
		Where("status = ?", types.BOOKING_PENDING).
		Where("starts_at < ?", time.Now()).
		Update("status", types.BOOKING_CANCELLED)
	if res.Error != nil {
		log.Printf("Error expiring stale bookings: %s\n", res.Error.Error())
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("Expired %d stale pending bookings\n", res.RowsAffected)
	}
}
