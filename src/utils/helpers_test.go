package utils

import (
	"cbs/src/models"
	"cbs/src/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVenueSlug(t *testing.T) {
	assert.Equal(t, "predio-el-potrero", VenueSlug("Predio El Potrero"))
	assert.Equal(t, "canas-futbol-5", VenueSlug("Cañas Fútbol 5"))
}

func TestCourtResource(t *testing.T) {
	court := models.Court{ID: 3, SlotMinutes: 30}
	venue := models.Venue{OpenTime: "08:00", CloseTime: "22:00"}
	res, err := CourtResource(&court, &venue)
	assert.NoError(t, err)
	assert.Equal(t, uint(3), res.ID)
	assert.Equal(t, 480, res.OpenMinute)
	assert.Equal(t, 1320, res.CloseMinute)
	assert.Equal(t, uint(30), res.SlotMinutes)

	venue.CloseTime = "not-a-time"
	_, err = CourtResource(&court, &venue)
	assert.Error(t, err)
}

func TestFrequentClients(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2030, 6, d, 18, 0, 0, 0, time.UTC) }
	bookings := []models.Booking{
		{ID: 1, UserID: 2, StartsAt: day(1), Price: 3000, Status: types.BOOKING_CONFIRMED},
		{ID: 2, UserID: 2, StartsAt: day(3), Price: 3500, Status: types.BOOKING_CONFIRMED},
		{ID: 3, UserID: 2, StartsAt: day(2), Price: 3000, Status: types.BOOKING_CANCELLED},
		{ID: 4, UserID: 9, StartsAt: day(4), Price: 4000, Status: types.BOOKING_CONFIRMED},
	}

	clients := FrequentClients(bookings)
	assert.Len(t, clients, 2)
	assert.Equal(t, uint(2), clients[0].UserID)
	assert.Equal(t, 3, clients[0].TotalBookings)
	assert.Equal(t, 9500.0, clients[0].TotalSpent)
	assert.Equal(t, uint(2), clients[0].LastBooking.ID)
	assert.Equal(t, uint(9), clients[1].UserID)
}

func TestReservedTimesCacheKey(t *testing.T) {
	assert.Equal(t, "4:2030-06-01:reserved", ReservedTimesCacheKey(4, "2030-06-01"))
}

func TestToEngineReservations(t *testing.T) {
	start := time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC)
	bookings := []models.Booking{
		{ID: 8, StartsAt: start, Duration: 90, Status: types.BOOKING_PENDING},
	}
	rs := ToEngineReservations(bookings)
	assert.Len(t, rs, 1)
	assert.Equal(t, uint(8), rs[0].ID)
	assert.Equal(t, start.Add(90*time.Minute), rs[0].End())
}
