package main

import (
	"cbs/src/availability"
	"cbs/src/config"
	"cbs/src/db"
	"cbs/src/lib"
	"cbs/src/lib/mailer"
	"cbs/src/middlewares"
	"cbs/src/models"
	"cbs/src/models/scopes"
	"cbs/src/types"
	"cbs/src/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errNotBookable = errors.New("slot is not bookable")

// checkCourtAvailability loads the court, its venue window and the
// surrounding active bookings inside tx, then runs the engine. The caller
// decides whether tx also holds the insert; on the write path the court row
// is locked first so two concurrent requests for the same court serialize.
func checkCourtAvailability(tx *gorm.DB, courtID uint, start time.Time, duration uint, opts availability.Options, excludeBookingID uint) (availability.Result, error) {
	var court models.Court
	if err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(&models.Court{ID: courtID}).
		First(&court).
		Error; err != nil {
		return availability.Result{}, err
	}
	var venue models.Venue
	if err := tx.Where(&models.Venue{ID: court.VenueID}).First(&venue).Error; err != nil {
		return availability.Result{}, err
	}
	resource, err := utils.CourtResource(&court, &venue)
	if err != nil {
		return availability.Result{}, err
	}
	end := start.Add(time.Duration(duration) * time.Minute)
	bookings, err := utils.ActiveBookingsAround(tx, courtID, start, end)
	if err != nil {
		return availability.Result{}, err
	}
	if excludeBookingID > 0 {
		kept := bookings[:0]
		for _, b := range bookings {
			if b.ID != excludeBookingID {
				kept = append(kept, b)
			}
		}
		bookings = kept
	}
	return availability.Check(resource, utils.ToEngineReservations(bookings), start, duration, opts), nil
}

func availabilityErrorResponse(ctx *gin.Context, result availability.Result) {
	switch result.Code {
	case availability.CONFLICT:
		ctx.JSON(http.StatusConflict, gin.H{
			"error":       "ese horario ya está reservado",
			"code":        result.Code,
			"conflict_id": result.ConflictID,
		})
	case availability.OUTSIDE_BUSINESS_HOURS:
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "fuera de horario de atención",
			"code":  result.Code,
		})
	case availability.INVALID_DURATION:
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "duración inválida",
			"code":  result.Code,
		})
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"code": result.Code})
	}
}

func invalidateReservedTimes(courtID uint, day string) {
	rd := lib.GetRedisClient()
	if rd == nil {
		return
	}
	if err := rd.Del(context.Background(), utils.ReservedTimesCacheKey(courtID, day)).Err(); err != nil {
		log.Printf("[redis] Error invalidating reserved times for court %d: %s\n", courtID, err.Error())
	}
}

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/reservas", middlewares.RequireRole(types.ROLE_ADMIN, types.ROLE_OWNER), func(ctx *gin.Context) {
			var filters types.BookingQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			q := db.Model(&models.Booking{}).Preload("Court").Preload("User")
			if filters.CourtID > 0 {
				q = q.Where(&models.Booking{CourtID: filters.CourtID})
			}
			if filters.VenueID > 0 {
				q = q.Joins("JOIN courts ON courts.id = bookings.court_id").
					Where("courts.venue_id = ?", filters.VenueID)
			}
			if filters.UserID > 0 {
				q = q.Where(&models.Booking{UserID: filters.UserID})
			}
			if filters.Status != "" {
				q = q.Where("bookings.status = ?", filters.Status)
			}
			if filters.Date != "" {
				if _, err := time.Parse(config.DATE_PARSE_FORMAT, filters.Date); err != nil {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid fecha"})
					return
				}
				q = q.Scopes(scopes.OnDay(filters.Date))
			}
			var bookings []models.Booking
			if err := q.Order("starts_at DESC").Limit(200).Find(&bookings).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/reservas/own", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			bookings, err := utils.GetOwnBookings(userId)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings, "count": len(bookings)})
		}).
		GET("/reservas/frequent-clients", middlewares.RequireRole(types.ROLE_ADMIN, types.ROLE_OWNER), func(ctx *gin.Context) {
			db := db.GetDb()
			var bookings []models.Booking
			if err := db.
				Model(&models.Booking{}).
				Order("starts_at DESC").
				Limit(1000).
				Find(&bookings).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			clients := utils.FrequentClients(bookings)
			ctx.JSON(http.StatusOK, gin.H{"data": clients, "count": len(clients)})
		}).
		GET("/reservas/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var booking models.Booking
			db := db.GetDb()
			q := db.
				Model(&models.Booking{}).
				Where(&models.Booking{ID: params.ID})
			// Regular users only ever see their own reservas.
			role := types.Role(ctx.GetString("role"))
			if role != types.ROLE_ADMIN && role != types.ROLE_OWNER {
				q = q.Where(&models.Booking{UserID: ctx.GetUint("id")})
			}
			if err := q.
				Preload("Court").
				Preload("Court.Venue").
				Preload("User").
				First(&booking).
				Error; err != nil {
				err := errors.New("reserva not found")
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		POST("/reservas", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			startsAt, err := time.Parse(config.TIME_PARSE_FORMAT, body.StartsAt)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			role := types.Role(ctx.GetString("role"))
			opts := availability.Options{
				IgnoreBusinessHours: body.IgnoreBusinessHours &&
					(role == types.ROLE_ADMIN || role == types.ROLE_OWNER),
			}
			userId := ctx.GetUint("id")
			booking := models.Booking{
				CourtID:  body.CourtID,
				UserID:   userId,
				StartsAt: startsAt,
				Duration: body.Duration,
				Status:   types.BOOKING_PENDING,
				Price:    body.Price,
			}
			var lastResult availability.Result
			db := db.GetDb()
			err = db.Transaction(func(tx *gorm.DB) error {
				// Availability is re-checked here, under the court row lock:
				// the handler-level pre-check endpoint is only a UX hint.
				result, err := checkCourtAvailability(tx, body.CourtID, startsAt, body.Duration, opts, 0)
				if err != nil {
					return err
				}
				lastResult = result
				if !result.Available() {
					return errNotBookable
				}
				if booking.Price == 0 {
					var court models.Court
					if err := tx.Select("price").Where(&models.Court{ID: body.CourtID}).First(&court).Error; err != nil {
						return err
					}
					booking.Price = court.Price * float64(body.Duration) / 60
				}
				return tx.Create(&booking).Error
			})
			if err != nil {
				if errors.Is(err, errNotBookable) {
					availabilityErrorResponse(ctx, lastResult)
					return
				}
				log.Printf("Error creating booking: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			go invalidateReservedTimes(body.CourtID, startsAt.Format(config.DATE_PARSE_FORMAT))
			// A pending booking left unconfirmed at its start time is swept
			// by this one-shot job; the periodic sweep is the fallback.
			go func(id uint, runsAt time.Time) {
				task := models.JobTask{
					Name:    fmt.Sprintf("Booking_%d_Expire", id),
					JobType: "OneTimeJobStartDateTime",
					RunsAt:  runsAt,
					Payload: types.JSONB{"booking_id": id},
				}
				if _, err := task.CreateAndEnqueue(utils.ExpireStalePendingBookings); err != nil {
					log.Printf("Error scheduling expiry for booking %d: %s\n", id, err.Error())
				}
			}(booking.ID, startsAt)
			ctx.JSON(http.StatusCreated, gin.H{"id": booking.ID, "data": booking})
		}).
		PUT("/reservas/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var body types.UpdateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var lastResult availability.Result
			var booking models.Booking
			var oldDay string
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Where(&models.Booking{ID: params.ID}).First(&booking).Error; err != nil {
					return err
				}
				if booking.Status == types.BOOKING_CANCELLED {
					return errors.New("cannot reschedule a cancelled reserva")
				}
				startsAt := booking.StartsAt
				duration := booking.Duration
				if body.StartsAt != "" {
					parsed, err := time.Parse(config.TIME_PARSE_FORMAT, body.StartsAt)
					if err != nil {
						return err
					}
					startsAt = parsed
				}
				if body.Duration > 0 {
					duration = body.Duration
				}
				if startsAt.Equal(booking.StartsAt) && duration == booking.Duration {
					return nil
				}
				// Reschedule revalidates against everything except itself.
				result, err := checkCourtAvailability(tx, booking.CourtID, startsAt, duration, availability.Options{}, booking.ID)
				if err != nil {
					return err
				}
				lastResult = result
				if !result.Available() {
					return errNotBookable
				}
				oldDay = booking.StartsAt.Format(config.DATE_PARSE_FORMAT)
				booking.StartsAt = startsAt
				booking.Duration = duration
				return tx.
					Model(&models.Booking{}).
					Where(&models.Booking{ID: booking.ID}).
					Updates(map[string]any{"starts_at": startsAt, "duration": duration}).
					Error
			})
			if err != nil {
				if errors.Is(err, errNotBookable) {
					availabilityErrorResponse(ctx, lastResult)
					return
				}
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			// Invalidate only after commit, so a concurrent reader cannot
			// re-cache the pre-reschedule slot set.
			if oldDay != "" {
				go invalidateReservedTimes(booking.CourtID, oldDay)
			}
			go invalidateReservedTimes(booking.CourtID, booking.StartsAt.Format(config.DATE_PARSE_FORMAT))
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PUT("/reservas/:id/confirm", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var booking models.Booking
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.
					Where(&models.Booking{ID: params.ID}).
					Preload("Court").
					Preload("User").
					First(&booking).
					Error; err != nil {
					return err
				}
				if !booking.Status.CanTransitionTo(types.BOOKING_CONFIRMED) {
					return errors.New("reserva cannot be confirmed")
				}
				return tx.
					Model(&models.Booking{}).
					Where(&models.Booking{ID: params.ID}).
					Update("status", types.BOOKING_CONFIRMED).
					Error
			})
			if err != nil {
				log.Printf("Could not complete request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			go mailer.SendBookingConfirmation(
				booking.User.Email,
				booking.User.Name,
				booking.Court.Name,
				booking.StartsAt.Format(config.TIME_PARSE_FORMAT),
				booking.Duration,
			)
			ctx.Status(http.StatusNoContent)
		}).
		PUT("/reservas/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			var booking models.Booking
			db := db.GetDb()
			err := db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Where(&models.Booking{ID: params.ID}).First(&booking).Error; err != nil {
					return err
				}
				if !booking.Status.CanTransitionTo(types.BOOKING_CANCELLED) {
					return errors.New("reserva is already cancelled")
				}
				return tx.
					Model(&models.Booking{}).
					Where(&models.Booking{ID: params.ID}).
					Update("status", types.BOOKING_CANCELLED).
					Error
			})
			if err != nil {
				log.Printf("Could not complete request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			go invalidateReservedTimes(booking.CourtID, booking.StartsAt.Format(config.DATE_PARSE_FORMAT))
			ctx.Status(http.StatusNoContent)
		}).
		POST("/reservas/check", func(ctx *gin.Context) {
			var body types.CheckAvailabilityRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			startsAt, err := time.Parse(config.TIME_PARSE_FORMAT, body.StartsAt)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			role := types.Role(ctx.GetString("role"))
			opts := availability.Options{
				IgnoreBusinessHours: body.IgnoreBusinessHours &&
					(role == types.ROLE_ADMIN || role == types.ROLE_OWNER),
			}
			db := db.GetDb()
			result, err := checkCourtAvailability(db, body.CourtID, startsAt, body.Duration, opts, 0)
			if err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{
				"disponible":  result.Available(),
				"code":        result.Code,
				"conflict_id": result.ConflictID,
			}})
		}).
		POST("/reservas/available-times", func(ctx *gin.Context) {
			var body types.AvailableTimesRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if _, err := time.Parse(config.DATE_PARSE_FORMAT, body.Date); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid fecha"})
				return
			}
			key := utils.ReservedTimesCacheKey(body.CourtID, body.Date)
			rd := lib.GetRedisClient()
			if rd != nil {
				if cached, err := rd.Get(context.Background(), key).Result(); err == nil {
					var reserved []string
					if json.Unmarshal([]byte(cached), &reserved) == nil {
						ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"reservedTimes": reserved}})
						return
					}
				}
			}
			db := db.GetDb()
			var court models.Court
			if err := db.Where(&models.Court{ID: body.CourtID}).First(&court).Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "cancha not found"})
				return
			}
			var bookings []models.Booking
			if err := db.
				Model(&models.Booking{}).
				Where(&models.Booking{CourtID: body.CourtID}).
				Scopes(scopes.ActiveBookings, scopes.OnDay(body.Date)).
				Order("starts_at ASC").
				Find(&bookings).
				Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			reserved := reservedSlots(bookings, court.SlotMinutes)
			if rd != nil {
				if payload, err := json.Marshal(reserved); err == nil {
					rd.SetEx(context.Background(), key, string(payload), 5*time.Minute)
				}
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"reservedTimes": reserved}})
		})
	return g
}

// reservedSlots expands each active booking into the slot-start labels it
// occupies, "HH:MM", end exclusive.
func reservedSlots(bookings []models.Booking, slotMinutes uint) []string {
	if slotMinutes == 0 {
		slotMinutes = 30
	}
	step := time.Duration(slotMinutes) * time.Minute
	reserved := make([]string, 0)
	seen := map[string]bool{}
	for _, b := range bookings {
		for t := b.StartsAt; t.Before(b.EndsAt()); t = t.Add(step) {
			label := t.Format(config.TIME_OF_DAY_FORMAT)
			if !seen[label] {
				seen[label] = true
				reserved = append(reserved, label)
			}
		}
	}
	return reserved
}
