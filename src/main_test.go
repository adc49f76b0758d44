package main

import (
	"cbs/src/db"
	"cbs/src/models"
	"cbs/src/types"
	"cbs/src/utils"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	Router *gin.Engine
	Mock   sqlmock.Sqlmock
	Token  string
}

func newMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	d, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: d}), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}
	return gormDB, mock
}

func (s *TestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookabledate", bookableDateValidatorFunc)
		v.RegisterValidation("timeofday", timeOfDayValidatorFunc)
	}

	router := setupRouter()
	guestAuthRoutes(router)
	authorized := router.Group(apiPrefix)
	authorized.Use(authTestMiddleware)
	bookingHandlers(authorized)
	venueHandlers(authorized)
	courtHandlers(authorized)
	userHandlers(authorized)
	movementHandlers(authorized.Group(""))
	s.Router = router

	token, err := utils.GenerateJWT("admin@test.com", 1, types.ROLE_ADMIN)
	if err != nil {
		log.Fatalf("could not sign test token: %s", err)
	}
	s.Token = token
}

// authTestMiddleware skips the user lookup the real middleware performs so
// per-test mock expectations stay about the handler under test. The role can
// be overridden per request through the X-Role header.
func authTestMiddleware(ctx *gin.Context) {
	if !strings.HasPrefix(ctx.Request.Header.Get("Authorization"), "Bearer") {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	role := ctx.Request.Header.Get("X-Role")
	if role == "" {
		role = string(types.ROLE_ADMIN)
	}
	ctx.Set("id", uint(1))
	ctx.Set("email", "admin@test.com")
	ctx.Set("role", role)
}

func (s *TestSuite) SetupTest() {
	d, mock := newMockDB()
	db.NewDB(d)
	s.Mock = mock
}

func (s *TestSuite) request(method, url, body string) *httptest.ResponseRecorder {
	return s.requestAs(types.ROLE_ADMIN, method, url, body)
}

func (s *TestSuite) requestAs(role types.Role, method, url, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.Token))
	req.Header.Set("X-Role", string(role))
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func (s *TestSuite) expectCourtAndVenue() {
	courtRows := sqlmock.NewRows([]string{"id", "venue_id", "price", "slot_minutes"}).
		AddRow(1, 1, 3000.0, 30)
	s.Mock.ExpectQuery(`SELECT (.+) FROM "courts"`).WillReturnRows(courtRows)
	venueRows := sqlmock.NewRows([]string{"id", "open_time", "close_time"}).
		AddRow(1, "08:00", "22:00")
	s.Mock.ExpectQuery(`SELECT (.+) FROM "venues"`).WillReturnRows(venueRows)
}

func (s *TestSuite) expectExistingBooking() {
	bookingRows := sqlmock.NewRows([]string{"id", "court_id", "user_id", "starts_at", "duration", "status"}).
		AddRow(10, 1, 2, time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC), 60, "CONFIRMED")
	s.Mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).WillReturnRows(bookingRows)
}

func (s *TestSuite) TestHealthz() {
	w := s.request(http.MethodGet, "/", "")
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *TestSuite) TestRejectsMissingToken() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservas/own", nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *TestSuite) TestRegister() {
	s.Mock.ExpectBegin()
	s.Mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	s.Mock.ExpectCommit()

	w := s.request(http.MethodPost, "/api/v1/auth/register",
		`{"name":"Juan","email":"juan@test.com","password":"secret123"}`)
	assert.Equal(s.T(), http.StatusCreated, w.Code)
	assert.Equal(s.T(), int64(7), gjson.Get(w.Body.String(), "id").Int())
}

func (s *TestSuite) TestLogin() {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	assert.NoError(s.T(), err)
	userRows := sqlmock.NewRows([]string{"id", "email", "role", "password_hash"}).
		AddRow(1, "admin@test.com", "ADMIN", string(hash))
	s.Mock.ExpectQuery(`SELECT (.+) FROM "users"`).WillReturnRows(userRows)
	s.Mock.ExpectBegin()
	s.Mock.ExpectExec(`UPDATE "users"`).WillReturnResult(sqlmock.NewResult(1, 1))
	s.Mock.ExpectCommit()

	w := s.request(http.MethodPost, "/api/v1/auth/login",
		`{"email":"admin@test.com","password":"secret123"}`)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.NotEmpty(s.T(), gjson.Get(w.Body.String(), "token").String())
}

func (s *TestSuite) TestLoginBadPassword() {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	assert.NoError(s.T(), err)
	userRows := sqlmock.NewRows([]string{"id", "email", "role", "password_hash"}).
		AddRow(1, "admin@test.com", "ADMIN", string(hash))
	s.Mock.ExpectQuery(`SELECT (.+) FROM "users"`).WillReturnRows(userRows)

	w := s.request(http.MethodPost, "/api/v1/auth/login",
		`{"email":"admin@test.com","password":"wrong-password"}`)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *TestSuite) TestCheckConflict() {
	s.expectCourtAndVenue()
	s.expectExistingBooking()

	w := s.request(http.MethodPost, "/api/v1/reservas/check",
		`{"cancha":1,"fecha_hora":"2030-06-01 18:30:00 +00:00","duracion":60}`)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body := w.Body.String()
	assert.False(s.T(), gjson.Get(body, "data.disponible").Bool())
	assert.Equal(s.T(), "CONFLICT", gjson.Get(body, "data.code").String())
	assert.Equal(s.T(), int64(10), gjson.Get(body, "data.conflict_id").Int())
}

func (s *TestSuite) TestCheckBackToBackIsAvailable() {
	s.expectCourtAndVenue()
	s.expectExistingBooking()

	w := s.request(http.MethodPost, "/api/v1/reservas/check",
		`{"cancha":1,"fecha_hora":"2030-06-01 19:00:00 +00:00","duracion":60}`)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(s.T(), gjson.Get(body, "data.disponible").Bool())
	assert.Equal(s.T(), "AVAILABLE", gjson.Get(body, "data.code").String())
}

func (s *TestSuite) TestCheckOutsideBusinessHours() {
	s.expectCourtAndVenue()
	s.expectExistingBooking()

	w := s.request(http.MethodPost, "/api/v1/reservas/check",
		`{"cancha":1,"fecha_hora":"2030-06-01 22:00:00 +00:00","duracion":30}`)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body := w.Body.String()
	assert.False(s.T(), gjson.Get(body, "data.disponible").Bool())
	assert.Equal(s.T(), "OUTSIDE_BUSINESS_HOURS", gjson.Get(body, "data.code").String())
}

func (s *TestSuite) TestCreateBookingConflictRollsBack() {
	s.Mock.ExpectBegin()
	s.expectCourtAndVenue()
	s.expectExistingBooking()
	s.Mock.ExpectRollback()

	w := s.request(http.MethodPost, "/api/v1/reservas",
		`{"cancha":1,"fecha_hora":"2030-06-01 18:30:00 +00:00","duracion":60,"precio":3000}`)
	assert.Equal(s.T(), http.StatusConflict, w.Code)
	body := w.Body.String()
	assert.Equal(s.T(), "CONFLICT", gjson.Get(body, "code").String())
	assert.Equal(s.T(), int64(10), gjson.Get(body, "conflict_id").Int())
}

func (s *TestSuite) TestCreateBookingRejectsPastDate() {
	w := s.request(http.MethodPost, "/api/v1/reservas",
		`{"cancha":1,"fecha_hora":"2020-06-01 18:30:00 +00:00","duracion":60,"precio":3000}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *TestSuite) TestFrequentClients() {
	bookingRows := sqlmock.NewRows([]string{"id", "court_id", "user_id", "starts_at", "duration", "status", "price"}).
		AddRow(1, 1, 2, time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC), 60, "CONFIRMED", 3000.0).
		AddRow(2, 1, 2, time.Date(2030, 6, 2, 18, 0, 0, 0, time.UTC), 60, "CONFIRMED", 3000.0).
		AddRow(3, 1, 5, time.Date(2030, 6, 3, 18, 0, 0, 0, time.UTC), 60, "CANCELLED", 3000.0)
	s.Mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).WillReturnRows(bookingRows)

	w := s.request(http.MethodGet, "/api/v1/reservas/frequent-clients", "")
	assert.Equal(s.T(), http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(s.T(), int64(2), gjson.Get(body, "count").Int())
	assert.Equal(s.T(), int64(2), gjson.Get(body, "data.0.userId").Int())
	assert.Equal(s.T(), int64(2), gjson.Get(body, "data.0.totalBookings").Int())
	assert.Equal(s.T(), 6000.0, gjson.Get(body, "data.0.totalSpent").Float())
}

func (s *TestSuite) TestListBookingsForbiddenForUser() {
	w := s.requestAs(types.ROLE_USER, http.MethodGet, "/api/v1/reservas", "")
	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *TestSuite) TestGetBookingHidesOtherUsersRows() {
	s.Mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "court_id", "user_id", "starts_at", "duration", "status"}))

	w := s.requestAs(types.ROLE_USER, http.MethodGet, "/api/v1/reservas/10", "")
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *TestSuite) TestUpdateVenueForbiddenForOtherOwner() {
	s.Mock.ExpectBegin()
	venueRows := sqlmock.NewRows([]string{"id", "owner_id", "open_time", "close_time"}).
		AddRow(5, 99, "08:00", "22:00")
	s.Mock.ExpectQuery(`SELECT (.+) FROM "venues"`).WillReturnRows(venueRows)
	s.Mock.ExpectRollback()

	w := s.requestAs(types.ROLE_OWNER, http.MethodPut, "/api/v1/predios/5",
		`{"close_time":"23:00"}`)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *TestSuite) TestDeleteCourtForbiddenForOtherOwner() {
	s.Mock.ExpectBegin()
	courtRows := sqlmock.NewRows([]string{"id", "venue_id"}).AddRow(3, 5)
	s.Mock.ExpectQuery(`SELECT (.+) FROM "courts"`).WillReturnRows(courtRows)
	venueRows := sqlmock.NewRows([]string{"id", "owner_id"}).AddRow(5, 99)
	s.Mock.ExpectQuery(`SELECT (.+) FROM "venues"`).WillReturnRows(venueRows)
	s.Mock.ExpectRollback()

	w := s.requestAs(types.ROLE_OWNER, http.MethodDelete, "/api/v1/canchas/3", "")
	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *TestSuite) TestListUsersForbiddenForOwner() {
	w := s.requestAs(types.ROLE_OWNER, http.MethodGet, "/api/v1/usuarios", "")
	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *TestSuite) TestCreateCategory() {
	s.Mock.ExpectBegin()
	s.Mock.ExpectQuery(`INSERT INTO "categories"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	s.Mock.ExpectCommit()

	w := s.request(http.MethodPost, "/api/v1/movimientos/categorias",
		`{"nombre":"Equipamiento","tipo":"EGRESO","descripcion":"Compra de equipamiento"}`)
	assert.Equal(s.T(), http.StatusCreated, w.Code)
	assert.Equal(s.T(), int64(9), gjson.Get(w.Body.String(), "id").Int())
}

func (s *TestSuite) TestDeleteCategoryDeactivates() {
	s.Mock.ExpectBegin()
	s.Mock.ExpectExec(`UPDATE "categories"`).WillReturnResult(sqlmock.NewResult(0, 1))
	s.Mock.ExpectCommit()

	w := s.request(http.MethodDelete, "/api/v1/movimientos/categorias/3", "")
	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *TestSuite) TestCreateBookingRejectsOverlongDuration() {
	w := s.request(http.MethodPost, "/api/v1/reservas",
		`{"cancha":1,"fecha_hora":"2030-06-01 18:30:00 +00:00","duracion":2000,"precio":3000}`)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *TestSuite) TestRescheduleBooking() {
	s.Mock.ExpectBegin()
	s.expectExistingBooking()
	s.expectCourtAndVenue()
	s.Mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "court_id", "user_id", "starts_at", "duration", "status"}).
			AddRow(10, 1, 2, time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC), 60, "CONFIRMED"))
	s.Mock.ExpectExec(`UPDATE "bookings"`).WillReturnResult(sqlmock.NewResult(0, 1))
	s.Mock.ExpectCommit()

	w := s.request(http.MethodPut, "/api/v1/reservas/10",
		`{"fecha_hora":"2030-06-01 15:00:00 +00:00"}`)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "2030-06-01T15:00:00Z", gjson.Get(w.Body.String(), "data.fecha_hora").String())
}

// Runs last so the post-create background job cannot race the other tests'
// mock expectations.
func (s *TestSuite) TestZCreateBooking() {
	s.Mock.ExpectBegin()
	s.expectCourtAndVenue()
	s.Mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "court_id", "user_id", "starts_at", "duration", "status"}))
	s.Mock.ExpectQuery(`INSERT INTO "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	s.Mock.ExpectCommit()

	w := s.request(http.MethodPost, "/api/v1/reservas",
		`{"cancha":1,"fecha_hora":"2030-06-01 18:30:00 +00:00","duracion":60,"precio":3000}`)
	assert.Equal(s.T(), http.StatusCreated, w.Code)
	body := w.Body.String()
	assert.Equal(s.T(), int64(42), gjson.Get(body, "id").Int())
	assert.Equal(s.T(), "PENDING", gjson.Get(body, "data.estado").String())
	time.Sleep(100 * time.Millisecond)
}

func TestMainSuite(t *testing.T) {
	suite.Run(t, new(TestSuite))
}

func TestReservedSlots(t *testing.T) {
	bookings := []models.Booking{
		{ID: 1, StartsAt: time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC), Duration: 60, Status: types.BOOKING_CONFIRMED},
		{ID: 2, StartsAt: time.Date(2030, 6, 1, 20, 0, 0, 0, time.UTC), Duration: 30, Status: types.BOOKING_PENDING},
	}
	got := reservedSlots(bookings, 30)
	assert.Equal(t, []string{"18:00", "18:30", "20:00"}, got)
}
