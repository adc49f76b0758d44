package scopes

import "gorm.io/gorm"

func WithID(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

func WithVenue(id uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("venue_id = ?", id)
	}
}

func ActiveBookings(db *gorm.DB) *gorm.DB {
	return db.Where("status <> ?", "CANCELLED")
}

func OnDay(day string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("starts_at >= ?::date AND starts_at < ?::date + interval '1 day'", day, day)
	}
}
