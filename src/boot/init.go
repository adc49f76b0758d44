package boot

import (
	"cbs/src/db"
	"cbs/src/lib"
	"cbs/src/models"
	"cbs/src/types"
	"cbs/src/utils"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Venue{},
		&models.Court{},
		&models.Booking{},
		&models.CashMovement{},
		&models.Category{},
		&models.JobTask{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitScheduler() {
	_, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	// Pending bookings left unconfirmed past their start are cancelled here
	// rather than per-booking jobs, so a missed tick self-heals on the next.
	if _, err := lib.CreateCronJob(utils.ExpireStalePendingBookings, 5*time.Minute); err != nil {
		log.Printf("Error scheduling expiry job: %s\n", err.Error())
	}

	go RecoverQueuedJobs()
}

// RecoverQueuedJobs re-enqueues persisted one-shot jobs that were still
// pending when the process last stopped. Rows whose run time already passed
// are marked expired; the periodic expiry sweep covers whatever they missed.
func RecoverQueuedJobs() {
	gdb := db.GetDb()
	var tasks []models.JobTask
	if err := gdb.
		Model(&models.JobTask{}).
		Where("status = ?", "pending").
		Find(&tasks).
		Error; err != nil {
		log.Printf("Error loading queued jobs: %s\n", err.Error())
		return
	}
	now := time.Now()
	for _, task := range tasks {
		if task.RunsAt.Before(now) {
			if err := gdb.Model(&models.JobTask{}).Where("id = ?", task.ID).Update("status", "expired").Error; err != nil {
				log.Printf("Could not expire job %s: %s\n", task.ID, err.Error())
			}
			continue
		}
		id := task.ID
		_, err := lib.CreateOneTimeCronJob(
			gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(task.RunsAt)),
			gocron.NewTask(func() {
				utils.ExpireStalePendingBookings()
				if err := gdb.Model(&models.JobTask{}).Where("id = ?", id).Update("status", "done").Error; err != nil {
					log.Printf("Could not mark job %s done: %s\n", id, err.Error())
				}
			}),
		)
		if err != nil {
			log.Printf("Error re-enqueueing job %s: %s\n", task.ID, err.Error())
		}
	}
	if len(tasks) > 0 {
		log.Printf("Recovered %d queued jobs\n", len(tasks))
	}
}

// SeedCategories inserts the default ledger categories on first boot.
func SeedCategories() {
	gdb := db.GetDb()
	var count int64
	if err := gdb.Model(&models.Category{}).Count(&count).Error; err != nil || count > 0 {
		return
	}
	categories := []models.Category{
		{Name: "Alquiler de Cancha", Kind: types.MOVEMENT_INCOME, Description: "Ingresos por alquiler de canchas"},
		{Name: "Venta de Bebidas", Kind: types.MOVEMENT_INCOME, Description: "Ingresos por venta de bebidas"},
		{Name: "Mantenimiento", Kind: types.MOVEMENT_EXPENSE, Description: "Gastos de mantenimiento"},
		{Name: "Servicios", Kind: types.MOVEMENT_EXPENSE, Description: "Pago de servicios (luz, agua, etc)"},
	}
	if err := gdb.Create(&categories).Error; err != nil {
		log.Printf("Error seeding categories: %s\n", err.Error())
	}
}
