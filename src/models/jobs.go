package models

import (
	"cbs/src/db"
	"cbs/src/lib"
	"cbs/src/types"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobTask persists one-shot scheduler jobs so they survive a restart; boot
// re-enqueues every pending row whose run time is still in the future.
type JobTask struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	Name    string      `json:"-"`
	JobType string      `json:"-"`
	RunsAt  time.Time   `json:"-"`
	Payload types.JSONB `gorm:"type:jsonb" json:"-"`
	Status  string      `gorm:"default:'pending'" json:"-"`
}

func (j *JobTask) CreateAndEnqueue(handler func()) (string, error) {
	var jobID string
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		sid := uuid.New()
		j.ID = sid
		if err := tx.Create(j).Error; err != nil {
			return err
		}
		_, err := lib.CreateOneTimeCronJob(
			gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(j.RunsAt)),
			gocron.NewTask(func() {
				handler()
				if err := db.Model(&JobTask{}).Where("id = ?", sid).Update("status", "done").Error; err != nil {
					log.Printf("Could not mark job %s done: %s\n", sid, err.Error())
				}
			}),
		)
		if err != nil {
			return err
		}
		jobID = sid.String()
		return nil
	})
	if err != nil {
		return "", err
	}
	log.Printf("Created schedule for job %s with name %s at %s\n", jobID, j.Name, j.RunsAt)
	return jobID, nil
}
