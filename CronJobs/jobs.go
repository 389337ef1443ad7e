package CronJobs

import (
	"fmt"
	"log"
	"time"

	"Rishui/Models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// ExpiryChecker runs the daily sweep that flags businesses whose license
// has passed its expiration date.
type ExpiryChecker struct {
	db             *gorm.DB
	cronScheduler  *cron.Cron
	runImmediately bool
	jobID          cron.EntryID
}

// NewExpiryChecker creates the expiry sweep service.
func NewExpiryChecker(db *gorm.DB, runImmediately bool) *ExpiryChecker {
	return &ExpiryChecker{
		db:             db,
		cronScheduler:  cron.New(cron.WithSeconds()),
		runImmediately: runImmediately,
	}
}

// Start schedules the daily sweep at 02:00.
func (e *ExpiryChecker) Start() error {
	var err error
	e.jobID, err = e.cronScheduler.AddFunc("0 0 2 * * *", func() {
		log.Println("Running scheduled license expiry sweep")
		e.runSweep()
	})
	if err != nil {
		return fmt.Errorf("error scheduling cron job: %w", err)
	}

	e.cronScheduler.Start()
	log.Println("License expiry scheduler started - will run daily at 2:00 AM")

	if e.runImmediately {
		e.runSweep()
	}
	return nil
}

// Stop terminates the scheduler.
func (e *ExpiryChecker) Stop() {
	if e.cronScheduler != nil {
		e.cronScheduler.Stop()
		log.Println("License expiry scheduler stopped")
	}
}

// UpdateSchedule changes the sweep schedule.
// Format: "0 0 2 * * *" = at 02:00:00 every day
func (e *ExpiryChecker) UpdateSchedule(schedule string) error {
	e.cronScheduler.Remove(e.jobID)

	var err error
	e.jobID, err = e.cronScheduler.AddFunc(schedule, func() {
		log.Println("Running scheduled license expiry sweep")
		e.runSweep()
	})
	if err != nil {
		return fmt.Errorf("error updating schedule: %w", err)
	}

	log.Printf("License expiry schedule updated to: %s\n", schedule)
	return nil
}

// RunManualSweep executes the sweep outside the schedule.
func (e *ExpiryChecker) RunManualSweep() {
	log.Println("Running manual license expiry sweep")
	e.runSweep()
}

func (e *ExpiryChecker) runSweep() {
	count, err := SweepExpiredLicenses(e.db)
	if err != nil {
		log.Printf("Error in license expiry sweep: %v\n", err)
		return
	}
	if count == 0 {
		log.Println("No expired licenses found")
	} else {
		log.Printf("Marked %d businesses as renewal_in_progress\n", count)
	}
}

// SweepExpiredLicenses moves licensed businesses whose expiration date has
// passed into renewal_in_progress. Returns the number of rows changed.
func SweepExpiredLicenses(db *gorm.DB) (int, error) {
	result := db.Model(&Models.Business{}).
		Where("status IN ?", []string{"approved", "temporarily_permitted"}).
		Where("expiration_date IS NOT NULL AND expiration_date < ?", time.Now()).
		Update("status", "renewal_in_progress")
	return int(result.RowsAffected), result.Error
}
