// Package FieldSync implements the offline-capable submission pipeline used
// by the field inspection client: a local draft store, a durable submission
// queue, and a sync driver that drains the queue when connectivity returns.
package FieldSync

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// LocalDraft is an in-progress report form, saved so a crash or battery
// death on site loses nothing.
type LocalDraft struct {
	Key     string         `json:"key" gorm:"primaryKey"`
	SavedAt time.Time      `json:"savedAt"`
	Payload datatypes.JSON `json:"payload"`
}

// QueuedSubmission is a finished report waiting for connectivity. LocalID
// deduplicates retries of the same submission; DraftKey names the draft to
// clear once the server confirms delivery.
type QueuedSubmission struct {
	ID       uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	LocalID  string         `json:"localId" gorm:"uniqueIndex"`
	DraftKey string         `json:"draftKey"`
	QueuedAt time.Time      `json:"queuedAt"`
	Payload  datatypes.JSON `json:"payload"`
}

// DeadLetter records a submission the server permanently refused, kept for
// manual inspection instead of silent loss.
type DeadLetter struct {
	ID         uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	LocalID    string         `json:"localId"`
	DraftKey   string         `json:"draftKey"`
	QueuedAt   time.Time      `json:"queuedAt"`
	FailedAt   time.Time      `json:"failedAt"`
	StatusCode int            `json:"statusCode"`
	Payload    datatypes.JSON `json:"payload"`
}

// Store persists drafts and the submission queue in a local sqlite file.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (or creates) the local database at path. Use ":memory:"
// in tests.
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	if err := db.AutoMigrate(&LocalDraft{}, &QueuedSubmission{}, &DeadLetter{}); err != nil {
		return nil, fmt.Errorf("migrating local store: %w", err)
	}
	return &Store{db: db}, nil
}

// DraftKey builds the draft key for a user working on a given business.
// Business id zero means a new, not yet registered business.
func DraftKey(userID uint, businessID uint) string {
	return fmt.Sprintf("draft_%d_%d", userID, businessID)
}

// SaveDraft upserts the draft under key.
func (s *Store) SaveDraft(key string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}

	draft := LocalDraft{
		Key:     key,
		SavedAt: time.Now(),
		Payload: datatypes.JSON(raw),
	}
	return s.db.Save(&draft).Error
}

// LoadDraft returns the draft under key, or nil when none exists.
func (s *Store) LoadDraft(key string) (*LocalDraft, error) {
	var draft LocalDraft
	err := s.db.First(&draft, "key = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

// ClearDraft removes the draft under key. Clearing a missing draft is not
// an error.
func (s *Store) ClearDraft(key string) error {
	return s.db.Delete(&LocalDraft{}, "key = ?", key).Error
}

// Enqueue appends a submission to the queue. Re-enqueueing the same LocalID
// replaces the stored payload instead of duplicating the entry.
func (s *Store) Enqueue(sub QueuedSubmission) error {
	if sub.QueuedAt.IsZero() {
		sub.QueuedAt = time.Now()
	}

	var existing QueuedSubmission
	err := s.db.First(&existing, "local_id = ?", sub.LocalID).Error
	if err == nil {
		existing.DraftKey = sub.DraftKey
		existing.Payload = sub.Payload
		return s.db.Save(&existing).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return s.db.Create(&sub).Error
}

// Queue returns the queued submissions oldest first.
func (s *Store) Queue() ([]QueuedSubmission, error) {
	var queue []QueuedSubmission
	err := s.db.Order("id ASC").Find(&queue).Error
	return queue, err
}

// QueueLength returns the number of pending submissions.
func (s *Store) QueueLength() (int, error) {
	var count int64
	err := s.db.Model(&QueuedSubmission{}).Count(&count).Error
	return int(count), err
}

// Remove deletes one queued submission.
func (s *Store) Remove(id uint) error {
	return s.db.Delete(&QueuedSubmission{}, id).Error
}

// MoveToDeadLetter removes the submission from the queue and records it in
// the dead letter table with the status the server answered.
func (s *Store) MoveToDeadLetter(sub QueuedSubmission, statusCode int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&QueuedSubmission{}, sub.ID).Error; err != nil {
			return err
		}
		return tx.Create(&DeadLetter{
			LocalID:    sub.LocalID,
			DraftKey:   sub.DraftKey,
			QueuedAt:   sub.QueuedAt,
			FailedAt:   time.Now(),
			StatusCode: statusCode,
			Payload:    sub.Payload,
		}).Error
	})
}

// DeadLetters returns the permanently failed submissions, newest first.
func (s *Store) DeadLetters() ([]DeadLetter, error) {
	var letters []DeadLetter
	err := s.db.Order("failed_at DESC").Find(&letters).Error
	return letters, err
}
