package worker

import (
	"context"
	"log"
	"time"

	"brokercrm/models"

	"gorm.io/gorm"
)

// SessionWorker purges expired session rows. Expired sessions are already
// rejected at resolve time; this keeps the table from growing without bound.
type SessionWorker struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Interval time.Duration
}

func NewSessionWorker(db *gorm.DB, logger *log.Logger) *SessionWorker {
	return &SessionWorker{
		DB:       db,
		Logger:   logger,
		Interval: 1 * time.Hour,
	}
}

func (w *SessionWorker) Start(ctx context.Context) {
	w.Logger.Println("Starting session cleanup worker...")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.purgeExpired()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Println("Session cleanup worker stopped")
			return
		case <-ticker.C:
			w.purgeExpired()
		}
	}
}

func (w *SessionWorker) purgeExpired() {
	result := w.DB.Where("expires_at <= ?", time.Now()).Delete(&models.Session{})
	if result.Error != nil {
		w.Logger.Printf("Failed to purge expired sessions: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		w.Logger.Printf("Purged %d expired sessions", result.RowsAffected)
	}
}
