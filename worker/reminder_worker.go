package worker

import (
	"context"
	"log"
	"time"

	"brokercrm/models"
	"brokercrm/utils"

	"gorm.io/gorm"
)

// ReminderWorker scans for tasks that are due and emails the assigned staff
// member once per task.
type ReminderWorker struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Mailer   *utils.Mailer
	Interval time.Duration
}

func NewReminderWorker(db *gorm.DB, logger *log.Logger) *ReminderWorker {
	return &ReminderWorker{
		DB:       db,
		Logger:   logger,
		Mailer:   utils.NewMailer(),
		Interval: 1 * time.Minute,
	}
}

// Start runs the reminder loop until the context is cancelled.
func (w *ReminderWorker) Start(ctx context.Context) {
	w.Logger.Println("Starting task reminder worker...")

	// Let the server finish booting before the first scan
	select {
	case <-time.After(10 * time.Second):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.processDueTasks()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Println("Task reminder worker stopped")
			return
		case <-ticker.C:
			w.processDueTasks()
		}
	}
}

func (w *ReminderWorker) processDueTasks() {
	var tasks []models.Task
	err := w.DB.Preload("AssignedTo").
		Where("completed = ? AND reminder_sent = ? AND due_at IS NOT NULL AND due_at <= ?",
			false, false, time.Now()).
		Limit(50).
		Find(&tasks).Error
	if err != nil {
		w.Logger.Printf("Failed to load due tasks: %v", err)
		return
	}

	for _, task := range tasks {
		w.remind(task)
	}
}

func (w *ReminderWorker) remind(task models.Task) {
	if task.AssignedTo == nil || task.AssignedTo.Email == "" {
		w.Logger.Printf("Task %d has no assignee email, skipping reminder", task.ID)
	} else {
		err := w.Mailer.SendTaskReminder(
			task.AssignedTo.Email,
			task.AssignedTo.FirstName,
			task.Title,
			task.Description,
			*task.DueAt,
		)
		if err != nil {
			// Leave reminder_sent unset so the next tick retries
			w.Logger.Printf("Failed to send reminder for task %d: %v", task.ID, err)
			return
		}
	}

	if err := w.DB.Model(&models.Task{}).Where("id = ?", task.ID).
		Update("reminder_sent", true).Error; err != nil {
		w.Logger.Printf("Failed to mark reminder sent for task %d: %v", task.ID, err)
	}
}
