package worker

import (
	"log"
	"os"
	"testing"
	"time"

	"brokercrm/config"
	"brokercrm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newWorkerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}, &models.Session{}))
	return db
}

func pastDue() *time.Time {
	due := time.Now().Add(-time.Hour)
	return &due
}

func TestReminderMarksTaskWithoutAssigneeEmailOnce(t *testing.T) {
	db := newWorkerTestDB(t)
	config.AppConfig.SMTP.Host = ""

	user := &models.User{Username: "agent1", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	task := &models.Task{Title: "call back", AssignedToID: user.ID, DueAt: pastDue()}
	require.NoError(t, db.Create(task).Error)

	w := NewReminderWorker(db, log.New(os.Stdout, "TEST: ", log.LstdFlags))
	w.processDueTasks()

	var got models.Task
	require.NoError(t, db.First(&got, task.ID).Error)
	assert.True(t, got.ReminderSent)

	// A second pass finds nothing to do
	require.NoError(t, db.Model(&got).Update("title", "call back again").Error)
	w.processDueTasks()
	var again models.Task
	require.NoError(t, db.First(&again, task.ID).Error)
	assert.True(t, again.ReminderSent)
}

func TestReminderRetriesWhenSendFails(t *testing.T) {
	db := newWorkerTestDB(t)
	config.AppConfig.SMTP.Host = ""

	user := &models.User{
		Username: "agent2", Email: "agent2@example.com",
		PasswordHash: "x", IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	task := &models.Task{Title: "renewal review", AssignedToID: user.ID, DueAt: pastDue()}
	require.NoError(t, db.Create(task).Error)

	w := NewReminderWorker(db, log.New(os.Stdout, "TEST: ", log.LstdFlags))
	w.processDueTasks()

	// Send failed (no SMTP), so the flag must stay unset for the next tick
	var got models.Task
	require.NoError(t, db.First(&got, task.ID).Error)
	assert.False(t, got.ReminderSent)
}

func TestReminderSkipsFutureAndCompletedTasks(t *testing.T) {
	db := newWorkerTestDB(t)

	user := &models.User{Username: "agent3", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)

	future := time.Now().Add(time.Hour)
	notDue := &models.Task{Title: "later", AssignedToID: user.ID, DueAt: &future}
	require.NoError(t, db.Create(notDue).Error)
	done := &models.Task{Title: "done", AssignedToID: user.ID, DueAt: pastDue(), Completed: true}
	require.NoError(t, db.Create(done).Error)

	w := NewReminderWorker(db, log.New(os.Stdout, "TEST: ", log.LstdFlags))
	w.processDueTasks()

	var tasks []models.Task
	require.NoError(t, db.Find(&tasks).Error)
	for _, task := range tasks {
		assert.False(t, task.ReminderSent, "task %q must not be reminded", task.Title)
	}
}

func TestSessionWorkerPurgesOnlyExpiredRows(t *testing.T) {
	db := newWorkerTestDB(t)

	live := &models.Session{
		ID: "live-session", Realm: models.RealmStaff,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, db.Create(live).Error)
	dead := &models.Session{
		ID: "dead-session", Realm: models.RealmClient,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(dead).Error)

	w := NewSessionWorker(db, log.New(os.Stdout, "TEST: ", log.LstdFlags))
	w.purgeExpired()

	var ids []string
	require.NoError(t, db.Model(&models.Session{}).Pluck("id", &ids).Error)
	assert.Equal(t, []string{"live-session"}, ids)
}
