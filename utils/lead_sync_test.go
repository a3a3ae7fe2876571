package utils

import (
	"log"
	"os"
	"testing"

	"brokercrm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSyncTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Lead{}, &models.Client{}))
	return db
}

func newSyncer(db *gorm.DB) *LeadSyncer {
	return NewLeadSyncer(db, log.New(os.Stdout, "TEST: ", log.LstdFlags))
}

func linkedLeadAndClient(t *testing.T, db *gorm.DB) (*models.Lead, *models.Client) {
	t.Helper()
	client := &models.Client{
		FirstName:       "Dana",
		LastName:        "Reyes",
		Email:           "dana@example.com",
		Phone:           "555-0100",
		City:            "Austin",
		Status:          "active",
		Notes:           "prefers email",
		AssignedAgentID: 1,
	}
	require.NoError(t, db.Create(client).Error)

	lead := &models.Lead{
		FirstName:       "Dana",
		LastName:        "Reyes",
		Email:           "dana@example.com",
		Status:          models.LeadStatusConverted,
		AssignedAgentID: 1,
		ClientID:        &client.ID,
	}
	require.NoError(t, db.Create(lead).Error)
	return lead, client
}

func TestSyncCopiesMirroredFields(t *testing.T) {
	db := newSyncTestDB(t)
	lead, client := linkedLeadAndClient(t, db)

	err := newSyncer(db).SyncLeadToClient(lead, map[string]interface{}{
		"phone":         "555-0199",
		"address_line1": "12 Oak St",
		"city":          "Dallas",
	})
	require.NoError(t, err)

	var got models.Client
	require.NoError(t, db.First(&got, client.ID).Error)
	assert.Equal(t, "555-0199", got.Phone)
	assert.Equal(t, "12 Oak St", got.AddressLine1)
	assert.Equal(t, "Dallas", got.City)
	assert.Equal(t, "Dana", got.FirstName)
}

func TestSyncIgnoresNonMirroredFields(t *testing.T) {
	db := newSyncTestDB(t)
	lead, client := linkedLeadAndClient(t, db)

	err := newSyncer(db).SyncLeadToClient(lead, map[string]interface{}{
		"status":            models.LeadStatusLost,
		"notes":             "went with a competitor",
		"source":            "referral",
		"assigned_agent_id": uint(9),
		"phone":             "555-0142",
	})
	require.NoError(t, err)

	var got models.Client
	require.NoError(t, db.First(&got, client.ID).Error)
	assert.Equal(t, "555-0142", got.Phone)
	assert.Equal(t, "active", got.Status)
	assert.Equal(t, "prefers email", got.Notes)
	assert.Equal(t, uint(1), got.AssignedAgentID)
}

func TestSyncNoLinkedClientIsNoOp(t *testing.T) {
	db := newSyncTestDB(t)
	lead := &models.Lead{Email: "solo@example.com", Status: models.LeadStatusNew, AssignedAgentID: 1}
	require.NoError(t, db.Create(lead).Error)

	err := newSyncer(db).SyncLeadToClient(lead, map[string]interface{}{"phone": "555-0101"})
	assert.NoError(t, err)
}

func TestSyncNoMirroredChangesIsNoOp(t *testing.T) {
	db := newSyncTestDB(t)
	lead, client := linkedLeadAndClient(t, db)

	before := client.UpdatedAt
	err := newSyncer(db).SyncLeadToClient(lead, map[string]interface{}{
		"status": models.LeadStatusContacted,
		"notes":  "called twice",
	})
	require.NoError(t, err)

	var got models.Client
	require.NoError(t, db.First(&got, client.ID).Error)
	assert.WithinDuration(t, before, got.UpdatedAt, 0, "client row must not be touched")
}

func TestSyncAbsentFieldsAreNotCleared(t *testing.T) {
	db := newSyncTestDB(t)
	lead, client := linkedLeadAndClient(t, db)

	// Only phone is in the payload; email must survive untouched.
	err := newSyncer(db).SyncLeadToClient(lead, map[string]interface{}{"phone": "555-0177"})
	require.NoError(t, err)

	var got models.Client
	require.NoError(t, db.First(&got, client.ID).Error)
	assert.Equal(t, "dana@example.com", got.Email)
	assert.Equal(t, "555-0177", got.Phone)
}

func TestSyncIsIdempotent(t *testing.T) {
	db := newSyncTestDB(t)
	lead, client := linkedLeadAndClient(t, db)
	syncer := newSyncer(db)

	changed := map[string]interface{}{"phone": "555-0123", "state": "TX"}
	require.NoError(t, syncer.SyncLeadToClient(lead, changed))

	var first models.Client
	require.NoError(t, db.First(&first, client.ID).Error)

	require.NoError(t, syncer.SyncLeadToClient(lead, changed))

	var second models.Client
	require.NoError(t, db.First(&second, client.ID).Error)
	assert.Equal(t, first.Phone, second.Phone)
	assert.Equal(t, first.State, second.State)
}

func TestSyncDeletedClientReturnsError(t *testing.T) {
	db := newSyncTestDB(t)
	lead, client := linkedLeadAndClient(t, db)
	require.NoError(t, db.Unscoped().Delete(client).Error)

	err := newSyncer(db).SyncLeadToClient(lead, map[string]interface{}{"phone": "555-0188"})
	assert.ErrorIs(t, err, ErrClientGone)
}
