package utils

import (
	"errors"
	"log"

	"brokercrm/models"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrClientGone is returned when the linked client row disappeared between
// the lead update and the sync write.
var ErrClientGone = errors.New("linked client record no longer exists")

// leadClientMirroredFields is the explicit allowlist of fields copied from a
// lead to its linked client. Keys are the json field names shared by both
// models; status, notes, source and agent assignment are deliberately absent.
var leadClientMirroredFields = map[string]bool{
	"first_name":      true,
	"last_name":       true,
	"email":           true,
	"phone":           true,
	"secondary_phone": true,
	"address_line1":   true,
	"address_line2":   true,
	"city":            true,
	"state":           true,
	"postal_code":     true,
}

// LeadSyncer propagates lead contact updates to the linked client record.
type LeadSyncer struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewLeadSyncer(db *gorm.DB, logger *log.Logger) *LeadSyncer {
	return &LeadSyncer{DB: db, Logger: logger}
}

// SyncLeadToClient applies the mirrored subset of changed fields to the
// client linked from lead. changed holds exactly the fields present in the
// update payload; absent fields are never treated as cleared. The call is a
// no-op when the lead has no linked client or when no changed field is on the
// allowlist, and it is idempotent: re-applying the same update leaves the
// client unchanged.
//
// The caller's lead write has already committed by the time this runs, so a
// failure here must never unwind it; errors are reported back for the caller
// to attach as a warning.
func (ls *LeadSyncer) SyncLeadToClient(lead *models.Lead, changed map[string]interface{}) error {
	if lead.ClientID == nil {
		return nil
	}

	updates := make(map[string]interface{})
	for field, value := range changed {
		if leadClientMirroredFields[field] {
			updates[field] = value
		}
	}
	if len(updates) == 0 {
		return nil
	}

	result := ls.DB.Model(&models.Client{}).Where("id = ?", *lead.ClientID).Updates(updates)
	if result.Error != nil {
		ls.reportFailure(lead, updates, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		ls.reportFailure(lead, updates, ErrClientGone)
		return ErrClientGone
	}

	ls.Logger.Printf("synced lead %d to client %d (%d fields)", lead.ID, *lead.ClientID, len(updates))
	return nil
}

func (ls *LeadSyncer) reportFailure(lead *models.Lead, updates map[string]interface{}, err error) {
	logrus.WithFields(logrus.Fields{
		"lead_id":   lead.ID,
		"client_id": *lead.ClientID,
		"fields":    len(updates),
	}).WithError(err).Error("lead-to-client sync failed")

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", "lead_sync")
		scope.SetExtra("lead_id", lead.ID)
		scope.SetExtra("client_id", *lead.ClientID)
		sentry.CaptureException(err)
	})
}
