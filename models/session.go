package models

import "time"

// Authentication realms. A session belongs to exactly one realm for its whole
// lifetime; a portal-client session can never satisfy a staff guard and vice
// versa.
const (
	RealmStaff  = "staff"
	RealmClient = "client"
)

// Session is the server-held state behind the session cookie. The cookie
// itself only carries a signed token naming the session ID and realm; all
// principal resolution goes through this row.
type Session struct {
	ID    string `gorm:"primaryKey" json:"id"` // opaque UUID
	Realm string `gorm:"not null;index" json:"realm"`

	// Exactly one of these is set, matching Realm.
	UserID          *uint `gorm:"index" json:"user_id,omitempty"`
	PortalAccountID *uint `gorm:"index" json:"portal_account_id,omitempty"`

	UserAgent string `json:"user_agent"`
	IPAddress string `json:"ip_address"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

// Expired reports whether the session is past its TTL.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
