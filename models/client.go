package models

import (
	"time"

	"gorm.io/gorm"
)

// Client represents a confirmed client (a converted lead or a directly
// created account). Contact and address fields deliberately share json names
// with Lead: the lead-to-client synchronizer copies them by name.
type Client struct {
	gorm.Model

	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `gorm:"index" json:"email"`
	Phone          string `json:"phone"`
	SecondaryPhone string `json:"secondary_phone"`

	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`

	CompanyName string     `json:"company_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`

	Status string `gorm:"default:'active'" json:"status"` // active, inactive
	Notes  string `gorm:"type:text" json:"notes"`

	AssignedAgentID uint `gorm:"index" json:"assigned_agent_id"`

	// Relations
	AssignedAgent *User          `gorm:"foreignKey:AssignedAgentID" json:"assigned_agent,omitempty"`
	PortalAccount *PortalAccount `gorm:"foreignKey:ClientID" json:"portal_account,omitempty"`
	Policies      []Policy       `gorm:"foreignKey:ClientID" json:"policies,omitempty"`
	Quotes        []Quote        `gorm:"foreignKey:ClientID" json:"quotes,omitempty"`
	Documents     []Document     `gorm:"foreignKey:ClientID" json:"documents,omitempty"`
}

// DisplayName returns the client's name for emails and portal pages.
func (c *Client) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.FirstName + " " + c.LastName
}

// PortalAccount holds portal-client credentials. It is a separate credential
// table from staff users: the two realms must never share a lookup.
type PortalAccount struct {
	gorm.Model

	ClientID     uint   `gorm:"uniqueIndex;not null" json:"client_id"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	Client Client `json:"client,omitempty"`
}
