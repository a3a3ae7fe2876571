package models

import "gorm.io/gorm"

// Lead statuses
const (
	LeadStatusNew       = "new"
	LeadStatusContacted = "contacted"
	LeadStatusQuoted    = "quoted"
	LeadStatusConverted = "converted"
	LeadStatusLost      = "lost"
)

// Lead represents a prospective client. Once converted it carries a reference
// to exactly one Client record; contact-field updates after conversion are
// propagated to that record by the synchronizer.
type Lead struct {
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

	Source string `json:"source"` // referral, web, walk_in, purchased_list
	Status string `gorm:"default:'new'" json:"status"`
	Notes  string `gorm:"type:text" json:"notes"`

	AssignedAgentID uint `gorm:"index;not null" json:"assigned_agent_id"`

	// Set on conversion, never by the synchronizer.
	ClientID *uint `gorm:"index" json:"client_id,omitempty"`

	// Relations
	AssignedAgent *User   `gorm:"foreignKey:AssignedAgentID" json:"assigned_agent,omitempty"`
	Client        *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Quotes        []Quote `gorm:"foreignKey:LeadID" json:"quotes,omitempty"`
}
