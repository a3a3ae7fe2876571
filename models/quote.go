package models

import (
	"time"

	"gorm.io/gorm"
)

// Quote statuses
const (
	QuoteStatusDraft     = "draft"
	QuoteStatusPresented = "presented"
	QuoteStatusAccepted  = "accepted"
	QuoteStatusDeclined  = "declined"
)

// Quote represents a carrier quote prepared for a lead or an existing client.
// Exactly one of LeadID/ClientID is expected to be set.
type Quote struct {
	gorm.Model

	LeadID   *uint `gorm:"index" json:"lead_id,omitempty"`
	ClientID *uint `gorm:"index" json:"client_id,omitempty"`
	AgentID  uint  `gorm:"not null;index" json:"agent_id"`

	CarrierName   string `gorm:"not null" json:"carrier_name"`
	ProductType   string `gorm:"not null" json:"product_type"`
	AnnualPremium int    `json:"annual_premium"` // in cents

	Status     string     `gorm:"default:'draft'" json:"status"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	Notes      string     `gorm:"type:text" json:"notes"`

	Lead   *Lead   `json:"lead,omitempty"`
	Client *Client `json:"client,omitempty"`
	Agent  *User   `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}
