package models

import (
	"time"

	"gorm.io/gorm"
)

// Policy statuses
const (
	PolicyStatusActive    = "active"
	PolicyStatusLapsed    = "lapsed"
	PolicyStatusCancelled = "cancelled"
	PolicyStatusExpired   = "expired"
)

// Policy represents an in-force (or formerly in-force) insurance policy sold
// through the brokerage.
type Policy struct {
	gorm.Model

	ClientID uint `gorm:"not null;index" json:"client_id"`
	AgentID  uint `gorm:"not null;index" json:"agent_id"`

	PolicyNumber string `gorm:"uniqueIndex;not null" json:"policy_number"`
	CarrierName  string `gorm:"not null" json:"carrier_name"`
	ProductType  string `gorm:"not null" json:"product_type"` // auto, home, life, health, commercial

	AnnualPremium  int     `json:"annual_premium"` // in cents
	CommissionRate float64 `json:"commission_rate"`

	EffectiveDate  time.Time `json:"effective_date"`
	ExpirationDate time.Time `gorm:"index" json:"expiration_date"`

	Status string `gorm:"default:'active';index" json:"status"`
	Notes  string `gorm:"type:text" json:"notes"`

	// Relations
	Client      *Client      `json:"client,omitempty"`
	Agent       *User        `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	Commissions []Commission `gorm:"foreignKey:PolicyID" json:"commissions,omitempty"`
	Documents   []Document   `gorm:"foreignKey:PolicyID" json:"documents,omitempty"`
}

// Commission records a commission payment (or expected payment) on a policy.
type Commission struct {
	gorm.Model

	PolicyID uint `gorm:"not null;index" json:"policy_id"`
	AgentID  uint `gorm:"not null;index" json:"agent_id"`

	Amount      int     `gorm:"not null" json:"amount"` // in cents
	Rate        float64 `json:"rate"`
	PeriodMonth string  `gorm:"index" json:"period_month"`       // YYYY-MM
	Status      string  `gorm:"default:'pending'" json:"status"` // pending, paid

	PaidAt *time.Time `json:"paid_at,omitempty"`

	Policy *Policy `json:"policy,omitempty"`
	Agent  *User   `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}
