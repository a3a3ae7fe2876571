package models

import "gorm.io/gorm"

// MarketingTemplate is a reusable html email template. Subject and Body are
// rendered with html/template against a per-client data map before sending.
type MarketingTemplate struct {
	gorm.Model

	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Subject  string `gorm:"not null" json:"subject"`
	Body     string `gorm:"type:text;not null" json:"body"`
	Category string `json:"category"` // newsletter, renewal, cross_sell, holiday

	CreatedByID uint  `gorm:"index" json:"created_by_id"`
	CreatedBy   *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}
