package models

import (
	"time"

	"gorm.io/gorm"
)

// Task is a follow-up item for a staff user, optionally attached to a lead or
// client. The reminder worker emails the assignee once when a task passes due.
type Task struct {
	gorm.Model

	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	AssignedToID uint  `gorm:"not null;index" json:"assigned_to_id"`
	LeadID       *uint `gorm:"index" json:"lead_id,omitempty"`
	ClientID     *uint `gorm:"index" json:"client_id,omitempty"`

	DueAt        *time.Time `gorm:"index" json:"due_at,omitempty"`
	Completed    bool       `gorm:"default:false;index" json:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ReminderSent bool       `gorm:"default:false" json:"reminder_sent"`

	Priority string `gorm:"default:'normal'" json:"priority"` // low, normal, high

	AssignedTo *User   `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	Lead       *Lead   `json:"lead,omitempty"`
	Client     *Client `json:"client,omitempty"`
}

// CalendarEvent is an appointment on a staff user's calendar.
type CalendarEvent struct {
	gorm.Model

	OwnerID  uint  `gorm:"not null;index" json:"owner_id"`
	ClientID *uint `gorm:"index" json:"client_id,omitempty"`
	LeadID   *uint `gorm:"index" json:"lead_id,omitempty"`

	Title    string    `gorm:"not null" json:"title"`
	StartsAt time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"`
	Location string    `json:"location"`
	Notes    string    `gorm:"type:text" json:"notes"`

	Owner  *User   `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Client *Client `json:"client,omitempty"`
	Lead   *Lead   `json:"lead,omitempty"`
}
