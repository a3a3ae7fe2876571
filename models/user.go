package models

import (
	"time"

	"gorm.io/gorm"
)

// Staff roles. Leads and clients are owned by users with the agent role;
// admins bypass ownership checks.
const (
	RoleAdmin      = "admin"
	RoleAgent      = "agent"
	RoleTeamLeader = "team_leader"
	RoleSupport    = "support"
)

// User represents a staff account (broker employee or agent)
type User struct {
	gorm.Model

	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"index" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`

	Role     string `gorm:"not null;default:'agent'" json:"role"` // admin, agent, team_leader, support
	IsActive bool   `gorm:"default:true" json:"is_active"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	// Relations
	AssignedLeads   []Lead   `gorm:"foreignKey:AssignedAgentID" json:"assigned_leads,omitempty"`
	AssignedClients []Client `gorm:"foreignKey:AssignedAgentID" json:"assigned_clients,omitempty"`
	Tasks           []Task   `gorm:"foreignKey:AssignedToID" json:"tasks,omitempty"`
}

// IsAdmin reports whether the user bypasses per-agent ownership checks.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
