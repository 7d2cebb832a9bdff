package models

import (
	"time"
)

// SystemRole represents a user's system-wide role
type SystemRole string

const (
	SystemRoleAdmin SystemRole = "admin"
	SystemRoleUser  SystemRole = "user"
)

// User represents an owner of short links. PortalToken is the per-owner
// Traffic Portal credential (tpTkn); it is never derived or minted locally,
// the owner has to supply one before links can be created on their behalf.
type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `gorm:"not null" json:"name"`
	SystemRole   SystemRole `gorm:"type:varchar(20);default:'user'" json:"system_role"`
	PortalToken  string     `json:"-"`

	Links []Link `gorm:"foreignKey:OwnerID" json:"links,omitempty"`
}

// HasPortalToken reports whether the user can authenticate against the portal.
func (u User) HasPortalToken() bool {
	return u.PortalToken != ""
}
