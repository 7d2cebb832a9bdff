package models

import (
	"time"
)

// LinkStatus represents whether a short link is serving traffic
type LinkStatus string

const (
	LinkStatusActive   LinkStatus = "active"
	LinkStatusInactive LinkStatus = "inactive"
)

// Toggle returns the opposite status
func (s LinkStatus) Toggle() LinkStatus {
	if s == LinkStatusActive {
		return LinkStatusInactive
	}
	return LinkStatusActive
}

// Link is the local mirror of a short link created on the Traffic Portal.
// The portal remains the source of truth for key existence across all
// owners; this row only exists after a successful remote create.
type Link struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	OwnerID     uint       `gorm:"not null;index;uniqueIndex:idx_owner_key" json:"owner_id"`
	Key         string     `gorm:"column:tpkey;not null;uniqueIndex:idx_owner_key" json:"tpkey"`
	Destination string     `gorm:"not null" json:"destination"`
	Domain      string     `gorm:"default:'trfc.link'" json:"domain"`
	Status      LinkStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	ClickCount  uint       `gorm:"default:0" json:"click_count"`

	Owner User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// ShortURL returns the public short link served by the portal.
func (l Link) ShortURL() string {
	return "https://" + l.Domain + "/" + l.Key
}
