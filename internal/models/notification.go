package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationKind string

const (
	NotifyCardAssigned      NotificationKind = "card_assigned"
	NotifyCardUpdated       NotificationKind = "card_updated"
	NotifyCardCompleted     NotificationKind = "card_completed"
	NotifyOvertimeRequested NotificationKind = "overtime_requested"
	NotifyOvertimeResolved  NotificationKind = "overtime_resolved"
)

type Notification struct {
	gorm.Model
	RecipientID uint `gorm:"not null;index" json:"recipient_id"`

	Kind      NotificationKind `gorm:"type:varchar(30);not null" json:"kind"`
	CardID    uint             `gorm:"index" json:"card_id"`
	Title     string           `gorm:"size:255" json:"title"`
	ActorName string           `gorm:"size:100" json:"actor_name"`

	Detail datatypes.JSON `json:"detail,omitempty"`

	IsRead bool `gorm:"not null;default:false;index" json:"is_read"`
}
