package models

import "time"

type AuditLog struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	UserID uint
	User   User

	Entity   string `gorm:"size:50;not null"` // "card", "timelog", "overtime" и т.п.
	EntityID uint
	Action   string `gorm:"size:50;not null"` // "assign", "status_change", "timer_start" и т.п.
	Details  string `gorm:"type:text"`
}
