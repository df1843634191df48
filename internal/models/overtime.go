package models

import (
	"time"

	"gorm.io/gorm"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// OvertimeApproval — запрос на продолжение работы после дедлайна карточки.
// Не больше одной PENDING-строки на пару (карточка, заявитель); строки не удаляются.
type OvertimeApproval struct {
	gorm.Model
	CardID uint `gorm:"not null;index" json:"card_id"`
	Card   Card `json:"-"`

	RequestedBy uint   `gorm:"not null;index" json:"requested_by"`
	Reason      string `gorm:"type:text;not null" json:"reason"`
	DaysOverdue int    `gorm:"not null" json:"days_overdue"`

	Status      ApprovalStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	RequestedAt time.Time      `gorm:"not null" json:"requested_at"`

	ApproverID    *uint      `json:"approver_id"`
	ApproverNotes string     `gorm:"type:text" json:"approver_notes"`
	RespondedAt   *time.Time `json:"responded_at"`
}
