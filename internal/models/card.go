package models

import (
	"time"

	"gorm.io/gorm"
)

type CardPriority string
type CardStatus string

const (
	PriorityLow    CardPriority = "LOW"
	PriorityMedium CardPriority = "MEDIUM"
	PriorityHigh   CardPriority = "HIGH"

	StatusTodo       CardStatus = "TODO"
	StatusInProgress CardStatus = "IN_PROGRESS"
	StatusReview     CardStatus = "REVIEW"
	StatusDone       CardStatus = "DONE"
)

type Board struct {
	gorm.Model
	ProjectID uint    `gorm:"not null;index" json:"project_id"`
	Project   Project `json:"-"`

	Title    string `gorm:"size:255;not null" json:"title"`
	Position int    `gorm:"not null;default:0" json:"position"`

	Cards []Card `json:"cards,omitempty"`
}

type Card struct {
	gorm.Model
	BoardID uint  `gorm:"not null;index" json:"board_id"`
	Board   Board `json:"-"`

	Title       string       `gorm:"size:255;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Priority    CardPriority `gorm:"type:varchar(10);not null" json:"priority"`
	Status      CardStatus   `gorm:"type:varchar(20);not null;index" json:"status"`

	DueDate  *time.Time `json:"due_date"`
	Deadline *time.Time `json:"deadline"`

	// денормализованный указатель на текущего исполнителя;
	// всегда совпадает с assigned_to единственной активной записи CardAssignment
	// (пишется только через engine.applyAssignment)
	AssigneeID *uint `gorm:"index" json:"assignee_id"`

	CreatedBy uint `gorm:"not null" json:"created_by"`
	Creator   User `gorm:"foreignKey:CreatedBy" json:"-"`
}

// CardAssignment — история назначений. Записи никогда не удаляются,
// при переназначении старые строки деактивируются.
type CardAssignment struct {
	gorm.Model
	CardID uint `gorm:"not null;index" json:"card_id"`
	Card   Card `json:"-"`

	AssignedTo      uint   `gorm:"not null;index" json:"assigned_to"`
	AssignedBy      uint   `gorm:"not null" json:"assigned_by"`
	ProjectMemberID uint   `json:"project_member_id"`
	Reason          string `gorm:"type:text" json:"reason"`

	IsActive     bool       `gorm:"not null;default:true;index" json:"is_active"`
	AssignedAt   time.Time  `gorm:"not null" json:"assigned_at"`
	UnassignedAt *time.Time `json:"unassigned_at"`
}
