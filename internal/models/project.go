package models

import "gorm.io/gorm"

type ProjectRole string

const (
	ProjectRoleLeader    ProjectRole = "LEADER"
	ProjectRoleDeveloper ProjectRole = "DEVELOPER"
	ProjectRoleDesigner  ProjectRole = "DESIGNER"
	ProjectRoleObserver  ProjectRole = "OBSERVER"
)

type Project struct {
	gorm.Model
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	CreatedBy uint `gorm:"not null;index" json:"created_by"` // User.ID создателя
	Creator   User `gorm:"foreignKey:CreatedBy" json:"-"`

	// завершённый проект ослабляет правило "одна незакрытая карточка на человека"
	IsCompleted bool `gorm:"not null;default:false" json:"is_completed"`

	Boards  []Board         `json:"boards,omitempty"`
	Members []ProjectMember `json:"members,omitempty"`
}

// ProjectMember — членство пользователя в проекте с ролью.
// Инварианты (проверяются в хендлере добавления участника):
//   - не больше одного LEADER на проект;
//   - пользователь может быть LEADER максимум в одном проекте;
//   - проектную роль LEADER может держать только пользователь с глобальной ролью LEADER.
type ProjectMember struct {
	gorm.Model
	ProjectID uint        `gorm:"not null;index:idx_project_user,unique" json:"project_id"`
	UserID    uint        `gorm:"not null;index:idx_project_user,unique" json:"user_id"`
	Role      ProjectRole `gorm:"type:varchar(20);not null" json:"role"`

	Project Project `json:"-"`
	User    User    `json:"user,omitempty"`
}
