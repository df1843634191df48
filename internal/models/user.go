package models

import "gorm.io/gorm"

type GlobalRole string

const (
	RoleAdmin  GlobalRole = "ADMIN"
	RoleLeader GlobalRole = "LEADER"
	RoleMember GlobalRole = "MEMBER"
)

type User struct {
	gorm.Model
	Username     string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	DisplayName  string     `gorm:"size:100" json:"display_name"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         GlobalRole `gorm:"type:varchar(20);not null" json:"role"`
}
