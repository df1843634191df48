package engine

import "task-tracker/internal/models"

// Capabilities считается один раз на запрос из (пользователь, проект)
// и передаётся в операции вместо разбросанных сравнений ролей.
type Capabilities struct {
	IsMember    bool
	ProjectRole models.ProjectRole

	CanAssign          bool
	CanEditCard        bool
	CanDeleteCard      bool
	CanManageApprovals bool
}

func CapabilitiesFor(user models.User, project models.Project, member *models.ProjectMember) Capabilities {
	caps := Capabilities{}

	isAdmin := user.Role == models.RoleAdmin
	isCreator := project.CreatedBy == user.ID
	isProjectLeader := false

	if member != nil {
		caps.IsMember = true
		caps.ProjectRole = member.Role
		isProjectLeader = member.Role == models.ProjectRoleLeader
	}

	manages := isAdmin || isCreator || isProjectLeader
	caps.CanAssign = manages
	caps.CanDeleteCard = manages
	caps.CanManageApprovals = manages

	// редактировать карточки может любой участник кроме наблюдателя,
	// плюс создатель проекта и админ
	caps.CanEditCard = isAdmin || isCreator ||
		(caps.IsMember && caps.ProjectRole != models.ProjectRoleObserver)

	return caps
}
