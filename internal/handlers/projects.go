package handlers

import (
	"errors"
	"net/http"
	"strings"

	"task-tracker/internal/database"
	"task-tracker/internal/engine"
	"task-tracker/internal/middleware"
	"task-tracker/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type projectForm struct {
	Title       string `json:"title" binding:"required,min=3,max=255"`
	Description string `json:"description"`
}

func CreateProject(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	// проект заводит админ или глобальный лидер
	if user.Role != models.RoleAdmin && user.Role != models.RoleLeader {
		c.JSON(http.StatusForbidden, gin.H{"code": "not_authorized", "message": "Недостаточно прав"})
		return
	}

	var form projectForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "message": "Некорректные данные"})
		return
	}

	project := models.Project{
		Title:       strings.TrimSpace(form.Title),
		Description: strings.TrimSpace(form.Description),
		CreatedBy:   user.ID,
	}
	if err := database.DB.Create(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка сохранения проекта"})
		return
	}

	database.CreateAuditLog(database.DB, user.ID, "project", project.ID, "create", "создан проект: "+project.Title)

	c.JSON(http.StatusCreated, project)
}

func ListProjects(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var projects []models.Project
	dbq := database.DB.Order("created_at desc")

	if user.Role != models.RoleAdmin {
		dbq = dbq.Where(
			"created_by = ? OR id IN (?)",
			user.ID,
			database.DB.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", user.ID),
		)
	}

	if err := dbq.Find(&projects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка загрузки проектов"})
		return
	}
	c.JSON(http.StatusOK, projects)
}

func GetProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var project models.Project
	if err := database.DB.
		Preload("Members.User").
		Preload("Boards").
		First(&project, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "project_not_found", "message": "Проект не найден"})
		return
	}
	c.JSON(http.StatusOK, project)
}

type completeForm struct {
	Completed *bool `json:"completed" binding:"required"`
}

// завершённость проекта ослабляет правило "одна незакрытая карточка на человека"
func CompleteProject(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var form completeForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "message": "Некорректные данные"})
		return
	}

	var project models.Project
	if err := database.DB.First(&project, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "project_not_found", "message": "Проект не найден"})
		return
	}

	if !canManageProject(user, project) {
		c.JSON(http.StatusForbidden, gin.H{"code": "not_authorized", "message": "Недостаточно прав"})
		return
	}

	project.IsCompleted = *form.Completed
	if err := database.DB.Save(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка обновления проекта"})
		return
	}

	database.CreateAuditLog(database.DB, user.ID, "project", project.ID, "complete_toggle", "изменён флаг завершённости")

	c.JSON(http.StatusOK, project)
}

type addMemberForm struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required,oneof=LEADER DEVELOPER DESIGNER OBSERVER"`
}

// AddMember добавляет участника, следя за инвариантами лидерства:
// один LEADER на проект, пользователь — LEADER максимум в одном проекте,
// и проектный LEADER обязан иметь глобальную роль LEADER.
func AddMember(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)
	projectID, ok := parseID(c)
	if !ok {
		return
	}

	var form addMemberForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "message": "Некорректные данные"})
		return
	}
	role := models.ProjectRole(form.Role)

	var member models.ProjectMember
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.First(&project, projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &engine.Error{Kind: engine.KindNotFound, Code: "project_not_found", Message: "Проект не найден"}
			}
			return err
		}

		if !canManageProject(actor, project) {
			actorMember, err := projectMember(tx, project.ID, actor.ID)
			if err != nil {
				return err
			}
			if actorMember == nil || actorMember.Role != models.ProjectRoleLeader {
				return &engine.Error{Kind: engine.KindAuthorization, Code: "not_authorized", Message: "Недостаточно прав"}
			}
		}

		// строка пользователя под блокировкой: проверки лидерства ниже
		// не должны гоняться с параллельным добавлением того же человека
		var target models.User
		if err := engine.LockForUpdate(tx).First(&target, form.UserID).Error; err != nil {
			return &engine.Error{Kind: engine.KindNotFound, Code: "user_not_found", Message: "Пользователь не найден"}
		}

		var dup int64
		if err := tx.Model(&models.ProjectMember{}).
			Where("project_id = ? AND user_id = ?", project.ID, target.ID).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return &engine.Error{Kind: engine.KindConflict, Code: "already_member", Message: "Пользователь уже в проекте"}
		}

		if role == models.ProjectRoleLeader {
			if target.Role != models.RoleLeader {
				return &engine.Error{Kind: engine.KindValidation, Code: "leader_role_required",
					Message: "Проектным лидером может стать только пользователь с глобальной ролью LEADER"}
			}

			var leaders int64
			if err := tx.Model(&models.ProjectMember{}).
				Where("project_id = ? AND role = ?", project.ID, models.ProjectRoleLeader).
				Count(&leaders).Error; err != nil {
				return err
			}
			if leaders > 0 {
				return &engine.Error{Kind: engine.KindConflict, Code: "leader_exists", Message: "В проекте уже есть лидер"}
			}

			var elsewhere int64
			if err := tx.Model(&models.ProjectMember{}).
				Where("user_id = ? AND role = ?", target.ID, models.ProjectRoleLeader).
				Count(&elsewhere).Error; err != nil {
				return err
			}
			if elsewhere > 0 {
				return &engine.Error{Kind: engine.KindConflict, Code: "leader_elsewhere",
					Message: "Пользователь уже лидер другого проекта"}
			}
		}

		member = models.ProjectMember{ProjectID: project.ID, UserID: target.ID, Role: role}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}

		database.CreateAuditLog(tx, actor.ID, "project", project.ID, "member_add",
			"добавлен участник "+target.Username+" ("+string(role)+")")
		return nil
	})
	if err != nil {
		respondEngineError(c, "member_add", err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

func canManageProject(user models.User, project models.Project) bool {
	return user.Role == models.RoleAdmin || project.CreatedBy == user.ID
}

func projectMember(tx *gorm.DB, projectID, userID uint) (*models.ProjectMember, error) {
	var m models.ProjectMember
	err := tx.Where("project_id = ? AND user_id = ?", projectID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
