package handlers

import (
	"net/http"
	"strings"

	"task-tracker/internal/database"
	"task-tracker/internal/middleware"
	"task-tracker/internal/models"

	"github.com/gin-gonic/gin"
)

type boardForm struct {
	Title    string `json:"title" binding:"required,min=1,max=255"`
	Position int    `json:"position"`
}

func CreateBoard(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	projectID, ok := parseID(c)
	if !ok {
		return
	}

	var form boardForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "message": "Некорректные данные"})
		return
	}

	var project models.Project
	if err := database.DB.First(&project, projectID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "project_not_found", "message": "Проект не найден"})
		return
	}

	if !canManageProject(user, project) {
		member, err := projectMember(database.DB, project.ID, user.ID)
		if err != nil || member == nil || member.Role != models.ProjectRoleLeader {
			c.JSON(http.StatusForbidden, gin.H{"code": "not_authorized", "message": "Недостаточно прав"})
			return
		}
	}

	board := models.Board{
		ProjectID: project.ID,
		Title:     strings.TrimSpace(form.Title),
		Position:  form.Position,
	}
	if err := database.DB.Create(&board).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка сохранения доски"})
		return
	}

	c.JSON(http.StatusCreated, board)
}

func ListBoards(c *gin.Context) {
	projectID, ok := parseID(c)
	if !ok {
		return
	}

	var boards []models.Board
	if err := database.DB.
		Where("project_id = ?", projectID).
		Order("position asc, created_at asc").
		Find(&boards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка загрузки досок"})
		return
	}
	c.JSON(http.StatusOK, boards)
}
