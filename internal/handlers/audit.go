package handlers

import (
	"net/http"

	"task-tracker/internal/database"
	"task-tracker/internal/models"

	"github.com/gin-gonic/gin"
)

// журнал доступен только админу (роль проверяет middleware на маршруте)
func ListAuditLogs(c *gin.Context) {
	var logs []models.AuditLog
	if err := database.DB.
		Preload("User").
		Order("created_at desc").
		Limit(200).
		Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка загрузки журнала"})
		return
	}

	c.JSON(http.StatusOK, logs)
}
