package handlers

import (
	"net/http"

	"task-tracker/internal/database"
	"task-tracker/internal/middleware"
	"task-tracker/internal/models"

	"github.com/gin-gonic/gin"
)

func ListMyNotifications(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var notifications []models.Notification
	if err := database.DB.
		Where("recipient_id = ?", user.ID).
		Order("created_at desc").
		Limit(100).
		Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка загрузки уведомлений"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func MarkNotificationRead(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var n models.Notification
	if err := database.DB.First(&n, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "notification_not_found", "message": "Уведомление не найдено"})
		return
	}
	if n.RecipientID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"code": "not_authorized", "message": "Чужое уведомление"})
		return
	}

	n.IsRead = true
	if err := database.DB.Save(&n).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка обновления"})
		return
	}
	c.JSON(http.StatusOK, n)
}
