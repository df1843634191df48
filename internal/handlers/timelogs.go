package handlers

import (
	"net/http"

	"task-tracker/internal/database"
	"task-tracker/internal/middleware"
	"task-tracker/internal/models"

	"github.com/gin-gonic/gin"
)

func StartTimer(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	cardID, ok := parseID(c)
	if !ok {
		return
	}

	logRow, outs, err := eng.StartTimer(cardID, user)
	if err != nil {
		respondEngineError(c, "timer_start", err)
		return
	}
	opOK("timer_start")
	publish(outs)

	c.JSON(http.StatusCreated, logRow)
}

func StopTimer(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	logID, ok := parseID(c)
	if !ok {
		return
	}

	logRow, outs, err := eng.StopTimer(logID, user)
	if err != nil {
		respondEngineError(c, "timer_stop", err)
		return
	}
	opOK("timer_stop")
	publish(outs)

	c.JSON(http.StatusOK, logRow)
}

func ListCardTimeLogs(c *gin.Context) {
	cardID, ok := parseID(c)
	if !ok {
		return
	}

	var logs []models.TimeLog
	if err := database.DB.
		Where("card_id = ?", cardID).
		Order("start_time desc").
		Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка загрузки сессий"})
		return
	}
	c.JSON(http.StatusOK, logs)
}
