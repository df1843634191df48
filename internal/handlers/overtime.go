package handlers

import (
	"net/http"

	"task-tracker/internal/database"
	"task-tracker/internal/middleware"
	"task-tracker/internal/models"

	"github.com/gin-gonic/gin"
)

type overtimeRequestForm struct {
	Reason string `json:"reason" binding:"required"`
}

func RequestOvertime(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	cardID, ok := parseID(c)
	if !ok {
		return
	}

	var form overtimeRequestForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "message": "Не указана причина"})
		return
	}

	approval, outs, err := eng.RequestOvertime(cardID, user, form.Reason)
	if err != nil {
		respondEngineError(c, "overtime_request", err)
		return
	}
	opOK("overtime_request")
	publish(outs)

	c.JSON(http.StatusCreated, approval)
}

type overtimeResolveForm struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
	Notes  string `json:"notes"`
}

func ResolveOvertime(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	approvalID, ok := parseID(c)
	if !ok {
		return
	}

	var form overtimeResolveForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "message": "Некорректные данные"})
		return
	}

	approval, outs, err := eng.ResolveOvertime(approvalID, form.Action == "approve", user, form.Notes)
	if err != nil {
		respondEngineError(c, "overtime_resolve", err)
		return
	}
	opOK("overtime_resolve")
	publish(outs)

	c.JSON(http.StatusOK, approval)
}

func ListCardOvertime(c *gin.Context) {
	cardID, ok := parseID(c)
	if !ok {
		return
	}

	var approvals []models.OvertimeApproval
	if err := database.DB.
		Where("card_id = ?", cardID).
		Order("requested_at desc").
		Find(&approvals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка загрузки заявок"})
		return
	}
	c.JSON(http.StatusOK, approvals)
}
