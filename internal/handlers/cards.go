package handlers

import (
	"net/http"
	"strings"
	"time"

	"task-tracker/internal/database"
	"task-tracker/internal/engine"
	"task-tracker/internal/middleware"
	"task-tracker/internal/models"

	"github.com/gin-gonic/gin"
)

type cardForm struct {
	Title       string     `json:"title" binding:"required,min=1,max=255"`
	Description string     `json:"description"`
	Priority    string     `json:"priority" binding:"omitempty,cardpriority"`
	DueDate     *time.Time `json:"due_date"`
	Deadline    *time.Time `json:"deadline"`
}

func CreateCard(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	boardID, ok := parseID(c)
	if !ok {
		return
	}

	var form cardForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "message": "Некорректные данные"})
		return
	}

	var board models.Board
	if err := database.DB.First(&board, boardID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "board_not_found", "message": "Доска не найдена"})
		return
	}
	var project models.Project
	if err := database.DB.First(&project, board.ProjectID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка загрузки проекта"})
		return
	}

	// карточки заводят лидер проекта, создатель проекта или админ
	if !canManageProject(user, project) {
		member, err := projectMember(database.DB, project.ID, user.ID)
		if err != nil || member == nil || member.Role != models.ProjectRoleLeader {
			c.JSON(http.StatusForbidden, gin.H{"code": "not_authorized", "message": "Недостаточно прав"})
			return
		}
	}

	priority := models.CardPriority(form.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}

	card := models.Card{
		BoardID:     board.ID,
		Title:       strings.TrimSpace(form.Title),
		Description: form.Description,
		Priority:    priority,
		Status:      models.StatusTodo,
		DueDate:     form.DueDate,
		Deadline:    form.Deadline,
		CreatedBy:   user.ID,
	}
	if err := database.DB.Create(&card).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка сохранения карточки"})
		return
	}

	database.CreateAuditLog(database.DB, user.ID, "card", card.ID, "create", "создана карточка: "+card.Title)

	c.JSON(http.StatusCreated, card)
}

func ListBoardCards(c *gin.Context) {
	boardID, ok := parseID(c)
	if !ok {
		return
	}

	var cards []models.Card
	if err := database.DB.
		Where("board_id = ?", boardID).
		Order("created_at asc").
		Find(&cards).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка загрузки карточек"})
		return
	}
	c.JSON(http.StatusOK, cards)
}

func GetCard(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var card models.Card
	if err := database.DB.First(&card, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "card_not_found", "message": "Карточка не найдена"})
		return
	}

	var assignments []models.CardAssignment
	if err := database.DB.
		Where("card_id = ?", card.ID).
		Order("assigned_at desc").
		Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "message": "Ошибка загрузки назначений"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"card": card, "assignments": assignments})
}

type assignForm struct {
	AssigneeID *uint  `json:"assignee_id"` // null = снять исполнителя
	Reason     string `json:"reason"`
}

func AssignCard(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var form assignForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "message": "Некорректные данные"})
		return
	}

	card, outs, err := eng.Assign(engine.AssignInput{
		CardID:     id,
		AssigneeID: form.AssigneeID,
		Reason:     form.Reason,
	}, user)
	if err != nil {
		respondEngineError(c, "assign", err)
		return
	}
	opOK("assign")
	publish(outs)

	c.JSON(http.StatusOK, card)
}

type updateCardForm struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority" binding:"omitempty,cardpriority"`
	Status      *string    `json:"status" binding:"omitempty,cardstatus"`
	DueDate     *time.Time `json:"due_date"`
	ClearDue    bool       `json:"clear_due_date"`
	Deadline    *time.Time `json:"deadline"`
	ClearDL     bool       `json:"clear_deadline"`

	AssigneeID    *uint  `json:"assignee_id"`
	ClearAssignee bool   `json:"clear_assignee"`
	Reason        string `json:"reason"`
}

// UpdateCard превращает присланный патч в типизированные команды движка:
// смена статуса, смена исполнителя и правка полей проверяются каждая по-своему.
func UpdateCard(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var form updateCardForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_failed", "message": "Некорректные данные"})
		return
	}

	var cmds []engine.Command

	if form.Status != nil {
		cmds = append(cmds, engine.StatusChange{To: models.CardStatus(*form.Status)})
	}

	if form.AssigneeID != nil || form.ClearAssignee {
		cmds = append(cmds, engine.AssigneeChange{To: form.AssigneeID, Reason: form.Reason})
	}

	edit := engine.FieldEdit{
		Description:   form.Description,
		DueDate:       form.DueDate,
		ClearDueDate:  form.ClearDue,
		Deadline:      form.Deadline,
		ClearDeadline: form.ClearDL,
	}
	if form.Title != nil {
		t := strings.TrimSpace(*form.Title)
		edit.Title = &t
	}
	if form.Priority != nil {
		p := models.CardPriority(*form.Priority)
		edit.Priority = &p
	}
	if edit.Title != nil || edit.Description != nil || edit.Priority != nil ||
		edit.DueDate != nil || edit.ClearDueDate || edit.Deadline != nil || edit.ClearDeadline {
		cmds = append(cmds, edit)
	}

	card, outs, err := eng.UpdateCard(id, cmds, user)
	if err != nil {
		respondEngineError(c, "card_update", err)
		return
	}
	opOK("card_update")
	publish(outs)

	c.JSON(http.StatusOK, card)
}

func DeleteCard(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	outs, err := eng.DeleteCard(id, user)
	if err != nil {
		respondEngineError(c, "card_delete", err)
		return
	}
	opOK("card_delete")
	publish(outs)

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
