package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"task-tracker/internal/database"
	"task-tracker/internal/events"
	"task-tracker/internal/models"
	"task-tracker/internal/notify"

	"gorm.io/gorm"
)

// daysOverdue — на сколько суток (с округлением вверх) просрочен дедлайн;
// 0 означает "ещё не просрочен", даже если дедлайн наступил ровно сейчас.
func daysOverdue(now, deadline time.Time) int {
	over := now.Sub(deadline)
	if over <= 0 {
		return 0
	}
	return int(math.Ceil(over.Hours() / 24))
}

// RequestOvertime создаёт заявку на продолжение работы после дедлайна.
// Заявка совещательная: она не разблокирует таймеры и переходы статусов,
// а фиксирует решение руководителя для аудита.
func (e *Engine) RequestOvertime(cardID uint, actor models.User, reason string) (*models.OvertimeApproval, []events.Outbound, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, nil, errValidation("Не указана причина")
	}

	var approval *models.OvertimeApproval
	var outs []events.Outbound

	err := e.db.Transaction(func(tx *gorm.DB) error {
		c, board, err := loadCardForUpdate(tx, cardID)
		if err != nil {
			return err
		}

		if c.AssigneeID == nil || *c.AssigneeID != actor.ID {
			return errNotAssignee()
		}
		if c.Deadline == nil {
			return errNoDeadline()
		}

		now := time.Now()
		days := daysOverdue(now, *c.Deadline)
		if days <= 0 {
			return errNotOverdue()
		}

		var pending int64
		if err := tx.Model(&models.OvertimeApproval{}).
			Where("card_id = ? AND requested_by = ? AND status = ?",
				c.ID, actor.ID, models.ApprovalPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return errDuplicatePending()
		}

		row := models.OvertimeApproval{
			CardID:      c.ID,
			RequestedBy: actor.ID,
			Reason:      reason,
			DaysOverdue: days,
			Status:      models.ApprovalPending,
			RequestedAt: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		var project models.Project
		if err := tx.First(&project, board.ProjectID).Error; err != nil {
			return err
		}
		recipients, err := approverIDs(tx, &project, actor.ID)
		if err != nil {
			return err
		}
		nOuts, err := notify.Fanout(tx, recipients, models.NotifyOvertimeRequested, c, actor,
			map[string]any{"reason": reason, "days_overdue": days})
		if err != nil {
			return err
		}
		outs = append(outs, nOuts...)

		database.CreateAuditLog(tx, actor.ID, "overtime", row.ID, "request",
			fmt.Sprintf("запрошены сверхурочные по карточке %d (просрочка %d дн.)", c.ID, days))

		approval = &row
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return approval, outs, nil
}

// ResolveOvertime закрывает заявку решением руководителя. Повторное решение
// по той же заявке невозможно.
func (e *Engine) ResolveOvertime(approvalID uint, approve bool, actor models.User, notes string) (*models.OvertimeApproval, []events.Outbound, error) {
	var approval *models.OvertimeApproval
	var outs []events.Outbound

	err := e.db.Transaction(func(tx *gorm.DB) error {
		var row models.OvertimeApproval
		if err := LockForUpdate(tx).First(&row, approvalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errApprovalNotFound()
			}
			return err
		}

		if row.Status != models.ApprovalPending {
			return errAlreadyResolved()
		}

		var card models.Card
		if err := tx.First(&card, row.CardID).Error; err != nil {
			return err
		}
		var board models.Board
		if err := tx.First(&board, card.BoardID).Error; err != nil {
			return err
		}
		var project models.Project
		if err := tx.First(&project, board.ProjectID).Error; err != nil {
			return err
		}

		actorMember, err := findMember(tx, project.ID, actor.ID)
		if err != nil {
			return err
		}
		caps := CapabilitiesFor(actor, project, actorMember)
		if !caps.CanManageApprovals {
			return errNotAuthorized()
		}

		now := time.Now()
		if approve {
			row.Status = models.ApprovalApproved
		} else {
			row.Status = models.ApprovalRejected
		}
		row.ApproverID = &actor.ID
		row.ApproverNotes = notes
		row.RespondedAt = &now

		if err := tx.Save(&row).Error; err != nil {
			return err
		}

		nOuts, err := notify.Fanout(tx, []uint{row.RequestedBy}, models.NotifyOvertimeResolved,
			&card, actor, map[string]any{"status": row.Status, "notes": notes})
		if err != nil {
			return err
		}
		outs = append(outs, nOuts...)

		database.CreateAuditLog(tx, actor.ID, "overtime", row.ID, "resolve",
			fmt.Sprintf("заявка закрыта со статусом %s", row.Status))

		approval = &row
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return approval, outs, nil
}
