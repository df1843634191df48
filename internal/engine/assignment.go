package engine

import (
	"fmt"

	"task-tracker/internal/database"
	"task-tracker/internal/events"
	"task-tracker/internal/models"
	"task-tracker/internal/notify"

	"gorm.io/gorm"
)

type AssignInput struct {
	CardID     uint
	AssigneeID *uint // nil = снять исполнителя
	Reason     string
}

// Assign назначает (или снимает) исполнителя карточки.
// Правила: назначает лидер проекта, создатель проекта или админ; исполнитель
// должен быть участником проекта, не наблюдателем (кроме как по воле админа)
// и без других незакрытых карточек в проекте.
func (e *Engine) Assign(in AssignInput, actor models.User) (*models.Card, []events.Outbound, error) {
	var card *models.Card
	var outs []events.Outbound

	err := e.db.Transaction(func(tx *gorm.DB) error {
		c, board, err := loadCardForUpdate(tx, in.CardID)
		if err != nil {
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
		if !caps.CanAssign {
			return errNotAuthorized()
		}

		var memberID uint
		if in.AssigneeID != nil {
			member, err := findMember(tx, project.ID, *in.AssigneeID)
			if err != nil {
				return err
			}
			if member == nil {
				return errAssigneeNotMember()
			}
			if member.Role == models.ProjectRoleObserver && actor.Role != models.RoleAdmin {
				return errAssigneeIsObserver()
			}
			memberID = member.ID

			// проверка "нет другой незакрытой карточки" идёт под блокировкой
			// строки исполнителя: гонка двух назначений того же человека на
			// разные карточки иначе проходит обе проверки до обеих вставок
			if err := lockUser(tx, *in.AssigneeID); err != nil {
				return err
			}

			if !project.IsCompleted {
				blocking, err := unfinishedCards(tx, project.ID, *in.AssigneeID, c.ID)
				if err != nil {
					return err
				}
				if len(blocking) > 0 {
					return errUnfinishedWork(blocking)
				}
			}
		}

		wasDone := c.Status == models.StatusDone

		if err := applyAssignment(tx, c, in.AssigneeID, actor.ID, memberID, in.Reason); err != nil {
			return err
		}

		// переназначение закрытой карточки открывает её заново
		if in.AssigneeID != nil && wasDone {
			c.Status = models.StatusTodo
		}

		if err := tx.Save(c).Error; err != nil {
			return err
		}

		details := "снят исполнитель"
		if in.AssigneeID != nil {
			details = fmt.Sprintf("назначен пользователь %d", *in.AssigneeID)
		}
		database.CreateAuditLog(tx, actor.ID, "card", c.ID, "assign", details)

		outs = append(outs,
			events.NewOutbound(events.ChannelCard, c.ID, events.EventCardAssigned, actor.ID, c),
			events.NewOutbound(events.ChannelProject, project.ID, events.EventCardUpdated, actor.ID, c),
		)

		if in.AssigneeID != nil {
			nOuts, err := notify.Fanout(tx, []uint{*in.AssigneeID}, models.NotifyCardAssigned,
				c, actor, map[string]any{"reason": in.Reason})
			if err != nil {
				return err
			}
			outs = append(outs, nOuts...)
		}

		card = c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return card, outs, nil
}
