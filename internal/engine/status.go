package engine

import (
	"fmt"
	"time"

	"task-tracker/internal/database"
	"task-tracker/internal/events"
	"task-tracker/internal/models"
	"task-tracker/internal/notify"

	"gorm.io/gorm"
)

// Команды обновления карточки: каждая несёт только свои предусловия,
// вместо одного "что пришло, то и патчим".
type Command interface{ isCommand() }

type StatusChange struct {
	To models.CardStatus
}

type AssigneeChange struct {
	To     *uint // nil = снять исполнителя
	Reason string
}

type FieldEdit struct {
	Title       *string
	Description *string
	Priority    *models.CardPriority

	DueDate      *time.Time
	ClearDueDate bool

	Deadline      *time.Time
	ClearDeadline bool
}

func (StatusChange) isCommand()   {}
func (AssigneeChange) isCommand() {}
func (FieldEdit) isCommand()      {}

// UpdateCard применяет команды атомарно. Направления переходов статуса не
// ограничены, но предусловия проверяются до записи:
//   - в DONE нельзя без единой рабочей сессии;
//   - в IN_PROGRESS с одновременным назначением нельзя, если у назначаемого
//     уже есть карточка в работе;
//   - смена исполнителя повторяет проверку "нет другой незакрытой карточки
//     в проекте" (ослабляется для завершённых проектов).
func (e *Engine) UpdateCard(cardID uint, cmds []Command, actor models.User) (*models.Card, []events.Outbound, error) {
	var statusCmd *StatusChange
	var assigneeCmd *AssigneeChange
	var fieldCmd *FieldEdit
	for _, cmd := range cmds {
		switch v := cmd.(type) {
		case StatusChange:
			statusCmd = &v
		case AssigneeChange:
			assigneeCmd = &v
		case FieldEdit:
			fieldCmd = &v
		}
	}
	if statusCmd == nil && assigneeCmd == nil && fieldCmd == nil {
		return nil, nil, errValidation("Пустое обновление")
	}

	var card *models.Card
	var outs []events.Outbound

	err := e.db.Transaction(func(tx *gorm.DB) error {
		c, board, err := loadCardForUpdate(tx, cardID)
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

		if (statusCmd != nil || fieldCmd != nil) && !caps.CanEditCard {
			return errNotAuthorized()
		}
		if assigneeCmd != nil && !caps.CanAssign {
			return errNotAuthorized()
		}

		if statusCmd != nil && statusCmd.To == models.StatusDone {
			var logged int64
			if err := tx.Model(&models.TimeLog{}).
				Where("card_id = ?", c.ID).Count(&logged).Error; err != nil {
				return err
			}
			// хватает даже незакрытой сессии
			if logged == 0 {
				return errNoTimeLogged()
			}
		}

		if assigneeCmd != nil && assigneeCmd.To != nil {
			member, err := findMember(tx, project.ID, *assigneeCmd.To)
			if err != nil {
				return err
			}
			if member == nil {
				return errAssigneeNotMember()
			}
			if member.Role == models.ProjectRoleObserver && actor.Role != models.RoleAdmin {
				return errAssigneeIsObserver()
			}

			// как в Assign: проверки занятости исполнителя — под блокировкой
			// его строки, чтобы параллельные назначения сериализовались
			if err := lockUser(tx, *assigneeCmd.To); err != nil {
				return err
			}

			if statusCmd != nil && statusCmd.To == models.StatusInProgress {
				busy, err := hasCardInProgress(tx, project.ID, *assigneeCmd.To, c.ID)
				if err != nil {
					return err
				}
				if busy {
					return errAssigneeAlreadyActive()
				}
			}

			if !project.IsCompleted {
				blocking, err := unfinishedCards(tx, project.ID, *assigneeCmd.To, c.ID)
				if err != nil {
					return err
				}
				if len(blocking) > 0 {
					return errUnfinishedWork(blocking)
				}
			}

			if err := applyAssignment(tx, c, assigneeCmd.To, actor.ID, member.ID, assigneeCmd.Reason); err != nil {
				return err
			}
		} else if assigneeCmd != nil {
			if err := applyAssignment(tx, c, nil, actor.ID, 0, assigneeCmd.Reason); err != nil {
				return err
			}
		}

		if fieldCmd != nil {
			if fieldCmd.Title != nil {
				c.Title = *fieldCmd.Title
			}
			if fieldCmd.Description != nil {
				c.Description = *fieldCmd.Description
			}
			if fieldCmd.Priority != nil {
				c.Priority = *fieldCmd.Priority
			}
			if fieldCmd.DueDate != nil {
				c.DueDate = fieldCmd.DueDate
			} else if fieldCmd.ClearDueDate {
				c.DueDate = nil
			}
			if fieldCmd.Deadline != nil {
				c.Deadline = fieldCmd.Deadline
			} else if fieldCmd.ClearDeadline {
				c.Deadline = nil
			}
		}

		completed := false
		if statusCmd != nil {
			completed = statusCmd.To == models.StatusDone && c.Status != models.StatusDone
			c.Status = statusCmd.To
		}

		if err := tx.Save(c).Error; err != nil {
			return err
		}

		action := "update"
		details := "карточка обновлена"
		if statusCmd != nil {
			action = "status_change"
			details = fmt.Sprintf("статус изменён на %s", statusCmd.To)
		}
		database.CreateAuditLog(tx, actor.ID, "card", c.ID, action, details)

		outs = append(outs,
			events.NewOutbound(events.ChannelCard, c.ID, events.EventCardUpdated, actor.ID, c),
			events.NewOutbound(events.ChannelProject, project.ID, events.EventCardUpdated, actor.ID, c),
		)

		// разводка уведомлений по тому, что именно поменялось
		if assigneeCmd != nil && assigneeCmd.To != nil {
			nOuts, err := notify.Fanout(tx, []uint{*assigneeCmd.To}, models.NotifyCardAssigned,
				c, actor, map[string]any{"reason": assigneeCmd.Reason})
			if err != nil {
				return err
			}
			outs = append(outs, nOuts...)
		}
		if completed {
			recipients, err := approverIDs(tx, &project, actor.ID)
			if err != nil {
				return err
			}
			nOuts, err := notify.Fanout(tx, recipients, models.NotifyCardCompleted, c, actor, nil)
			if err != nil {
				return err
			}
			outs = append(outs, nOuts...)
		} else if fieldCmd != nil && c.AssigneeID != nil {
			nOuts, err := notify.Fanout(tx, []uint{*c.AssigneeID}, models.NotifyCardUpdated, c, actor, nil)
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

// DeleteCard удаляет карточку с дочерними записями. Записи о сверхурочных
// остаются как аудиторский след.
func (e *Engine) DeleteCard(cardID uint, actor models.User) ([]events.Outbound, error) {
	var outs []events.Outbound

	err := e.db.Transaction(func(tx *gorm.DB) error {
		c, board, err := loadCardForUpdate(tx, cardID)
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
		if !caps.CanDeleteCard {
			return errNotAuthorized()
		}

		if err := tx.Where("card_id = ?", c.ID).Delete(&models.TimeLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("card_id = ?", c.ID).Delete(&models.CardAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(c).Error; err != nil {
			return err
		}

		database.CreateAuditLog(tx, actor.ID, "card", c.ID, "delete", "удалена карточка: "+c.Title)

		outs = append(outs,
			events.NewOutbound(events.ChannelProject, project.ID, events.EventCardDeleted, actor.ID,
				map[string]any{"card_id": c.ID}),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outs, nil
}
