package engine

import (
	"errors"
	"fmt"
	"time"

	"task-tracker/internal/database"
	"task-tracker/internal/events"
	"task-tracker/internal/models"

	"gorm.io/gorm"
)

// StartTimer открывает рабочую сессию и "захватывает" карточку:
// статус становится IN_PROGRESS, исполнителем — запустивший таймер.
func (e *Engine) StartTimer(cardID uint, actor models.User) (*models.TimeLog, []events.Outbound, error) {
	var logRow *models.TimeLog
	var outs []events.Outbound

	err := e.db.Transaction(func(tx *gorm.DB) error {
		c, board, err := loadCardForUpdate(tx, cardID)
		if err != nil {
			return err
		}

		// один открытый таймер на пользователя — глобально, по всем проектам;
		// проверка под блокировкой строки пользователя, иначе два запуска по
		// разным карточкам проскакивают её одновременно
		if err := lockUser(tx, actor.ID); err != nil {
			return err
		}
		var open int64
		if err := tx.Model(&models.TimeLog{}).
			Where("user_id = ? AND end_time IS NULL", actor.ID).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return errActiveTimerExists()
		}

		if c.Status == models.StatusDone {
			return errCardAlreadyDone()
		}

		member, err := findMember(tx, board.ProjectID, actor.ID)
		if err != nil {
			return err
		}
		if member == nil {
			return errNotAProjectMember()
		}

		isAssignee := c.AssigneeID != nil && *c.AssigneeID == actor.ID

		busy, err := hasCardInProgress(tx, board.ProjectID, actor.ID, c.ID)
		if err != nil {
			return err
		}
		if busy {
			return errAnotherCardInProgress()
		}

		if !isAssignee {
			// чужую карточку можно взять, только если за тобой
			// не закреплена никакая другая в этом проекте
			assigned, err := hasOtherAssignment(tx, board.ProjectID, actor.ID, c.ID)
			if err != nil {
				return err
			}
			if assigned {
				return errAnotherCardAssigned()
			}
		}

		now := time.Now()
		row := models.TimeLog{
			CardID:    c.ID,
			UserID:    actor.ID,
			StartTime: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		if !isAssignee {
			if err := applyAssignment(tx, c, &actor.ID, actor.ID, member.ID, "захват карточки при запуске таймера"); err != nil {
				return err
			}
		}
		c.Status = models.StatusInProgress
		if err := tx.Save(c).Error; err != nil {
			return err
		}

		database.CreateAuditLog(tx, actor.ID, "timelog", row.ID, "timer_start",
			fmt.Sprintf("запущен таймер по карточке %d", c.ID))

		outs = append(outs,
			events.NewOutbound(events.ChannelCard, c.ID, events.EventTimelogStarted, actor.ID, row),
			events.NewOutbound(events.ChannelProject, board.ProjectID, events.EventCardUpdated, actor.ID, c),
		)

		logRow = &row
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return logRow, outs, nil
}

// StopTimer закрывает сессию владельца.
func (e *Engine) StopTimer(timeLogID uint, actor models.User) (*models.TimeLog, []events.Outbound, error) {
	var logRow *models.TimeLog
	var outs []events.Outbound

	err := e.db.Transaction(func(tx *gorm.DB) error {
		var row models.TimeLog
		if err := LockForUpdate(tx).First(&row, timeLogID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errTimeLogNotFound()
			}
			return err
		}

		if row.UserID != actor.ID {
			return errNotOwner()
		}
		if row.EndTime != nil {
			return errAlreadyStopped()
		}

		now := time.Now()
		// поле называется "минуты", но исторически хранит целые секунды
		secs := int(now.Sub(row.StartTime) / time.Second)
		if secs < 0 {
			secs = 0
		}
		row.EndTime = &now
		row.DurationMinutes = &secs

		if err := tx.Save(&row).Error; err != nil {
			return err
		}

		database.CreateAuditLog(tx, actor.ID, "timelog", row.ID, "timer_stop",
			fmt.Sprintf("сессия закрыта, длительность %d c", secs))

		outs = append(outs,
			events.NewOutbound(events.ChannelCard, row.CardID, events.EventTimelogStopped, actor.ID, row),
		)

		logRow = &row
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return logRow, outs, nil
}
