// Package notify пишет строки уведомлений и готовит их публикацию
// в персональные каналы получателей. Доставка (push/email) — внешняя забота.
package notify

import (
	"encoding/json"

	"task-tracker/internal/events"
	"task-tracker/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Fanout создаёт по уведомлению на получателя в той же транзакции, что и
// бизнес-запись, и возвращает события для публикации после коммита.
// Получатели дедуплицируются, актор никогда не уведомляет сам себя.
func Fanout(tx *gorm.DB, recipients []uint, kind models.NotificationKind,
	card *models.Card, actor models.User, detail map[string]any) ([]events.Outbound, error) {

	var payload datatypes.JSON
	if len(detail) > 0 {
		raw, err := json.Marshal(detail)
		if err != nil {
			return nil, err
		}
		payload = datatypes.JSON(raw)
	}

	seen := map[uint]struct{}{}
	var outs []events.Outbound
	for _, id := range recipients {
		if id == 0 || id == actor.ID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		n := models.Notification{
			RecipientID: id,
			Kind:        kind,
			CardID:      card.ID,
			Title:       card.Title,
			ActorName:   actor.DisplayName,
			Detail:      payload,
		}
		if n.ActorName == "" {
			n.ActorName = actor.Username
		}
		if err := tx.Create(&n).Error; err != nil {
			return nil, err
		}

		outs = append(outs, events.NewOutbound(events.ChannelUser, id, events.EventNotification, actor.ID, n))
	}
	return outs, nil
}
