package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelCard    Channel = "card"    // live-состояние карточки, перезапись по ключу
	ChannelProject Channel = "project" // live-состояние доски проекта, перезапись по ключу
	ChannelUser    Channel = "user"    // персональные уведомления, история (append)
)

// имена событий realtime-контракта
const (
	EventCardUpdated    = "card:updated"
	EventCardAssigned   = "card:assigned"
	EventCardDeleted    = "card:deleted"
	EventTimelogStarted = "timelog:started"
	EventTimelogStopped = "timelog:stopped"
	EventNotification   = "notification"
)

// Payload — то, что уходит подписчикам. Потребитель применяет его как снимок,
// а не как дельту, и пропускает события со своим же actor_id.
type Payload struct {
	Event     string `json:"event"`
	ActorID   uint   `json:"actor_id"`
	Timestamp string `json:"timestamp"`
	// nonce нужен, чтобы повторная публикация того же логического события
	// всё равно выглядела изменением для пассивных слушателей
	Nonce string `json:"nonce"`
	Data  any    `json:"data,omitempty"`
}

type Outbound struct {
	Channel Channel
	Key     uint // id карточки / проекта / пользователя
	Event   string
	Payload Payload
}

func NewOutbound(ch Channel, key uint, event string, actorID uint, data any) Outbound {
	return Outbound{
		Channel: ch,
		Key:     key,
		Event:   event,
		Payload: Payload{
			Event:     event,
			ActorID:   actorID,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Nonce:     uuid.NewString(),
			Data:      data,
		},
	}
}

type Broadcaster interface {
	Publish(ctx context.Context, out Outbound) error
	Close()
}
