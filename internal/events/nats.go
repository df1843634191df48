package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	cardBucket    = "card_events"
	projectBucket = "project_events"
	notifyStream  = "NOTIFY"
)

// NATSBroadcaster — реализация поверх JetStream: KV-бакеты дают семантику
// "последнее значение по ключу" для live-каналов, стрим NOTIFY копит историю
// персональных уведомлений.
type NATSBroadcaster struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	cards    jetstream.KeyValue
	projects jetstream.KeyValue
}

func Connect(ctx context.Context, url string) (*NATSBroadcaster, error) {
	nc, err := nats.Connect(url, nats.Name("task-tracker"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	cards, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: cardBucket, History: 1})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create bucket %s: %w", cardBucket, err)
	}
	projects, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: projectBucket, History: 1})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create bucket %s: %w", projectBucket, err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     notifyStream,
		Subjects: []string{"notify.user.*"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream %s: %w", notifyStream, err)
	}

	return &NATSBroadcaster{nc: nc, js: js, cards: cards, projects: projects}, nil
}

func (b *NATSBroadcaster) Publish(ctx context.Context, out Outbound) error {
	data, err := json.Marshal(out.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	switch out.Channel {
	case ChannelCard:
		_, err = b.cards.Put(ctx, kvKey(out.Key, out.Event), data)
	case ChannelProject:
		_, err = b.projects.Put(ctx, kvKey(out.Key, out.Event), data)
	case ChannelUser:
		_, err = b.js.Publish(ctx, fmt.Sprintf("notify.user.%d", out.Key), data)
	default:
		return fmt.Errorf("unknown channel %q", out.Channel)
	}
	return err
}

func (b *NATSBroadcaster) Close() {
	b.nc.Close()
}

// двоеточие недопустимо в ключе KV
func kvKey(id uint, event string) string {
	return fmt.Sprintf("%d.%s", id, strings.ReplaceAll(event, ":", "_"))
}
