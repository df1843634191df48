package events

import (
	"context"
	"sync"
)

// Noop используется, когда NATS_URL не задан: система работает без realtime.
type Noop struct{}

func (Noop) Publish(context.Context, Outbound) error { return nil }
func (Noop) Close()                                  {}

// Recorder копит публикации в памяти, нужен тестам.
type Recorder struct {
	mu     sync.Mutex
	Events []Outbound
}

func (r *Recorder) Publish(_ context.Context, out Outbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, out)
	return nil
}

func (r *Recorder) Close() {}

func (r *Recorder) Recorded() []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outbound(nil), r.Events...)
}
