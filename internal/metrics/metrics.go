package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// операции движка по исходу: ok / ошибка движка / внутренняя ошибка
	EngineOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_engine_operations_total",
		Help: "Engine operations by outcome.",
	}, []string{"op", "outcome"})

	EventPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_event_publishes_total",
		Help: "Realtime event publishes by result.",
	}, []string{"channel", "result"})
)
