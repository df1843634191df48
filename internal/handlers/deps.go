package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"task-tracker/internal/engine"
	"task-tracker/internal/events"
	"task-tracker/internal/metrics"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	eng         *engine.Engine
	broadcaster events.Broadcaster = events.Noop{}
	jwtSecret   string
)

func Init(db *gorm.DB, bc events.Broadcaster, secret string) {
	eng = engine.New(db)
	if bc != nil {
		broadcaster = bc
	}
	jwtSecret = secret
}

// publish отправляет события строго после коммита; ответ клиенту их не ждёт,
// а ошибка публикации никогда не отменяет уже сохранённое состояние
func publish(outs []events.Outbound) {
	if len(outs) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, out := range outs {
			if err := broadcaster.Publish(ctx, out); err != nil {
				log.Printf("failed to publish %s to %s/%d: %v", out.Event, out.Channel, out.Key, err)
				metrics.EventPublishes.WithLabelValues(string(out.Channel), "error").Inc()
				continue
			}
			metrics.EventPublishes.WithLabelValues(string(out.Channel), "ok").Inc()
		}
	}()
}

func respondEngineError(c *gin.Context, op string, err error) {
	if e, ok := engine.AsEngineError(err); ok {
		metrics.EngineOps.WithLabelValues(op, string(e.Kind)).Inc()
		c.JSON(statusFor(e.Kind), e)
		return
	}
	metrics.EngineOps.WithLabelValues(op, "internal").Inc()
	log.Printf("%s failed: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal",
		"message": "Внутренняя ошибка",
	})
}

func statusFor(kind engine.Kind) int {
	switch kind {
	case engine.KindAuthorization:
		return http.StatusForbidden
	case engine.KindValidation:
		return http.StatusBadRequest
	case engine.KindConflict:
		return http.StatusConflict
	case engine.KindNotFound:
		return http.StatusNotFound
	case engine.KindState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func opOK(op string) {
	metrics.EngineOps.WithLabelValues(op, "ok").Inc()
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": "bad_id", "message": "Некорректный ID"})
		return 0, false
	}
	return uint(id), true
}
