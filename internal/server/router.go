package server

import (
	"net/http"

	"task-tracker/internal/config"
	"task-tracker/internal/handlers"
	"task-tracker/internal/middleware"
	"task-tracker/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("cardpriority", func(fl validator.FieldLevel) bool {
		switch models.CardPriority(fl.Field().String()) {
		case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("cardstatus", func(fl validator.FieldLevel) bool {
		switch models.CardStatus(fl.Field().String()) {
		case models.StatusTodo, models.StatusInProgress, models.StatusReview, models.StatusDone:
			return true
		}
		return false
	})
}

func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.Default()

	registerValidators()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("tracker_session", store))

	r.Use(middleware.InjectUser(cfg.JWTSecret))

	api := r.Group("/api")

	// AUTH
	api.POST("/register", handlers.Register)
	api.POST("/login", handlers.Login)
	api.POST("/logout", handlers.Logout)

	auth := api.Group("/")
	auth.Use(middleware.RequireAuth())

	// ПРОЕКТЫ
	auth.POST("/projects", handlers.CreateProject)
	auth.GET("/projects", handlers.ListProjects)
	auth.GET("/projects/:id", handlers.GetProject)
	auth.POST("/projects/:id/complete", handlers.CompleteProject)
	auth.POST("/projects/:id/members", handlers.AddMember)
	auth.POST("/projects/:id/boards", handlers.CreateBoard)
	auth.GET("/projects/:id/boards", handlers.ListBoards)

	// ДОСКИ И КАРТОЧКИ
	auth.POST("/boards/:id/cards", handlers.CreateCard)
	auth.GET("/boards/:id/cards", handlers.ListBoardCards)
	auth.GET("/cards/:id", handlers.GetCard)
	auth.PATCH("/cards/:id", handlers.UpdateCard)
	auth.DELETE("/cards/:id", handlers.DeleteCard)
	auth.POST("/cards/:id/assign", handlers.AssignCard)

	// УЧЁТ ВРЕМЕНИ
	auth.POST("/cards/:id/timer/start", handlers.StartTimer)
	auth.POST("/timelogs/:id/stop", handlers.StopTimer)
	auth.GET("/cards/:id/timelogs", handlers.ListCardTimeLogs)

	// СВЕРХУРОЧНЫЕ
	auth.POST("/cards/:id/overtime", handlers.RequestOvertime)
	auth.GET("/cards/:id/overtime", handlers.ListCardOvertime)
	auth.POST("/overtime/:id/resolve", handlers.ResolveOvertime)

	// УВЕДОМЛЕНИЯ
	auth.GET("/notifications", handlers.ListMyNotifications)
	auth.POST("/notifications/:id/read", handlers.MarkNotificationRead)

	// АУДИТ
	auth.GET("/audit",
		middleware.RequireGlobalRole(models.RoleAdmin),
		handlers.ListAuditLogs,
	)

	// СЛУЖЕБНОЕ
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}
