package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/campusnet/modboard/src/api/audit"
	"github.com/campusnet/modboard/src/api/config"
	"github.com/campusnet/modboard/src/api/data"
	"github.com/campusnet/modboard/src/api/guest"
	"github.com/campusnet/modboard/src/api/moderation"
	"github.com/campusnet/modboard/src/api/notify"
	"github.com/campusnet/modboard/src/api/tickets"
)

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://admin.campusnet.app"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	auditLog := audit.New(db)
	notifier := notify.NewRedis(rdb)
	engine := moderation.NewEngine(db, auditLog, notifier)
	queue := moderation.NewQueue(db)
	machine := tickets.NewMachine(db, auditLog, notifier)
	assigner := tickets.NewAssigner(db, notifier)
	gate := guest.NewGate([]byte(cfg.GuestSecret), data.NewRedisRevocations(rdb))

	modH := NewModeration(engine, queue, auditLog)
	ticketH := NewTickets(db, machine, assigner)
	guestH := NewGuest(db, machine, gate)
	eventsH := NewEvents(rdb)

	guestLimiter := NewRateLimiter(30, time.Minute)

	v1 := r.Group("/v1")
	{
		secured := v1.Group("")
		secured.Use(JWTMiddleware([]byte(cfg.JWTSecret), db))
		{
			secured.POST("/moderation/decide", modH.Decide)
			secured.GET("/moderation/queue", modH.Queue)
			secured.GET("/audit", modH.Audit)

			secured.GET("/tickets", ticketH.List)
			secured.POST("/tickets", ticketH.Create)
			secured.GET("/tickets/:id", ticketH.Get)
			secured.PUT("/tickets/:id/status", ticketH.SetStatus)
			secured.POST("/tickets/:id/reply", ticketH.Reply)
			secured.PUT("/tickets/:id/assignee", ticketH.Assignee)

			secured.GET("/events", eventsH.Stream)
		}

		guests := v1.Group("/guest")
		guests.Use(RateLimitMiddleware(guestLimiter))
		{
			guests.POST("/verify", guestH.Verify)
			guests.POST("/tickets", guestH.Create)
			guests.GET("/tickets/:token", guestH.Get)
			guests.POST("/tickets/:token/reply", guestH.Reply)
		}
	}
}
