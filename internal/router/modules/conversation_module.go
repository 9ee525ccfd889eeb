package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/kcal-diary-bot/internal/interface/http"
	"github.com/oksasatya/kcal-diary-bot/internal/interface/middleware"
	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
)

// ConversationModule exposes the chat transport endpoints:
// POST /api/events and GET /api/users/:id/profile. Both need a transport or admin token.
type ConversationModule struct {
	Events    *handlers.EventHandler
	Profiles  *handlers.ProfileHandler
	JWT       *helpers.JWTManager
	Redis     redis.Cmdable
	RateLimit int // events per minute per user
}

func NewConversationModule(
	events *handlers.EventHandler,
	profiles *handlers.ProfileHandler,
	jwt *helpers.JWTManager,
	rdb redis.Cmdable,
	rateLimit int,
) *ConversationModule {
	return &ConversationModule{Events: events, Profiles: profiles, JWT: jwt, Redis: rdb, RateLimit: rateLimit}
}

func (m *ConversationModule) Register(rg *gin.RouterGroup) {
	chat := rg.Group("")
	chat.Use(middleware.TransportAuth(m.JWT))

	eventsLimiter := middleware.RateLimit(m.Redis, m.RateLimit, time.Minute, middleware.KeyByEventUser(), nil)
	profileLimiter := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyBySubject(), nil)

	chat.POST("/events", eventsLimiter, m.Events.Handle)
	chat.GET("/users/:id/profile", profileLimiter, m.Profiles.GetProfile)
}
