package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/kcal-diary-bot/internal/interface/middleware"
)

// DebugModule serves the expvar counters (conversation, backfill) to private networks only.
type DebugModule struct {
	Redis redis.Cmdable
}

func NewDebugModule(rdb redis.Cmdable) *DebugModule { return &DebugModule{Redis: rdb} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rl := middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByIPAndPath(), nil)
	rg.GET("/debug/vars", middleware.OnlyAllowed(middleware.AllowPrivateIP()), rl, gin.WrapH(expvar.Handler()))
}
