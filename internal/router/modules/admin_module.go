package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/kcal-diary-bot/internal/interface/http"
	"github.com/oksasatya/kcal-diary-bot/internal/interface/middleware"
	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
)

// AdminModule mounts the bearer-protected operator API under /api/admin.
type AdminModule struct {
	Handler *handlers.AdminHandler
	JWT     *helpers.JWTManager
	Redis   redis.Cmdable
}

func NewAdminModule(h *handlers.AdminHandler, jwt *helpers.JWTManager, rdb redis.Cmdable) *AdminModule {
	return &AdminModule{Handler: h, JWT: jwt, Redis: rdb}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(
		middleware.AdminAuth(m.JWT),
		middleware.RateLimit(m.Redis, 60, time.Minute, middleware.KeyBySubject(), nil),
	)
	{
		admin.POST("/backfill", m.Handler.Backfill)
		admin.GET("/dishes/search", m.Handler.SearchDishes)
	}
}
