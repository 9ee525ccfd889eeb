package router

import (
	"github.com/oksasatya/kcal-diary-bot/internal/application"
	"github.com/oksasatya/kcal-diary-bot/internal/container"
	pginfra "github.com/oksasatya/kcal-diary-bot/internal/infrastructure/postgres"
	"github.com/oksasatya/kcal-diary-bot/internal/infrastructure/redisstore"
	handlers "github.com/oksasatya/kcal-diary-bot/internal/interface/http"
	"github.com/oksasatya/kcal-diary-bot/internal/router/modules"
)

type ConversationModuleDeps struct {
	Service  *application.ConversationService
	Profiles *application.ProfileService
}

func buildConversationDeps() ConversationModuleDeps {
	cfg := container.GetConfig()
	pool := container.GetPGPool()

	users := pginfra.NewUserRepository(pool)
	meals := pginfra.NewMealRepository(pool)
	sessions := redisstore.NewSessionRepository(container.GetRedis(), cfg.SessionTTL)
	profiles := application.NewProfileService(users, meals)

	var indexer application.DishIndexer
	if idx := container.GetDishIndex(); idx != nil {
		indexer = idx
	}
	svc := application.NewConversationService(users, meals, sessions, container.GetResolver(), profiles, indexer, container.GetLogger())

	return ConversationModuleDeps{Service: svc, Profiles: profiles}
}

func buildAdminHandler() *handlers.AdminHandler {
	h := handlers.NewAdminHandler(nil, nil, container.GetLogger())
	if pub := container.GetRabbitPub(); pub != nil {
		h.Jobs = pub
	}
	if idx := container.GetDishIndex(); idx != nil {
		h.Dishes = idx
	}
	return h
}

// InitModules wires every module from the container singletons. Call it once at startup,
// after the container is populated.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	rdb := container.GetRedis()

	conv := buildConversationDeps()
	r.Add(modules.NewConversationModule(
		handlers.NewEventHandler(conv.Service),
		handlers.NewProfileHandler(conv.Profiles, container.GetLogger()),
		container.GetJWT(),
		rdb,
		cfg.EventsRateLimit,
	))
	r.Add(modules.NewAdminModule(buildAdminHandler(), container.GetJWT(), rdb))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(rdb))
	}
}
