package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/kcal-diary-bot/config"
	"github.com/oksasatya/kcal-diary-bot/internal/application"
	"github.com/oksasatya/kcal-diary-bot/internal/container"
	"github.com/oksasatya/kcal-diary-bot/internal/infrastructure/catalog"
	pginfra "github.com/oksasatya/kcal-diary-bot/internal/infrastructure/postgres"
	"github.com/oksasatya/kcal-diary-bot/internal/infrastructure/search"
	"github.com/oksasatya/kcal-diary-bot/internal/infrastructure/usda"
	"github.com/oksasatya/kcal-diary-bot/internal/interface/middleware"
	"github.com/oksasatya/kcal-diary-bot/internal/router"
	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
	"github.com/oksasatya/kcal-diary-bot/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	// backfill and event handling both need the schema, so migrations finish first
	if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetRedis(rdb)
	container.SetJWT(helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL))

	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to init GCS client")
		}
		defer func() { _ = gcsClient.Close() }()
		container.SetGCS(gcsClient)
	}

	if cfg.SearchEnabled() {
		es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Fatal("failed to init elasticsearch client")
		}
		idx := search.NewDishIndex(es, cfg.ESDishesIndex)
		if err := idx.EnsureIndex(ctx); err != nil {
			logger.WithError(err).Warn("dish index not ready; indexing calls will fail until it is")
		}
		container.SetDishIndex(idx)
	}

	if cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQBackfillQueue)
		if err != nil {
			logger.WithError(err).Fatal("failed to init rabbitmq publisher")
		}
		defer pub.Close()
		container.SetRabbitPub(pub)
	}

	resolver := newResolver(cfg, pool, logger)
	container.SetResolver(resolver)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins(),
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))
	if cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.BackfillOnStart {
		g.Go(func() error {
			startupBackfill(gctx, cfg, resolver, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("server stopped with error")
	}
	logger.Info("server exited properly")
}

func newResolver(cfg *config.Config, pool *pgxpool.Pool, logger *logrus.Logger) *application.CalorieResolver {
	var indexer application.DishIndexer
	if idx := container.GetDishIndex(); idx != nil {
		indexer = idx
	}
	src := usda.NewClient(cfg.USDABaseURL, cfg.USDAAPIKey, cfg.USDATimeout)
	opts := application.ResolverOptions{
		MaxAttempts:    3,
		RetryBackoff:   cfg.BackfillRetryBackoff,
		LookupInterval: cfg.BackfillLookupInterval,
	}
	return application.NewCalorieResolver(pginfra.NewCalorieRepository(pool), src, indexer, logger, opts)
}

// startupBackfill fills the calorie cache for the dish catalog. It never blocks event
// handling; failures are logged and the next run retries whatever is still missing.
func startupBackfill(ctx context.Context, cfg *config.Config, resolver *application.CalorieResolver, logger *logrus.Logger) {
	if cfg.USDAAPIKey == "" {
		logger.Warn("USDA_API_KEY not set; skipping startup backfill")
		return
	}
	gcs := container.GetGCS()
	names := catalog.Select(gcs, cfg.GCSBucket, cfg.DishCatalogGCSObject, cfg.DishCatalogPath)
	var reports application.ReportSaver
	if gcs != nil {
		reports = catalog.ReportStore{Client: gcs, Bucket: cfg.GCSBucket, Prefix: cfg.BackfillReportPrefix}
	}

	svc := application.NewBackfillService(resolver, names, reports, logger)
	if _, err := svc.Run(ctx, application.NewBackfillJob("startup", nil)); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("startup backfill failed")
	}
}
