package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oksasatya/kcal-diary-bot/config"
	"github.com/oksasatya/kcal-diary-bot/internal/application"
	"github.com/oksasatya/kcal-diary-bot/internal/infrastructure/catalog"
	pginfra "github.com/oksasatya/kcal-diary-bot/internal/infrastructure/postgres"
	"github.com/oksasatya/kcal-diary-bot/internal/infrastructure/search"
	"github.com/oksasatya/kcal-diary-bot/internal/infrastructure/usda"
	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-backfill-worker", cfg.Env)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQBackfillQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.USDAAPIKey == "" {
		logger.Fatal("USDA_API_KEY not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	var indexer application.DishIndexer
	if cfg.SearchEnabled() {
		es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Fatal("failed to init elasticsearch client")
		}
		indexer = search.NewDishIndex(es, cfg.ESDishesIndex)
	}

	var names application.NameSource = catalog.FileSource{Path: cfg.DishCatalogPath}
	var reports application.ReportSaver
	if cfg.GCSBucket != "" {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to init GCS client")
		}
		defer func() { _ = gcs.Close() }()
		names = catalog.Select(gcs, cfg.GCSBucket, cfg.DishCatalogGCSObject, cfg.DishCatalogPath)
		reports = catalog.ReportStore{Client: gcs, Bucket: cfg.GCSBucket, Prefix: cfg.BackfillReportPrefix}
	}

	resolver := application.NewCalorieResolver(
		pginfra.NewCalorieRepository(pool),
		usda.NewClient(cfg.USDABaseURL, cfg.USDAAPIKey, cfg.USDATimeout),
		indexer,
		logger,
		application.ResolverOptions{MaxAttempts: 3, RetryBackoff: cfg.BackfillRetryBackoff, LookupInterval: cfg.BackfillLookupInterval},
	)
	svc := application.NewBackfillService(resolver, names, reports, logger)

	// one job at a time: backfill is sequential and the resolver rejects overlapping runs
	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQBackfillQueue, 1)
	if err != nil {
		logger.WithError(err).Fatal("failed to init rabbitmq consumer")
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries(ctx)
	if err != nil {
		logger.WithError(err).Fatal("consume")
	}

	logger.WithField("queue", cfg.RabbitMQBackfillQueue).Info("backfill worker listening")
	w := &worker{svc: svc, logger: logger, busyDelay: cfg.BackfillBusyDelay}
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			w.handle(ctx, msg)
		}
	}
}
