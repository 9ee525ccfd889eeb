package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/kcal-diary-bot/config"
	pginfra "github.com/oksasatya/kcal-diary-bot/internal/infrastructure/postgres"
	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
)

func main() {
	file := flag.String("file", "data/calories_seed.csv", "name,kcal_per_100g CSV to load")
	token := flag.String("token", "", "print an access token for this subject and exit")
	role := flag.String("role", "admin", "role claim of the printed token: admin or transport")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	if *token != "" {
		tok, exp, err := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL).GenerateAccessToken(*token, *role)
		if err != nil {
			logger.WithError(err).Fatal("failed to sign token")
		}
		fmt.Printf("%s\n# expires %s\n", tok, exp.Format("2006-01-02 15:04:05 MST"))
		return
	}

	ctx := context.Background()
	f, err := os.Open(*file)
	if err != nil {
		logger.WithError(err).Fatal("failed to open seed file")
	}
	defer f.Close()

	entries, err := parseSeed(f)
	if err != nil {
		logger.WithError(err).Fatal("invalid seed file")
	}

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()
	if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	repo := pginfra.NewCalorieRepository(pool)
	inserted := 0
	for i := range entries {
		ok, err := repo.Upsert(ctx, &entries[i])
		if err != nil {
			logger.WithError(err).WithField("dish", entries[i].Name).Fatal("failed to seed dish")
		}
		if ok {
			inserted++
		}
	}
	logger.WithFields(logrus.Fields{"rows": len(entries), "inserted": inserted}).Info("calorie seed loaded")
}
