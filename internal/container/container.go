package container

import (
	"cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/kcal-diary-bot/config"
	"github.com/oksasatya/kcal-diary-bot/internal/application"
	"github.com/oksasatya/kcal-diary-bot/internal/infrastructure/search"
	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
)

// app-level singletons shared with the router, which wires modules from them.
// Optional integrations (GCS, RabbitMQ, Elasticsearch) stay nil when not configured.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gcsClient   *storage.Client
	jwtManager  *helpers.JWTManager
	rabbitPub   *helpers.RabbitPublisher
	dishIndex   *search.DishIndex
	resolver    *application.CalorieResolver
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetGCS(s *storage.Client)     { gcsClient = s }
func GetGCS() *storage.Client      { return gcsClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }

func SetRabbitPub(p *helpers.RabbitPublisher)    { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher     { return rabbitPub }
func SetDishIndex(d *search.DishIndex)           { dishIndex = d }
func GetDishIndex() *search.DishIndex            { return dishIndex }
func SetResolver(r *application.CalorieResolver) { resolver = r }
func GetResolver() *application.CalorieResolver  { return resolver }
