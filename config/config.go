package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration loaded from environment variables.
// Defaults target local development.
type Config struct {
	AppName string
	Env     string // development, staging, production
	Port    string
	GinMode string

	// Database
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBMaxConns    int32
	DBMinConns    int32
	DBMaxConnLife time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration // 0 keeps dialog sessions forever

	// USDA FoodData Central
	USDAAPIKey  string
	USDABaseURL string
	USDATimeout time.Duration

	// Backfill
	BackfillOnStart        bool
	BackfillRetryBackoff   time.Duration
	BackfillLookupInterval time.Duration
	BackfillBusyDelay      time.Duration
	DishCatalogPath        string
	BackfillReportPrefix   string

	// Google Cloud Storage; the catalog object takes precedence over DishCatalogPath when set
	GCSBucket              string
	GCSCredentialsJSONPath string // optional; if empty, Application Default Credentials are used
	DishCatalogGCSObject   string

	// JWT (admin API)
	JWTAccessSecret string
	AccessTTL       time.Duration

	// CORS
	CORSAllowedOrigins string // comma-separated

	// Migrations
	MigrationsDir string

	// RabbitMQ
	RabbitMQURL           string
	RabbitMQBackfillQueue string

	// Elasticsearch
	ElasticsearchAddrs string // comma-separated
	ElasticsearchUser  string
	ElasticsearchPass  string
	ESDishesIndex      string

	// Debug metrics (/api/debug/vars)
	DebugMetricsEnabled bool

	// HTTP access log toggle (Gin logger)
	HTTPLogEnabled bool

	// Requests per minute accepted on POST /api/events per client; 0 disables the limit
	EventsRateLimit int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %v, using default %v", key, err, def)
			return def
		}
		return b
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid int for %s: %v, using default %d", key, err, def)
			return def
		}
		return i
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using default %v", key, err, def)
			return def
		}
		return d
	}
	return def
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		AppName: getenv("APP_NAME", "kcal-diary-bot"),
		Env:     getenv("APP_ENV", "development"),
		Port:    getenv("PORT", "8080"),
		GinMode: getenv("GIN_MODE", "release"),

		DBHost:        getenv("DB_HOST", "localhost"),
		DBPort:        getenv("DB_PORT", "5432"),
		DBUser:        getenv("DB_USER", "postgres"),
		DBPassword:    getenv("DB_PASSWORD", "postgres"),
		DBName:        getenv("DB_NAME", "kcal"),
		DBSSLMode:     getenv("DB_SSLMODE", "disable"),
		DBMaxConns:    int32(getint("DB_MAX_CONNS", 10)),
		DBMinConns:    int32(getint("DB_MIN_CONNS", 2)),
		DBMaxConnLife: getdur("DB_MAX_CONN_LIFETIME", time.Hour),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),
		SessionTTL:    getdur("SESSION_TTL", 24*time.Hour),

		USDAAPIKey:  getenv("USDA_API_KEY", ""),
		USDABaseURL: getenv("USDA_BASE_URL", "https://api.nal.usda.gov/fdc/v1"),
		USDATimeout: getdur("USDA_TIMEOUT", 10*time.Second),

		BackfillOnStart:        getbool("BACKFILL_ON_START", true),
		BackfillRetryBackoff:   getdur("BACKFILL_RETRY_BACKOFF", 500*time.Millisecond),
		BackfillLookupInterval: getdur("BACKFILL_LOOKUP_INTERVAL", 500*time.Millisecond),
		BackfillBusyDelay:      getdur("BACKFILL_BUSY_DELAY", 30*time.Second),
		DishCatalogPath:        getenv("DISH_CATALOG_PATH", "data/food101_classes.txt"),
		BackfillReportPrefix:   getenv("BACKFILL_REPORT_PREFIX", "backfill-reports"),

		GCSBucket:              getenv("GCS_BUCKET", ""),
		GCSCredentialsJSONPath: getenv("GCS_CREDENTIALS_JSON", ""),
		DishCatalogGCSObject:   getenv("DISH_CATALOG_GCS_OBJECT", ""),

		JWTAccessSecret: getenv("JWT_ACCESS_SECRET", "devaccesssecret"),
		AccessTTL:       getdur("JWT_ACCESS_TTL", time.Hour),

		CORSAllowedOrigins: getenv("CORS_ALLOWED_ORIGINS", ""),

		MigrationsDir: getenv("MIGRATIONS_DIR", "db/migrations"),

		RabbitMQURL:           getenv("RABBITMQ_URL", ""),
		RabbitMQBackfillQueue: getenv("RABBITMQ_BACKFILL_QUEUE", "backfill_jobs"),

		ElasticsearchAddrs: getenv("ELASTICSEARCH_ADDRS", ""),
		ElasticsearchUser:  getenv("ELASTICSEARCH_USERNAME", ""),
		ElasticsearchPass:  getenv("ELASTICSEARCH_PASSWORD", ""),
		ESDishesIndex:      getenv("ES_DISHES_INDEX", "dishes"),

		DebugMetricsEnabled: getbool("DEBUG_METRICS_ENABLED", true),
		HTTPLogEnabled:      getbool("HTTP_LOG_ENABLED", false),
		EventsRateLimit:     getint("EVENTS_RATE_LIMIT", 60),
	}
}

// PostgresDSN returns a pgx URL DSN; credentials are escaped.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

func (c *Config) CORSOrigins() []string { return splitList(c.CORSAllowedOrigins) }

func (c *Config) ESAddrs() []string { return splitList(c.ElasticsearchAddrs) }

// SearchEnabled reports whether dish indexing and search are configured.
func (c *Config) SearchEnabled() bool { return len(c.ESAddrs()) > 0 }

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
