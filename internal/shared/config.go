package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Dataset sources for the review store.
const (
	SourceCSV    = "csv"
	SourceMySQL  = "mysql"
	SourceSQLite = "sqlite"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	ReviewsSource string
	ReviewsCSV    string
	MySQLDSN      string
	SQLitePath    string
	LocationsFile string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	ScorerURL     string
	ScorerRPS     int
	ScorerVersion string
	ScoreWorkers  int

	MaxBodyBytes   int64
	SubmitRPS      float64
	RequestTimeout time.Duration
	IngestWorkers  int
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env entries.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be loaded")
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    httpAddr(),
		MetricsAddr: env("METRICS_ADDR", ""),

		ReviewsSource: strings.ToLower(env("REVIEWS_SOURCE", SourceCSV)),
		ReviewsCSV:    env("REVIEWS_CSV", "data/reviews.csv"),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4&loc=Local"),
		SQLitePath:    env("SQLITE_PATH", "data/reviews.db"),
		LocationsFile: env("LOCATIONS_FILE", ""),

		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 86400)) * time.Second,

		ScorerURL:     env("SCORER_URL", ""),
		ScorerRPS:     atoi("SCORER_RPS", 20),
		ScorerVersion: env("SCORER_VERSION", "remote"),
		ScoreWorkers:  atoi("SCORE_WORKERS", 4),

		MaxBodyBytes:   int64(atoi("MAX_BODY_BYTES", 1<<20)),
		SubmitRPS:      atof("SUBMIT_RPS", 0),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		IngestWorkers:  atoi("INGEST_WORKERS", 8),
	}
	switch c.ReviewsSource {
	case SourceCSV, SourceMySQL, SourceSQLite:
	default:
		log.Warn().Str("source", c.ReviewsSource).Msg("unknown REVIEWS_SOURCE, using csv")
		c.ReviewsSource = SourceCSV
	}
	if c.RedisAddr == "" {
		log.Info().Msg("REDIS_ADDR is empty, sentiment cache disabled")
	}
	return c
}

// httpAddr prefers HTTP_ADDR, then PORT, then :8000.
func httpAddr() string {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		return v
	}
	if p := os.Getenv("PORT"); p != "" {
		return ":" + p
	}
	return ":8000"
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
	}
	return def
}

func atof(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not a number, using default")
	}
	return def
}
