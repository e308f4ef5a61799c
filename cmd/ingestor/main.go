package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"review_analyzer/internal/adapters/observability"
	redisad "review_analyzer/internal/adapters/redis"
	"review_analyzer/internal/adapters/scorer"
	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
	"review_analyzer/internal/sentiment"
	"review_analyzer/internal/shared"
	csvstore "review_analyzer/internal/storage/csv"
	mysqlrepo "review_analyzer/internal/storage/mysql"
	sqliterepo "review_analyzer/internal/storage/sqlite"
)

func main() {
	cfg := shared.Load()

	defTarget := cfg.ReviewsSource
	if defTarget == shared.SourceCSV {
		defTarget = shared.SourceSQLite
	}
	target := flag.String("target", defTarget, "repository to fill: mysql or sqlite")
	csvPath := flag.String("csv", cfg.ReviewsCSV, "CSV dataset to ingest")
	flag.Parse()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	if err := run(cfg, *target, *csvPath); err != nil {
		log.Error().Err(err).Msg("ingestion failed")
		os.Exit(1)
	}
}

// run owns every resource it opens, so deferred closes run before main exits.
func run(cfg shared.Config, target, csvPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("csv", csvPath).
		Str("target", target).
		Int("workers", cfg.IngestWorkers).
		Msg("ingestor starting")

	var repo domain.ReviewRepository
	switch target {
	case shared.SourceMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return fmt.Errorf("sql.Open: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Msg("db ping ok")
		repo = mysqlrepo.New(db)
	case shared.SourceSQLite:
		r, err := sqliterepo.Open(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("sqlite open %s: %w", cfg.SQLitePath, err)
		}
		defer r.Close()
		repo = r
	default:
		return fmt.Errorf("target must be mysql or sqlite, got %q", target)
	}

	// Warming only pays off when there is a shared cache to warm.
	var warm domain.Scorer
	if cfg.RedisAddr != "" {
		cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer cache.Close()

		var (
			sc      domain.Scorer
			version string
		)
		if cfg.ScorerURL != "" {
			c, err := scorer.New(cfg.ScorerURL, scorer.Options{Version: cfg.ScorerVersion, RPS: cfg.ScorerRPS})
			if err != nil {
				return fmt.Errorf("scorer client: %w", err)
			}
			sc, version = c, c.Version()
		} else {
			a := sentiment.NewAnalyzer()
			sc, version = a, a.Version()
		}
		warm = sentiment.NewCachedScorer(sc, cache, version, cfg.CacheTTL)
	}

	start := time.Now()
	rep, err := app.NewIngestionService(csvstore.New(csvPath), repo, warm).Ingest(ctx, cfg.IngestWorkers)
	if err != nil {
		return err
	}
	log.Info().
		Int("rows", rep.Rows).
		Int("warmed", rep.Warmed).
		Int("warm_failures", rep.WarmFailures).
		Dur("took", time.Since(start)).
		Msg("ingestion completed")
	return nil
}
