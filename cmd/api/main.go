package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	server "review_analyzer/internal/adapters/http_server"
	"review_analyzer/internal/adapters/observability"
	redisad "review_analyzer/internal/adapters/redis"
	"review_analyzer/internal/adapters/scorer"
	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
	"review_analyzer/internal/locations"
	"review_analyzer/internal/sentiment"
	"review_analyzer/internal/shared"
	csvstore "review_analyzer/internal/storage/csv"
	"review_analyzer/internal/storage/memory"
	mysqlrepo "review_analyzer/internal/storage/mysql"
	sqliterepo "review_analyzer/internal/storage/sqlite"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	registry := locations.Default()
	if cfg.LocationsFile != "" {
		r, err := locations.LoadFile(cfg.LocationsFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.LocationsFile).Msg("load locations failed")
		}
		registry = r
	}
	log.Info().Int("locations", registry.Len()).Msg("location registry ready")

	reviews, err := loadReviews(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.ReviewsSource).Msg("load reviews failed")
	}
	store := memory.New(reviews)
	observability.SetStoreSize(store.Len())
	log.Info().Int("reviews", store.Len()).Str("source", cfg.ReviewsSource).Msg("review store loaded")

	sc, closeScorer := buildScorer(ctx, cfg)
	defer closeScorer()

	q := app.NewQueryService(store, registry, sc, cfg.ScoreWorkers)
	sub := app.NewSubmissionService(registry, clockwork.NewRealClock())

	// http
	srv := server.New(server.Options{RequestTimeout: cfg.RequestTimeout, SubmitRPS: cfg.SubmitRPS})
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, S: sub, MaxBodyBytes: cfg.MaxBodyBytes})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

func loadReviews(ctx context.Context, cfg shared.Config) ([]domain.Review, error) {
	switch cfg.ReviewsSource {
	case shared.SourceMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return nil, err
		}
		log.Info().Msg("database connection ok")
		return mysqlrepo.New(db).LoadReviews(ctx)
	case shared.SourceSQLite:
		repo, err := sqliterepo.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		defer repo.Close()
		return repo.LoadReviews(ctx)
	default:
		return app.LoadDataset(ctx, csvstore.New(cfg.ReviewsCSV))
	}
}

// buildScorer picks the remote engine when SCORER_URL is set and the built-in
// analyzer otherwise, then puts the Redis cache in front when configured.
func buildScorer(ctx context.Context, cfg shared.Config) (domain.Scorer, func()) {
	var (
		sc      domain.Scorer
		version string
	)
	if cfg.ScorerURL != "" {
		c, err := scorer.New(cfg.ScorerURL, scorer.Options{Version: cfg.ScorerVersion, RPS: cfg.ScorerRPS})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize scorer client")
		}
		sc, version = c, c.Version()
		log.Info().Str("url", cfg.ScorerURL).Str("version", version).Msg("using remote scorer")
	} else {
		a := sentiment.NewAnalyzer()
		sc, version = a, a.Version()
		log.Info().Str("version", version).Msg("using built-in scorer")
	}

	if cfg.RedisAddr == "" {
		return sc, func() {}
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cache.Ping(ctx); err != nil {
		// cache errors never fail requests, so keep going without it
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
	}
	closeFn := func() {
		if err := cache.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}
	return sentiment.NewCachedScorer(sc, cache, version, cfg.CacheTTL), closeFn
}
