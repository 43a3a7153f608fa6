// Package app wires configuration into the stores and services shared by the
// worker runtime and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"job-matcher/internal/common/camunda"
	"job-matcher/internal/common/config"
	"job-matcher/internal/common/database"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/common/validation"
	"job-matcher/internal/matching"
	"job-matcher/internal/notify"
	"job-matcher/internal/pipeline"
	"job-matcher/internal/search"
	"job-matcher/internal/store"
)

var startupRetry = &camunda.RetryConfig{
	MaxRetries: 15,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

type App struct {
	Config *config.Config
	DB     *sql.DB
	Redis  *redis.Client
	Index  *search.MatchIndex

	Matrices     *store.MatrixStore
	Matches      *store.MatchRepository
	Stages       *store.StageRegistry
	Applications *store.ApplicationRepository

	Notifier notify.Notifier
	Matching *matching.Service
	Pipeline *pipeline.Engine

	logger logger.Logger
}

// New connects PostgreSQL and Redis, retrying transient failures, and
// enables the Elasticsearch read-model when it is configured and reachable.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, obs *observability.Observability) (*App, error) {
	a := &App{Config: cfg, logger: log}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	if err := camunda.Retry(ctx, startupRetry, pg.Ping); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("postgres unavailable: %w", err)
	}
	a.DB = pg.DB
	log.Info("PostgreSQL connected", map[string]interface{}{"host": cfg.Database.Postgres.Host})

	if cfg.Database.Postgres.AutoMigrate {
		applied, err := database.Migrate(ctx, a.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		log.Info("migrations applied", map[string]interface{}{"applied": applied})
	}

	a.Redis = database.NewRedis(cfg.Database.Redis)
	if err := camunda.Retry(ctx, startupRetry, func(ctx context.Context) error {
		return database.PingRedis(ctx, a.Redis)
	}); err != nil {
		a.Close()
		return nil, fmt.Errorf("redis unavailable: %w", err)
	}
	log.Info("Redis connected", map[string]interface{}{"address": cfg.Database.Redis.Address})

	a.Index = a.openIndex(ctx)

	validator, err := validation.NewMatrixValidator()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Matrices = store.NewMatrixStore(a.DB, validator)
	a.Matches = store.NewMatchRepository(a.DB)
	a.Stages = store.NewStageRegistry(a.DB, cfg.Pipeline.DefaultStages, log)
	a.Applications = store.NewApplicationRepository(a.DB)
	a.Notifier = notify.NewEmitter(a.Redis, cfg.Notifications, log)

	a.Matching = matching.NewService(a.Matrices, a.Matches, a.Index, a.Notifier,
		matching.NewScorer(cfg.Matching), obs, log)
	a.Pipeline = pipeline.NewEngine(a.Applications, a.Stages, a.Notifier, cfg.Pipeline, obs, log)
	return a, nil
}

// openIndex never fails; ranking falls back to PostgreSQL without it.
func (a *App) openIndex(ctx context.Context) *search.MatchIndex {
	esCfg := a.Config.Database.Elasticsearch
	disabled := search.NewMatchIndex(nil, esCfg.Index)
	if !esCfg.Enabled() || !a.Config.Matching.IndexMatches {
		return disabled
	}

	es, err := database.NewElasticsearch(esCfg)
	if err == nil {
		err = database.PingElasticsearch(ctx, es)
	}
	if err != nil {
		a.logger.Warn("elasticsearch unavailable, match index disabled", map[string]interface{}{"error": err.Error()})
		return disabled
	}

	index := search.NewMatchIndex(es, esCfg.Index)
	if err := index.EnsureIndex(ctx); err != nil {
		a.logger.Warn("failed to ensure match index, match index disabled", map[string]interface{}{"error": err.Error()})
		return disabled
	}
	a.logger.Info("Elasticsearch connected", map[string]interface{}{"index": esCfg.Index})
	return index
}

// Ready reports whether the backing stores answer.
func (a *App) Ready(ctx context.Context) error {
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := database.PingRedis(ctx, a.Redis); err != nil {
		return err
	}
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.logger.Warn("failed to close postgres", map[string]interface{}{"error": err.Error()})
		}
	}
}
