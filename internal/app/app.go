// Package app assembles the service components from configuration
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/integrity/sanctions-crosscheck/internal/analysis"
	"github.com/integrity/sanctions-crosscheck/internal/api"
	"github.com/integrity/sanctions-crosscheck/internal/config"
	"github.com/integrity/sanctions-crosscheck/internal/events"
	"github.com/integrity/sanctions-crosscheck/internal/metrics"
	"github.com/integrity/sanctions-crosscheck/internal/pkg/logger"
	"github.com/integrity/sanctions-crosscheck/internal/repository"
	"github.com/integrity/sanctions-crosscheck/internal/screening"
	"github.com/integrity/sanctions-crosscheck/internal/transparency"
)

// App holds every wired component. Optional backends are nil when disabled.
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Metrics   *metrics.Metrics
	Repo      *repository.Repository
	Redis     *redis.Client
	Publisher *events.Publisher
	Local     *screening.LocalRegistry
	Engine    *screening.Engine
	Analysis  *analysis.Service
}

// New connects the enabled backends and builds the services. On error every
// backend opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (a *App, err error) {
	a = &App{Config: cfg, Log: log, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	if cfg.Database.Enabled {
		a.Repo, err = repository.Connect(ctx, cfg.Database)
		if err != nil {
			return a, fmt.Errorf("connect database: %w", err)
		}
		if err = a.Repo.Migrate(ctx); err != nil {
			return a, err
		}
		log.Info("Database connected", logger.StringField("host", cfg.Database.Host))
	}

	var cache screening.ResultCache
	if cfg.Redis.Enabled {
		a.Redis = NewRedisClient(cfg.Redis)
		rc := screening.NewRedisCache(a.Redis, cfg.Redis.LookupCacheTTL)
		if err = rc.Ping(ctx); err != nil {
			return a, fmt.Errorf("connect redis: %w", err)
		}
		cache = rc
		log.Info("Redis connected", logger.StringField("addr", cfg.Redis.Addr()))
	}

	if cfg.Kafka.Enabled {
		a.Publisher, err = events.Dial(cfg.Kafka, log)
		if err != nil {
			return a, err
		}
		log.Info("Kafka producer ready", logger.IntField("brokers", len(cfg.Kafka.Brokers)))
	}

	sources := BuildSources(cfg.Sources)
	if cfg.Analysis.SanctionsPath != "" {
		a.Local = screening.NewLocalRegistry(nil, log)
		if err := a.Local.LoadFile(cfg.Analysis.SanctionsPath); err != nil {
			log.Warn("Local sanction registry unavailable", logger.ErrorField(err))
		} else {
			sources = append(sources, a.Local)
		}
	}

	a.Engine = screening.NewEngine(sources, cache, nil, a.Metrics, screening.EngineConfig{
		Deadline:       cfg.Sources.LookupDeadline,
		LatencyWarning: cfg.Sources.LatencyWarning,
	}, log)

	// Typed nils must not reach the optional interfaces.
	var store analysis.Store
	if a.Repo != nil {
		store = a.Repo
	}
	var pub analysis.Publisher
	if a.Publisher != nil {
		pub = a.Publisher
	}
	a.Analysis = analysis.NewService(analysis.OptionsFromConfig(cfg.Analysis), store, pub, a.Metrics, log)

	return a, nil
}

// BuildSources creates the remote lookup sources in reporting order
func BuildSources(cfg config.SourcesConfig) []screening.Source {
	clientCfg := transparency.ClientConfig{
		Timeout:           cfg.RequestTimeout,
		MaxRetries:        cfg.MaxRetries,
		BreakerFailures:   cfg.BreakerFailures,
		BreakerOpenPeriod: cfg.BreakerOpenPeriod,
	}

	portal := transparency.NewPortal(cfg.PortalBaseURL, cfg.PortalAPIKey, nil, clientCfg)
	var sources []screening.Source
	for _, s := range portal.Sources() {
		sources = append(sources, s)
	}
	sources = append(sources,
		transparency.NewReceita(cfg.ReceitaBaseURL, nil, clientCfg),
		transparency.NewPNCP(cfg.PNCPBaseURL, cfg.PNCPLookbackDays, nil, clientCfg),
	)
	return sources
}

// NewRedisClient maps the redis section onto client options
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// APIDeps exposes the services to the HTTP layer
func (a *App) APIDeps() api.Deps {
	deps := api.Deps{
		Analyzer: a.Analysis,
		Screener: a.Engine,
		Metrics:  a.Metrics,
		Checks:   map[string]api.HealthCheck{},
	}
	if a.Repo != nil {
		deps.Alerts = a.Repo
		deps.Checks["postgres"] = a.Repo.Ping
	}
	if a.Redis != nil {
		deps.Checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return deps
}

// Close releases every opened backend
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Repo != nil {
		a.Repo.Close()
	}
	return errors.Join(errs...)
}
