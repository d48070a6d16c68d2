package screening

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
	"github.com/integrity/sanctions-crosscheck/internal/metrics"
	"github.com/integrity/sanctions-crosscheck/internal/pkg/logger"
	"github.com/integrity/sanctions-crosscheck/internal/scoring"
)

var tracer = otel.Tracer("github.com/integrity/sanctions-crosscheck/internal/screening")

// Source is one registry or API consulted during a screening
type Source interface {
	Name() domain.SourceName
	// OrganizationOnly sources are skipped for individuals
	OrganizationOnly() bool
	Lookup(ctx context.Context, id domain.Identifier) (json.RawMessage, int, error)
}

// ResultCache stores successful lookups between screenings
type ResultCache interface {
	Get(ctx context.Context, source domain.SourceName, id domain.Identifier) (domain.SourceResult, error)
	Set(ctx context.Context, source domain.SourceName, id domain.Identifier, result domain.SourceResult) error
}

// EngineConfig bounds a screening
type EngineConfig struct {
	// Deadline caps the whole fan-out; zero means no extra deadline
	Deadline time.Duration
	// LatencyWarning logs lookups slower than this; zero disables the warning
	LatencyWarning time.Duration
}

// Engine screens one document against every registered source concurrently
type Engine struct {
	sources    []Source
	cache      ResultCache
	calculator *scoring.RiskCalculator
	metrics    *metrics.Metrics

	cfg EngineConfig
	log *logger.Logger
	now func() time.Time

	screeningCount int64
	avgLatencyMs   float64
	latencyMu      sync.RWMutex
}

// NewEngine creates a new screening engine. cache and m may be nil.
func NewEngine(
	sources []Source,
	cache ResultCache,
	calculator *scoring.RiskCalculator,
	m *metrics.Metrics,
	cfg EngineConfig,
	log *logger.Logger,
) *Engine {
	if calculator == nil {
		calculator = scoring.NewRiskCalculator(nil)
	}
	return &Engine{
		sources:    sources,
		cache:      cache,
		calculator: calculator,
		metrics:    m,
		cfg:        cfg,
		log:        log.Named("screening_engine"),
		now:        time.Now,
	}
}

// screeningContext collects results from concurrent lookups
type screeningContext struct {
	id     domain.Identifier
	bundle domain.ResultBundle
	mu     sync.Mutex
}

func (s *screeningContext) put(name domain.SourceName, result domain.SourceResult) {
	s.mu.Lock()
	s.bundle[name] = result
	s.mu.Unlock()
}

// Screen validates the document, consults every applicable source and scores the bundle.
// Source failures end up in the bundle; only an invalid document is an error.
func (e *Engine) Screen(ctx context.Context, document string) (*domain.ScreeningReport, error) {
	id, err := domain.ValidateIdentifier(document)
	if err != nil {
		return nil, err
	}

	startTime := e.now()
	reportID := uuid.New()
	log := e.log.WithLookup(reportID.String(), id.String())

	ctx, span := tracer.Start(ctx, "screening.Screen")
	defer span.End()
	span.SetAttributes(
		attribute.String("identifier.kind", string(id.Kind())),
		attribute.Int("sources", len(e.sources)),
	)

	sctx := &screeningContext{id: id, bundle: make(domain.ResultBundle, len(e.sources))}

	screenCtx := ctx
	if e.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		screenCtx, cancel = context.WithTimeout(ctx, e.cfg.Deadline)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(screenCtx)
	for _, src := range e.sources {
		if src.OrganizationOnly() && !id.IsOrganization() {
			continue
		}
		src := src
		g.Go(func() error {
			e.runLookup(gctx, log, sctx, src)
			return nil
		})
	}
	_ = g.Wait()

	assessment := e.calculator.Score(sctx.bundle)
	finishedAt := e.now()
	durationMs := finishedAt.Sub(startTime).Milliseconds()
	e.recordLatency(durationMs)

	report := &domain.ScreeningReport{
		ID:         reportID,
		Identifier: id,
		Kind:       id.Kind(),
		Formatted:  id.Formatted(),
		Sources:    sctx.bundle,
		Assessment: assessment,
		DurationMs: durationMs,
		CheckedAt:  finishedAt.UTC(),
	}

	span.SetAttributes(
		attribute.Int("risk.score", assessment.Score),
		attribute.String("risk.level", string(assessment.Level)),
	)
	e.metrics.IncrementScreening(string(assessment.Level))
	log.ScreeningCompleted(id.String(), string(assessment.Level), assessment.Score, durationMs)

	return report, nil
}

// runLookup consults the cache, then the source. It never fails the group.
func (e *Engine) runLookup(ctx context.Context, log *logger.Logger, sctx *screeningContext, src Source) {
	name := src.Name()

	if e.cache != nil {
		cached, err := e.cache.Get(ctx, name, sctx.id)
		if err == nil {
			e.metrics.IncrementCacheHit()
			sctx.put(name, cached)
			return
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Warn("lookup cache read failed", logger.StringField("source", string(name)), logger.ErrorField(err))
		}
	}

	ctx, span := tracer.Start(ctx, "screening.lookup")
	span.SetAttributes(attribute.String("source", string(name)))
	defer span.End()

	start := time.Now()
	data, count, err := src.Lookup(ctx, sctx.id)
	elapsed := time.Since(start)

	var result domain.SourceResult
	outcome := "ok"
	if err != nil {
		result = domain.ResultFromError(err)
		outcome = string(result.Err.Kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, result.Err.Message)
	} else {
		result = domain.OkResult(data, count)
	}
	sctx.put(name, result)

	e.metrics.ObserveLookup(string(name), outcome, elapsed)
	log.SourceLookupCompleted(string(name), result.OK, result.Hits(), elapsed.Milliseconds())
	if e.cfg.LatencyWarning > 0 && elapsed > e.cfg.LatencyWarning {
		log.LatencyWarning(string(name), elapsed.Milliseconds(), e.cfg.LatencyWarning.Milliseconds())
	}

	if e.cache != nil && result.OK {
		if err := e.cache.Set(ctx, name, sctx.id, result); err != nil {
			log.Warn("lookup cache write failed", logger.StringField("source", string(name)), logger.ErrorField(err))
		}
	}
}

// Stats is a snapshot of screening activity since the engine started
type Stats struct {
	Screenings   int64   `json:"screenings"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// recordLatency folds one screening into the moving latency average
func (e *Engine) recordLatency(durationMs int64) {
	e.latencyMu.Lock()
	defer e.latencyMu.Unlock()

	e.screeningCount++
	if e.screeningCount == 1 {
		e.avgLatencyMs = float64(durationMs)
		return
	}
	// Exponential moving average
	e.avgLatencyMs = e.avgLatencyMs*0.9 + float64(durationMs)*0.1
}

// Stats returns the screening count and average latency
func (e *Engine) Stats() Stats {
	e.latencyMu.RLock()
	defer e.latencyMu.RUnlock()
	return Stats{Screenings: e.screeningCount, AvgLatencyMs: e.avgLatencyMs}
}
