// Package analysis runs the batch cross-check of sanction registries against public contracts
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/integrity/sanctions-crosscheck/internal/config"
	"github.com/integrity/sanctions-crosscheck/internal/crosscheck"
	"github.com/integrity/sanctions-crosscheck/internal/domain"
	"github.com/integrity/sanctions-crosscheck/internal/ingest"
	"github.com/integrity/sanctions-crosscheck/internal/metrics"
	"github.com/integrity/sanctions-crosscheck/internal/pkg/logger"
)

var tracer = otel.Tracer("github.com/integrity/sanctions-crosscheck/internal/analysis")

// ErrNoInput is returned when a run has no input paths configured
var ErrNoInput = errors.New("sanctions and contracts paths are required")

// Store persists completed runs
type Store interface {
	SaveAnalysis(ctx context.Context, run *domain.AnalysisRun) error
}

// Publisher announces completed runs
type Publisher interface {
	PublishRun(ctx context.Context, run *domain.AnalysisRun) error
}

// Options configures a Service
type Options struct {
	SanctionsPath string
	ContractsPath string
	Shards        int
	Thresholds    crosscheck.Thresholds
}

// OptionsFromConfig maps the analysis section of the configuration
func OptionsFromConfig(cfg config.AnalysisConfig) Options {
	return Options{
		SanctionsPath: cfg.SanctionsPath,
		ContractsPath: cfg.ContractsPath,
		Shards:        cfg.Shards,
		Thresholds: crosscheck.Thresholds{
			HighValue:    cfg.HighValue(),
			SystemicRate: cfg.SystemicRate(),
		},
	}
}

// Service runs cross-check analyses. Store, publisher and metrics are optional.
type Service struct {
	opts      Options
	store     Store
	publisher Publisher
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates an analysis service
func NewService(opts Options, store Store, publisher Publisher, m *metrics.Metrics, log *logger.Logger) *Service {
	if opts.Shards < 1 {
		opts.Shards = 1
	}
	return &Service{
		opts:      opts,
		store:     store,
		publisher: publisher,
		metrics:   m,
		log:       log.Named("analysis"),
		now:       time.Now,
	}
}

// Run analyses the configured input files
func (s *Service) Run(ctx context.Context) (*domain.AnalysisRun, error) {
	return s.RunFiles(ctx, s.opts.SanctionsPath, s.opts.ContractsPath)
}

// RunFiles loads both CSVs and analyses them. A storage failure is returned
// together with the completed run; a publishing failure is only logged.
func (s *Service) RunFiles(ctx context.Context, sanctionsPath, contractsPath string) (run *domain.AnalysisRun, err error) {
	if sanctionsPath == "" || contractsPath == "" {
		return nil, ErrNoInput
	}

	start := s.now()
	runID := uuid.New()
	log := s.log.WithAnalysis(runID.String())
	log.AnalysisStarted(runID.String(), sanctionsPath, contractsPath)

	ctx, span := tracer.Start(ctx, "analysis.Run")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", runID.String()))

	defer func() {
		flagged, value := 0, 0.0
		if run != nil {
			flagged = run.Summary.FlaggedCount
			value = run.Summary.TotalFlaggedValue.InexactFloat64()
		}
		s.metrics.ObserveAnalysis(start, err, flagged, value)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	sanctions, err := ingest.LoadSanctions(sanctionsPath)
	if err != nil {
		return nil, err
	}
	contracts, err := ingest.LoadContracts(contractsPath)
	if err != nil {
		return nil, err
	}

	run, err = s.analyse(ctx, runID, start, sanctions, contracts)
	if err != nil {
		return nil, err
	}
	run.SanctionsPath = sanctionsPath
	run.ContractsPath = contractsPath

	span.SetAttributes(
		attribute.Int("sanctions", run.Summary.SanctionsCount),
		attribute.Int("contracts", run.Summary.ContractsCount),
		attribute.Int("flagged", run.Summary.FlaggedCount),
		attribute.Int("patterns", len(run.Patterns)),
	)
	log.AnalysisCompleted(runID.String(), run.Summary.SanctionsCount, run.Summary.ContractsCount,
		run.Summary.FlaggedCount, len(run.Patterns), run.Duration().Milliseconds())

	if s.store != nil {
		if err := s.store.SaveAnalysis(ctx, run); err != nil {
			log.Error("Failed to persist analysis", logger.ErrorField(err))
			return run, fmt.Errorf("persist analysis: %w", err)
		}
	}
	if s.publisher != nil {
		if perr := s.publisher.PublishRun(ctx, run); perr != nil {
			log.Error("Failed to publish analysis", logger.ErrorField(perr))
		}
	}
	return run, nil
}

// Analyse cross-checks records already in memory
func (s *Service) Analyse(ctx context.Context, sanctions []domain.SanctionRecord, contracts []domain.ContractRecord) (*domain.AnalysisRun, error) {
	return s.analyse(ctx, uuid.New(), s.now(), sanctions, contracts)
}

func (s *Service) analyse(
	ctx context.Context,
	runID uuid.UUID,
	start time.Time,
	sanctions []domain.SanctionRecord,
	contracts []domain.ContractRecord,
) (*domain.AnalysisRun, error) {
	idx := crosscheck.NewIndex(sanctions)

	var flagged []domain.FlaggedPair
	if s.opts.Shards > 1 {
		var err error
		flagged, err = crosscheck.MatchSharded(ctx, idx, contracts, s.opts.Shards)
		if err != nil {
			return nil, fmt.Errorf("match contracts: %w", err)
		}
	} else {
		flagged = idx.Match(contracts)
	}

	summary := crosscheck.Aggregate(sanctions, contracts, flagged)
	patterns := s.opts.Thresholds.Detect(summary)

	completed := s.now()
	alerts := make([]domain.IntegrityAlert, 0, len(patterns))
	for _, p := range patterns {
		s.metrics.IncrementPattern(string(p.Kind))
		s.log.PatternDetected(string(p.Identifier), string(p.Kind), string(p.Severity))
		alerts = append(alerts, domain.NewAlertFromPattern(runID, p, completed))
	}

	return &domain.AnalysisRun{
		ID:          runID,
		Summary:     summary,
		Patterns:    patterns,
		Alerts:      alerts,
		StartedAt:   start,
		CompletedAt: completed,
	}, nil
}
