package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/integrity/sanctions-crosscheck/internal/analysis"
	"github.com/integrity/sanctions-crosscheck/internal/domain"
	"github.com/integrity/sanctions-crosscheck/internal/ingest"
	"github.com/integrity/sanctions-crosscheck/internal/metrics"
	"github.com/integrity/sanctions-crosscheck/internal/pkg/logger"
	"github.com/integrity/sanctions-crosscheck/internal/repository"
	"github.com/integrity/sanctions-crosscheck/internal/screening"
)

// Analyzer runs a batch cross-check over the configured inputs
type Analyzer interface {
	Run(ctx context.Context) (*domain.AnalysisRun, error)
}

// Screener screens a single document against the lookup sources
type Screener interface {
	Screen(ctx context.Context, document string) (*domain.ScreeningReport, error)
}

// StatsReporter is implemented by screeners that track their own activity
type StatsReporter interface {
	Stats() screening.Stats
}

// AlertStore lists and reviews persisted alerts
type AlertStore interface {
	ListAlerts(ctx context.Context, unreviewedOnly bool) ([]domain.IntegrityAlert, error)
	MarkReviewed(ctx context.Context, id uuid.UUID) error
}

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// Handlers serves the HTTP API. Any dependency may be nil; its routes then answer 503.
type Handlers struct {
	analyzer Analyzer
	screener Screener
	alerts   AlertStore
	checks   map[string]HealthCheck
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// AnalysisResponse is returned by POST /api/v1/analyses
type AnalysisResponse struct {
	RunID      uuid.UUID              `json:"run_id"`
	Summary    domain.AnalysisSummary `json:"summary"`
	Patterns   []domain.Pattern       `json:"patterns"`
	Alerts     int                    `json:"alerts"`
	DurationMs int64                  `json:"duration_ms"`
}

// AlertListResponse is returned by GET /api/v1/alerts
type AlertListResponse struct {
	Alerts []*domain.AlertSummary `json:"alerts"`
	Total  int                    `json:"total"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Screening *screening.Stats  `json:"screening,omitempty"`
	Time      time.Time         `json:"time"`
}

func (h *Handlers) health(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Time: time.Now().UTC()}
	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		resp.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	if reporter, ok := h.screener.(StatsReporter); ok {
		stats := reporter.Stats()
		resp.Screening = &stats
	}
	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

func (h *Handlers) runAnalysis(c echo.Context) error {
	if h.analyzer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "analysis is not configured")
	}

	run, err := h.analyzer.Run(c.Request().Context())
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrNoInput):
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, ingest.ErrMissingColumns), errors.Is(err, ingest.ErrEmptyFile):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		h.log.Error("Analysis failed", logger.ErrorField(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "analysis failed").SetInternal(err)
	}

	patterns := run.Patterns
	if patterns == nil {
		patterns = []domain.Pattern{}
	}
	return c.JSON(http.StatusOK, AnalysisResponse{
		RunID:      run.ID,
		Summary:    run.Summary,
		Patterns:   patterns,
		Alerts:     len(run.Alerts),
		DurationMs: run.Duration().Milliseconds(),
	})
}

func (h *Handlers) listAlerts(c echo.Context) error {
	if h.alerts == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "alert storage is not configured")
	}

	unreviewed := false
	if raw := c.QueryParam("unreviewed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreviewed must be a boolean")
		}
		unreviewed = v
	}

	alerts, err := h.alerts.ListAlerts(c.Request().Context(), unreviewed)
	if err != nil {
		h.log.Error("Failed to list alerts", logger.ErrorField(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list alerts").SetInternal(err)
	}

	resp := AlertListResponse{Alerts: make([]*domain.AlertSummary, 0, len(alerts)), Total: len(alerts)}
	for i := range alerts {
		resp.Alerts = append(resp.Alerts, alerts[i].ToSummary())
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handlers) reviewAlert(c echo.Context) error {
	if h.alerts == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "alert storage is not configured")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid alert id")
	}

	if err := h.alerts.MarkReviewed(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "alert not found")
		}
		h.log.Error("Failed to review alert", logger.ErrorField(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to review alert").SetInternal(err)
	}

	h.metrics.IncrementAlertReviewed()
	reviewer, _ := c.Get(SubjectContextKey).(string)
	h.log.Info("Alert reviewed",
		logger.StringField("alert_id", id.String()),
		logger.StringField("reviewer", reviewer),
	)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) lookup(c echo.Context) error {
	if h.screener == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "lookup is not configured")
	}

	document, err := url.PathUnescape(c.Param("document"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed document")
	}

	report, err := h.screener.Screen(c.Request().Context(), document)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidIdentifier) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.log.Error("Lookup failed", logger.ErrorField(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "lookup failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, report)
}
