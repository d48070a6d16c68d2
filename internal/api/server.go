// Package api exposes analyses, alerts and document lookups over HTTP
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/integrity/sanctions-crosscheck/internal/config"
	"github.com/integrity/sanctions-crosscheck/internal/metrics"
	"github.com/integrity/sanctions-crosscheck/internal/pkg/logger"
	"github.com/integrity/sanctions-crosscheck/internal/telemetry"
)

// Deps are the services behind the routes
type Deps struct {
	Analyzer Analyzer
	Screener Screener
	Alerts   AlertStore
	Checks   map[string]HealthCheck
	Metrics  *metrics.Metrics
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// NewServer builds the echo instance with middleware and routes
func NewServer(cfg *config.Config, deps Deps, log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Security.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
	}))
	if cfg.Server.MaxRequestSize > 0 {
		e.Use(middleware.BodyLimit(formatBytes(cfg.Server.MaxRequestSize)))
	}

	h := &Handlers{
		analyzer: deps.Analyzer,
		screener: deps.Screener,
		alerts:   deps.Alerts,
		checks:   deps.Checks,
		metrics:  deps.Metrics,
		log:      log.Named("api"),
	}

	e.GET("/health", h.health)
	e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))

	v1 := e.Group("/api/v1")
	if cfg.Security.RateLimitPerMinute > 0 {
		v1.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(cfg.Security.RateLimitPerMinute) / 60),
				Burst:     cfg.Security.RateLimitPerMinute,
				ExpiresIn: 3 * time.Minute,
			},
		)))
	}
	if cfg.Security.JWTSecret != "" {
		v1.Use(BearerAuth(cfg.Security.JWTSecret))
	}

	v1.POST("/analyses", h.runAnalysis)
	v1.GET("/alerts", h.listAlerts)
	v1.POST("/alerts/:id/review", h.reviewAlert)
	v1.GET("/lookup/:document", h.lookup)

	return e
}

func requestLogger(log *logger.Logger) echo.MiddlewareFunc {
	httpLog := log.Named("http")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.String("request_id", v.RequestID),
				logger.DurationField("latency", v.Latency),
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				if v.Error != nil {
					fields = append(fields, logger.ErrorField(v.Error))
				}
				httpLog.Error("request", fields...)
			case v.Error != nil:
				httpLog.Info("request error", append(fields, logger.ErrorField(v.Error))...)
			default:
				httpLog.Info("request", fields...)
			}
			return nil
		},
	})
}

func errorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := http.StatusText(status)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
		}

		resp := ErrorResponse{
			Error:     msg,
			RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
			TraceID:   telemetry.TraceID(c.Request().Context()),
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, resp)
		}
		if werr != nil {
			log.Warn("Failed to write error response", logger.ErrorField(werr))
		}
	}
}

// formatBytes renders a byte count in the unit syntax BodyLimit expects
func formatBytes(n int64) string {
	switch {
	case n%(1<<20) == 0:
		return strconv.FormatInt(n>>20, 10) + "M"
	case n%(1<<10) == 0:
		return strconv.FormatInt(n>>10, 10) + "K"
	default:
		return strconv.FormatInt(n, 10) + "B"
	}
}
