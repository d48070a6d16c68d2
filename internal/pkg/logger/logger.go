package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with cross-check specific helpers
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	SubjectKey   ContextKey = "subject"
	TraceIDKey   ContextKey = "trace_id"
	SpanIDKey    ContextKey = "span_id"
	RunIDKey     ContextKey = "run_id"
)

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// NewNop returns a logger that discards everything. Used by tests and the CLI's quiet mode.
func NewNop() *Logger {
	return Wrap(zap.NewNop(), "nop")
}

// Wrap adapts an existing zap logger
func Wrap(z *zap.Logger, serviceName string) *Logger {
	return &Logger{Logger: z, serviceName: serviceName}
}

// ServiceName returns the service the logger was built for
func (l *Logger) ServiceName() string {
	return l.serviceName
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	for _, key := range []ContextKey{RequestIDKey, SubjectKey, TraceIDKey, SpanIDKey, RunIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithAnalysis returns a logger tagged with an analysis run
func (l *Logger) WithAnalysis(runID string) *Logger {
	return &Logger{
		Logger:      l.With(zap.String("run_id", runID)),
		serviceName: l.serviceName,
	}
}

// WithLookup returns a logger tagged with a screened document
func (l *Logger) WithLookup(reportID, identifier string) *Logger {
	return &Logger{
		Logger: l.With(
			zap.String("report_id", reportID),
			zap.String("identifier", identifier),
		),
		serviceName: l.serviceName,
	}
}

// AnalysisStarted logs the start of an analysis run
func (l *Logger) AnalysisStarted(runID, sanctionsPath, contractsPath string) {
	l.Info("analysis started",
		zap.String("run_id", runID),
		zap.String("sanctions_path", sanctionsPath),
		zap.String("contracts_path", contractsPath),
	)
}

// AnalysisCompleted logs the completion of an analysis run
func (l *Logger) AnalysisCompleted(runID string, sanctions, contracts, flagged, patterns int, durationMs int64) {
	l.Info("analysis completed",
		zap.String("run_id", runID),
		zap.Int("sanctions", sanctions),
		zap.Int("contracts", contracts),
		zap.Int("flagged", flagged),
		zap.Int("patterns", patterns),
		zap.Int64("duration_ms", durationMs),
	)
}

// PatternDetected logs a detected pattern
func (l *Logger) PatternDetected(identifier, patternKind, severity string) {
	l.Warn("suspicious pattern detected",
		zap.String("identifier", identifier),
		zap.String("pattern_kind", patternKind),
		zap.String("severity", severity),
	)
}

// SourceLookupCompleted logs one source answer during screening
func (l *Logger) SourceLookupCompleted(source string, ok bool, hits int, durationMs int64) {
	l.Debug("source lookup completed",
		zap.String("source", source),
		zap.Bool("ok", ok),
		zap.Int("hits", hits),
		zap.Int64("duration_ms", durationMs),
	)
}

// ScreeningCompleted logs the completion of a multi-source lookup
func (l *Logger) ScreeningCompleted(identifier, level string, score int, durationMs int64) {
	l.Info("screening completed",
		zap.String("identifier", identifier),
		zap.String("risk_level", level),
		zap.Int("risk_score", score),
		zap.Int64("duration_ms", durationMs),
	)
}

// AlertCreated logs alert creation
func (l *Logger) AlertCreated(alertID, alertType, identifier, priority string) {
	l.Warn("alert created",
		zap.String("alert_id", alertID),
		zap.String("alert_type", alertType),
		zap.String("identifier", identifier),
		zap.String("priority", priority),
	)
}

// LatencyWarning logs when a check exceeds expected latency
func (l *Logger) LatencyWarning(checkType string, durationMs, thresholdMs int64) {
	l.Warn("latency threshold exceeded",
		zap.String("check_type", checkType),
		zap.Int64("duration_ms", durationMs),
		zap.Int64("threshold_ms", thresholdMs),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// DurationField creates a duration field
func DurationField(name string, d time.Duration) zap.Field {
	return zap.Duration(name, d)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

// IntField creates an int field
func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}

// BoolField creates a bool field
func BoolField(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}
