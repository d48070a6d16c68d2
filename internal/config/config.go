package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the cross-check service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Security  SecurityConfig  `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestSize  int64         `mapstructure:"max_request_size"`
}

// DatabaseConfig holds PostgreSQL configuration. Persistence is off when Enabled is false.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN builds the connection string for pgxpool
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis configuration for the lookup cache
type RedisConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	PoolSize       int           `mapstructure:"pool_size"`
	MinIdleConns   int           `mapstructure:"min_idle_conns"`
	MaxRetries     int           `mapstructure:"max_retries"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	LookupCacheTTL time.Duration `mapstructure:"lookup_cache_ttl"`
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	ClientID    string   `mapstructure:"client_id"`
	EventsTopic string   `mapstructure:"events_topic"`
	AlertsTopic string   `mapstructure:"alerts_topic"`
}

// SourcesConfig holds external lookup source configuration
type SourcesConfig struct {
	PortalAPIKey      string        `mapstructure:"portal_api_key"`
	PortalBaseURL     string        `mapstructure:"portal_base_url"`
	ReceitaBaseURL    string        `mapstructure:"receita_base_url"`
	PNCPBaseURL       string        `mapstructure:"pncp_base_url"`
	PNCPLookbackDays  int           `mapstructure:"pncp_lookback_days"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxRetries        uint64        `mapstructure:"max_retries"`
	LookupDeadline    time.Duration `mapstructure:"lookup_deadline"`
	LatencyWarning    time.Duration `mapstructure:"latency_warning"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerOpenPeriod time.Duration `mapstructure:"breaker_open_period"`
}

// AnalysisConfig holds the local cross-check run configuration
type AnalysisConfig struct {
	SanctionsPath      string  `mapstructure:"sanctions_path"`
	ContractsPath      string  `mapstructure:"contracts_path"`
	OutputDir          string  `mapstructure:"output_dir"`
	Shards             int     `mapstructure:"shards"`
	HighValueThreshold float64 `mapstructure:"high_value_threshold"`
	SystemicRatePct    float64 `mapstructure:"systemic_rate_pct"`
}

// HighValue returns the high-value threshold as a decimal
func (c AnalysisConfig) HighValue() decimal.Decimal {
	return decimal.NewFromFloat(c.HighValueThreshold)
}

// SystemicRate returns the systemic-rate threshold as a decimal
func (c AnalysisConfig) SystemicRate() decimal.Decimal {
	return decimal.NewFromFloat(c.SystemicRatePct)
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName   string  `mapstructure:"service_name"`
	Environment   string  `mapstructure:"environment"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
	Debug         bool    `mapstructure:"debug"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	JWTSecret          string   `mapstructure:"jwt_secret"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
}

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith loads configuration into a caller-provided viper instance, so CLI flags
// bound to it take precedence over files and env.
func LoadWith(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("CROSSCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/crosscheck")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults + env
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values no component can work with
func (c *Config) Validate() error {
	var problems []string

	if c.Analysis.Shards < 1 {
		problems = append(problems, "analysis.shards must be at least 1")
	}
	if c.Analysis.HighValueThreshold < 0 {
		problems = append(problems, "analysis.high_value_threshold must not be negative")
	}
	if c.Analysis.SystemicRatePct < 0 {
		problems = append(problems, "analysis.systemic_rate_pct must not be negative")
	}
	if c.Sources.RequestTimeout <= 0 {
		problems = append(problems, "sources.request_timeout must be positive")
	}
	if c.Sources.PNCPLookbackDays < 0 {
		problems = append(problems, "sources.pncp_lookback_days must not be negative")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		problems = append(problems, "telemetry.sampling_ratio must be within [0,1]")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		problems = append(problems, "kafka.brokers is required when kafka is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s") // analyses over large CSVs
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_request_size", 1048576) // 1MB

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "crosscheck_db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("redis.lookup_cache_ttl", "6h")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "crosscheck")
	v.SetDefault("kafka.events_topic", "integrity.crosscheck.events")
	v.SetDefault("kafka.alerts_topic", "integrity.crosscheck.alerts")

	// Source defaults
	v.SetDefault("sources.portal_api_key", "")
	v.SetDefault("sources.portal_base_url", "https://api.portaldatransparencia.gov.br/api-de-dados")
	v.SetDefault("sources.receita_base_url", "https://www.receitaws.com.br")
	v.SetDefault("sources.pncp_base_url", "https://pncp.gov.br")
	v.SetDefault("sources.pncp_lookback_days", 365)
	v.SetDefault("sources.request_timeout", "15s")
	v.SetDefault("sources.max_retries", 2)
	v.SetDefault("sources.lookup_deadline", "30s")
	v.SetDefault("sources.latency_warning", "5s")
	v.SetDefault("sources.breaker_failures", 5)
	v.SetDefault("sources.breaker_open_period", "60s")

	// Analysis defaults
	v.SetDefault("analysis.sanctions_path", "data/raw/ceis.csv")
	v.SetDefault("analysis.contracts_path", "data/raw/contratos.csv")
	v.SetDefault("analysis.output_dir", "data/processed")
	v.SetDefault("analysis.shards", 1)
	v.SetDefault("analysis.high_value_threshold", 1000000.0)
	v.SetDefault("analysis.systemic_rate_pct", 5.0)

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "crosscheck")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.sampling_ratio", 0.1)
	v.SetDefault("telemetry.debug", false)

	// Security defaults
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.rate_limit_per_minute", 600)
	v.SetDefault("security.allowed_origins", []string{"*"})
}
