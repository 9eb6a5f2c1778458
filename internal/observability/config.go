package observability

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/tradesmap/internal/config"
	"github.com/smallbiznis/tradesmap/internal/observability/logger"
	gormlogger "gorm.io/gorm/logger"
)

// Config is the observability view of the process environment. Identity
// fields come from the app config; OTEL_* variables override exporters.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	// SQL statement logging. Misses are logged only at debug.
	SQLLogLevel      string
	SQLSlowThreshold time.Duration

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	return Config{
		ServiceName:          firstNonEmpty(cfg.AppName, "tradesmap"),
		Environment:          env("DEPLOYMENT_ENV", cfg.Environment),
		Version:              env("SERVICE_VERSION", cfg.AppVersion),
		LogLevel:             strings.ToLower(env("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(env("LOG_FORMAT", "json")),
		SQLLogLevel:          strings.ToLower(env("SQL_LOG_LEVEL", "warn")),
		SQLSlowThreshold:     envDuration("SQL_SLOW_THRESHOLD", 200*time.Millisecond),
		OtelEnabled:          envBool("OTEL_ENABLED", true),
		OtelExporterEndpoint: env("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
		OtelExporterProtocol: strings.ToLower(env("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", env("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
		OtelSamplingRatio:    envFloat("OTEL_SAMPLING_RATIO", 0.1),
	}
}

// Debug is true for debug logging or any local environment.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c Config) GormLogger() logger.GormLoggerConfig {
	level := gormlogger.Warn
	switch c.SQLLogLevel {
	case "silent", "off":
		level = gormlogger.Silent
	case "error":
		level = gormlogger.Error
	case "info", "debug":
		level = gormlogger.Info
	}
	if c.Debug() && level != gormlogger.Silent && level < gormlogger.Info {
		level = gormlogger.Info
	}
	return logger.GormLoggerConfig{
		Level:             level,
		SlowThreshold:     c.SQLSlowThreshold,
		LogRecordNotFound: c.SQLLogLevel == "debug",
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func env(key, def string) string {
	return firstNonEmpty(os.Getenv(key), def)
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(env(key, "")) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func envFloat(key string, def float64) float64 {
	parsed, err := strconv.ParseFloat(env(key, ""), 64)
	if err != nil {
		return def
	}
	return parsed
}

func envDuration(key string, def time.Duration) time.Duration {
	parsed, err := time.ParseDuration(env(key, ""))
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}
