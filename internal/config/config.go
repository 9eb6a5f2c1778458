package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	AppBaseURL       string
	AuthCookieSecure bool

	OTLPEndpoint string

	Session   SessionConfig
	Geocoding GeocodingConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig

	CompanyProvisioning string
	TradesConfigPath    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

type SessionConfig struct {
	TTL      time.Duration
	Capacity int
}

type GeocodingConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Cache    string
	CacheTTL time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled     bool
	SignInRate  float64
	SignInBurst int
	SyncLockTTL time.Duration
}

const (
	ProvisioningDatabase = "database"
	ProvisioningDisabled = "disabled"

	GeocodingCacheMemory = "memory"
	GeocodingCacheRedis  = "redis"
	GeocodingCacheOff    = "off"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:          getenv("APP_SERVICE", "tradesmap"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      environment,
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		AppBaseURL:       strings.TrimRight(strings.TrimSpace(getenv("APP_BASE_URL", "http://localhost:8080")), "/"),
		AuthCookieSecure: authCookieSecure,
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),
		Session: SessionConfig{
			TTL:      getenvDuration("SESSION_TTL", 24*time.Hour),
			Capacity: getenvInt("SESSION_CAPACITY", 10000),
		},
		Geocoding: GeocodingConfig{
			BaseURL:  strings.TrimRight(strings.TrimSpace(getenv("GEOCODING_BASE_URL", "https://api.postcodes.io")), "/"),
			Timeout:  getenvDuration("GEOCODING_TIMEOUT", 5*time.Second),
			Cache:    normalizeGeocodingCache(getenv("GEOCODING_CACHE", GeocodingCacheMemory)),
			CacheTTL: getenvDuration("GEOCODING_CACHE_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getenvBool("RATE_LIMIT_ENABLED", false),
			SignInRate:  getenvFloat("RATE_LIMIT_SIGN_IN_RATE", 0.2),
			SignInBurst: getenvInt("RATE_LIMIT_SIGN_IN_BURST", 5),
			SyncLockTTL: getenvDuration("PROFILE_SYNC_LOCK_TTL", 30*time.Second),
		},
		CompanyProvisioning: normalizeProvisioning(getenv("COMPANY_PROVISIONING", ProvisioningDatabase)),
		TradesConfigPath:    strings.TrimSpace(getenv("TRADES_CONFIG_PATH", "")),
		DBType:              getenv("DATABASE_TYPE", "postgres"),
		DBHost:              getenv("DATABASE_HOST", "localhost"),
		DBPort:              getenv("DATABASE_PORT", "5432"),
		DBName:              getenv("DATABASE_NAME", "tradesmap"),
		DBUser:              getenv("DATABASE_USER", "postgres"),
		DBPassword:          getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:           getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:       getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:       getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:   getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:   getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
	}

	return cfg
}

func (c Config) ProvisioningEnabled() bool {
	return c.CompanyProvisioning != ProvisioningDisabled
}

func normalizeProvisioning(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ProvisioningDisabled, "off", "noop":
		return ProvisioningDisabled
	default:
		return ProvisioningDatabase
	}
}

func normalizeGeocodingCache(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case GeocodingCacheRedis:
		return GeocodingCacheRedis
	case GeocodingCacheOff, "none", "disabled":
		return GeocodingCacheOff
	default:
		return GeocodingCacheMemory
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
