package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	EnvTesting     Environment = "testing"
)

func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvProduction, EnvTesting:
		return true
	}
	return false
}

type Config struct {
	Server    Server
	Database  Database
	Security  Security
	RateLimit RateLimit
	Cache     Cache
	OAuth     OAuth
	Events    Events
	BaseURL   string
}

type Server struct {
	Port           int
	Environment    Environment
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	MaxHeaderBytes int
}

func (s Server) IsProduction() bool {
	return s.Environment == EnvProduction
}

// GetBaseURL returns the configured base URL or constructs one from server config
func (c Config) GetBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}

	scheme := "http"
	if c.Server.IsProduction() {
		scheme = "https"
	}
	return fmt.Sprintf("%s://localhost:%d", scheme, c.Server.Port)
}

type Database struct {
	URL             string
	MaxOpenConns    int32
	MaxIdleConns    int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrateOnStart  bool
}

type Security struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	ContentSecurityPolicy string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

type RateLimit struct {
	Enabled        bool
	LoginRequests  int
	SignupRequests int
	WindowDuration time.Duration
}

type Cache struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	SessionTTL    time.Duration
}

// OAuth holds the settings of the personal token feature.
type OAuth struct {
	// DefaultApplicationID is the application every personal token is issued against.
	DefaultApplicationID uuid.UUID
	PersonalTokenLength  int
}

// Media describes where collection folders live.
type Media struct {
	PrivateRoot string
	StorageMode string
	S3          S3
}

type S3 struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type Events struct {
	AMQPURL  string
	Exchange string
}

func (e Events) Enabled() bool {
	return e.AMQPURL != ""
}

// Load loads configuration from the environment
func Load() (Config, error) {
	var config Config
	var err error

	// Server configuration
	config.Server.Port, err = getEnvIntSafe("SERVER_PORT", 8080, false)
	if err != nil {
		return config, fmt.Errorf("server port config error: %w", err)
	}

	config.Server.Environment, err = getEnvEnvironmentSafe("SERVER_ENVIRONMENT", EnvDevelopment, false)
	if err != nil {
		return config, fmt.Errorf("server environment config error: %w", err)
	}

	config.Server.WriteTimeout, err = getEnvDurationSafe("SERVER_WRITE_TIMEOUT", 15*time.Second, false)
	if err != nil {
		return config, fmt.Errorf("server write timeout config error: %w", err)
	}

	config.Server.ReadTimeout, err = getEnvDurationSafe("SERVER_READ_TIMEOUT", 15*time.Second, false)
	if err != nil {
		return config, fmt.Errorf("server read timeout config error: %w", err)
	}

	config.Server.IdleTimeout, err = getEnvDurationSafe("SERVER_IDLE_TIMEOUT", 60*time.Second, false)
	if err != nil {
		return config, fmt.Errorf("server idle timeout config error: %w", err)
	}

	config.Server.RequestTimeout, err = getEnvDurationSafe("SERVER_REQUEST_TIMEOUT", 10*time.Second, false)
	if err != nil {
		return config, fmt.Errorf("server request timeout config error: %w", err)
	}

	config.Server.MaxHeaderBytes, err = getEnvIntSafe("SERVER_MAX_HEADER_BYTES", 1<<20, false)
	if err != nil {
		return config, fmt.Errorf("server max header bytes config error: %w", err)
	}

	// Database configuration
	config.Database.URL, err = getEnvStringSafe("DB_URL", "", true)
	if err != nil {
		return config, fmt.Errorf("database URL config error: %w", err)
	}

	config.Database.MaxOpenConns, err = getEnvInt32Safe("DB_MAX_OPEN_CONNS", 25, false)
	if err != nil {
		return config, fmt.Errorf("database max open conns config error: %w", err)
	}

	config.Database.MaxIdleConns, err = getEnvInt32Safe("DB_MAX_IDLE_CONNS", 5, false)
	if err != nil {
		return config, fmt.Errorf("database max idle conns config error: %w", err)
	}

	config.Database.ConnMaxLifetime, err = getEnvDurationSafe("DB_CONN_MAX_LIFETIME", 5*time.Minute, false)
	if err != nil {
		return config, fmt.Errorf("database conn max lifetime config error: %w", err)
	}

	config.Database.ConnMaxIdleTime, err = getEnvDurationSafe("DB_CONN_MAX_IDLE_TIME", 5*time.Minute, false)
	if err != nil {
		return config, fmt.Errorf("database conn max idle time config error: %w", err)
	}

	config.Database.MigrateOnStart, err = getEnvBoolSafe("DB_MIGRATE_ON_START", true, false)
	if err != nil {
		return config, fmt.Errorf("database migrate on start config error: %w", err)
	}

	// Security configuration
	config.Security.EnableHSTS, err = getEnvBoolSafe("SECURITY_ENABLE_HSTS", true, false)
	if err != nil {
		return config, fmt.Errorf("HSTS enable config error: %w", err)
	}

	config.Security.HSTSMaxAge, err = getEnvIntSafe("SECURITY_HSTS_MAX_AGE", 31536000, false)
	if err != nil {
		return config, fmt.Errorf("HSTS max age config error: %w", err)
	}

	config.Security.HSTSIncludeSubdomains, err = getEnvBoolSafe("SECURITY_HSTS_INCLUDE_SUBDOMAINS", true, false)
	if err != nil {
		return config, fmt.Errorf("HSTS include subdomains config error: %w", err)
	}

	config.Security.ContentSecurityPolicy, err = getEnvStringSafe("SECURITY_CSP", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self'; connect-src 'self'; frame-ancestors 'none'; form-action 'self'", false)
	if err != nil {
		return config, fmt.Errorf("CSP config error: %w", err)
	}

	config.Security.ReferrerPolicy, err = getEnvStringSafe("SECURITY_REFERRER_POLICY", "strict-origin-when-cross-origin", false)
	if err != nil {
		return config, fmt.Errorf("referrer policy config error: %w", err)
	}

	config.Security.PermissionsPolicy, err = getEnvStringSafe("SECURITY_PERMISSIONS_POLICY", "geolocation=(), microphone=(), camera=(), payment=(), usb=()", false)
	if err != nil {
		return config, fmt.Errorf("permissions policy config error: %w", err)
	}

	// Rate limit configuration
	config.RateLimit.Enabled, err = getEnvBoolSafe("RATE_LIMIT_ENABLED", true, false)
	if err != nil {
		return config, fmt.Errorf("rate limit enabled config error: %w", err)
	}

	config.RateLimit.LoginRequests, err = getEnvIntSafe("RATE_LIMIT_LOGIN_REQUESTS", 10, false)
	if err != nil {
		return config, fmt.Errorf("rate limit login requests config error: %w", err)
	}

	config.RateLimit.SignupRequests, err = getEnvIntSafe("RATE_LIMIT_SIGNUP_REQUESTS", 5, false)
	if err != nil {
		return config, fmt.Errorf("rate limit signup requests config error: %w", err)
	}

	config.RateLimit.WindowDuration, err = getEnvDurationSafe("RATE_LIMIT_WINDOW_DURATION", 5*time.Minute, false)
	if err != nil {
		return config, fmt.Errorf("rate limit window duration config error: %w", err)
	}

	config.BaseURL, err = getEnvStringSafe("BASE_URL", "", false)
	if err != nil {
		return config, fmt.Errorf("base URL config error: %w", err)
	}

	// Cache configuration
	config.Cache.Enabled, err = getEnvBoolSafe("CACHE_ENABLED", true, false)
	if err != nil {
		return config, fmt.Errorf("cache enabled config error: %w", err)
	}

	config.Cache.RedisAddr, err = getEnvStringSafe("REDIS_ADDR", "localhost:6379", false)
	if err != nil {
		return config, fmt.Errorf("Redis address config error: %w", err)
	}

	config.Cache.RedisPassword, err = getEnvStringSafe("REDIS_PASSWORD", "", false)
	if err != nil {
		return config, fmt.Errorf("Redis password config error: %w", err)
	}

	config.Cache.RedisDB, err = getEnvIntSafe("REDIS_DB", 0, false)
	if err != nil {
		return config, fmt.Errorf("Redis DB config error: %w", err)
	}

	config.Cache.RedisPoolSize, err = getEnvIntSafe("REDIS_POOL_SIZE", 10, false)
	if err != nil {
		return config, fmt.Errorf("Redis pool size config error: %w", err)
	}

	config.Cache.SessionTTL, err = getEnvDurationSafe("CACHE_SESSION_TTL", 30*time.Minute, false)
	if err != nil {
		return config, fmt.Errorf("cache session TTL config error: %w", err)
	}

	// OAuth configuration
	config.OAuth.DefaultApplicationID, err = getEnvUUIDSafe("OAUTH_DEFAULT_APPLICATION_ID", uuid.Nil, true)
	if err != nil {
		return config, fmt.Errorf("default OAuth application config error: %w", err)
	}

	config.OAuth.PersonalTokenLength, err = getEnvIntSafe("OAUTH_PERSONAL_TOKEN_LENGTH", 30, false)
	if err != nil {
		return config, fmt.Errorf("personal token length config error: %w", err)
	}
	if config.OAuth.PersonalTokenLength <= 0 {
		return config, fmt.Errorf("environment variable OAUTH_PERSONAL_TOKEN_LENGTH must be positive, got %d", config.OAuth.PersonalTokenLength)
	}

	// Events configuration
	config.Events.AMQPURL, err = getEnvStringSafe("EVENTS_AMQP_URL", "", false)
	if err != nil {
		return config, fmt.Errorf("events AMQP URL config error: %w", err)
	}

	config.Events.Exchange, err = getEnvStringSafe("EVENTS_EXCHANGE", "neurovault.accounts", false)
	if err != nil {
		return config, fmt.Errorf("events exchange config error: %w", err)
	}

	return config, nil
}

// LoadMedia loads the private media settings used by the collection cleanup tool.
func LoadMedia() (Media, error) {
	var media Media
	var err error

	media.PrivateRoot, err = getEnvStringSafe("PRIVATE_MEDIA_ROOT", "/var/www/image_data", false)
	if err != nil {
		return media, fmt.Errorf("private media root config error: %w", err)
	}

	media.StorageMode, err = getEnvStringSafe("MEDIA_STORAGE_MODE", "filesystem", false)
	if err != nil {
		return media, fmt.Errorf("media storage mode config error: %w", err)
	}
	if media.StorageMode != "filesystem" && media.StorageMode != "s3" {
		return media, fmt.Errorf("environment variable MEDIA_STORAGE_MODE has invalid value: %s", media.StorageMode)
	}

	media.S3.Endpoint, err = getEnvStringSafe("S3_ENDPOINT", "localhost:9000", false)
	if err != nil {
		return media, fmt.Errorf("S3 endpoint config error: %w", err)
	}

	media.S3.Bucket, err = getEnvStringSafe("S3_BUCKET", "neurovault-private", false)
	if err != nil {
		return media, fmt.Errorf("S3 bucket config error: %w", err)
	}

	media.S3.AccessKey, err = getEnvStringSafe("S3_ACCESS_KEY", "", false)
	if err != nil {
		return media, fmt.Errorf("S3 access key config error: %w", err)
	}

	media.S3.SecretKey, err = getEnvStringSafe("S3_SECRET_KEY", "", false)
	if err != nil {
		return media, fmt.Errorf("S3 secret key config error: %w", err)
	}

	media.S3.UseSSL, err = getEnvBoolSafe("S3_USE_SSL", false, false)
	if err != nil {
		return media, fmt.Errorf("S3 use SSL config error: %w", err)
	}

	return media, nil
}

// getEnvSafe reads key through parse. kind names the expected value in the
// error message.
func getEnvSafe[T any](key string, defaultValue T, required bool, kind string, parse func(string) (T, error)) (T, error) {
	var zero T
	raw, exists := os.LookupEnv(key)
	if !exists {
		if required {
			return zero, fmt.Errorf("environment variable %s is required", key)
		}
		return defaultValue, nil
	}
	value, err := parse(raw)
	if err != nil {
		return zero, fmt.Errorf("environment variable %s must be %s: %w", key, kind, err)
	}
	return value, nil
}

func getEnvStringSafe(key, defaultValue string, required bool) (string, error) {
	return getEnvSafe(key, defaultValue, required, "a string", func(s string) (string, error) { return s, nil })
}

func getEnvIntSafe(key string, defaultValue int, required bool) (int, error) {
	return getEnvSafe(key, defaultValue, required, "an integer", strconv.Atoi)
}

func getEnvInt32Safe(key string, defaultValue int32, required bool) (int32, error) {
	return getEnvSafe(key, defaultValue, required, "an integer", func(s string) (int32, error) {
		v, err := strconv.ParseInt(s, 10, 32)
		return int32(v), err
	})
}

func getEnvDurationSafe(key string, defaultValue time.Duration, required bool) (time.Duration, error) {
	return getEnvSafe(key, defaultValue, required, "a valid duration", time.ParseDuration)
}

func getEnvBoolSafe(key string, defaultValue bool, required bool) (bool, error) {
	return getEnvSafe(key, defaultValue, required, "a valid boolean", strconv.ParseBool)
}

func getEnvUUIDSafe(key string, defaultValue uuid.UUID, required bool) (uuid.UUID, error) {
	return getEnvSafe(key, defaultValue, required, "a valid UUID", uuid.Parse)
}

func getEnvEnvironmentSafe(key string, defaultValue Environment, required bool) (Environment, error) {
	return getEnvSafe(key, defaultValue, required, "one of development, testing or production", func(s string) (Environment, error) {
		env := Environment(s)
		if !env.IsValid() {
			return "", fmt.Errorf("unknown environment %q", s)
		}
		return env, nil
	})
}
