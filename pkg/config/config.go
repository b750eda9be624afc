package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Database drivers understood by database.NewPostgres.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// Storage drivers understood by storage.New.
const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Admin     AdminConfig
	Cache     CacheConfig
	Queue     QueueConfig
	Email     EmailConfig
	Turnstile TurnstileConfig
	Storage   StorageConfig
	Tracing   TracingConfig
}

type DatabaseConfig struct {
	Driver        string
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	MigrationsDir string
	AutoMigrate   bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string

	// PasswordResetURL is the frontend page that receives `/<uid>/<token>`.
	PasswordResetURL string
	PasswordResetTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AdminConfig tunes the generated admin surface.
type AdminConfig struct {
	DemoMode        bool
	ListPerPage     int
	DashboardPrefix string
}

// CacheConfig controls cache lifetimes for cached admin payloads.
type CacheConfig struct {
	SavedQueriesTTL  time.Duration
	DocumentationTTL time.Duration
	KeyPrefix        string
}

// QueueConfig sizes the in-process background workers.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Names      []string
}

// EmailConfig points at the outbound email relay.
type EmailConfig struct {
	Enabled bool
	URL     string
	APIKey  string
	Sender  string
	Timeout time.Duration
}

// TurnstileConfig configures bot verification.
type TurnstileConfig struct {
	SecretKey string
	VerifyURL string
	Timeout   time.Duration
}

// StorageConfig selects where uploaded files for file/image fields live.
type StorageConfig struct {
	Driver          string
	LocalDir        string
	PublicBaseURL   string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	Endpoint        string
	AccessKey       string
	SecretKey       string
	Bucket          string
	UseSSL          bool
}

// TracingConfig toggles the jaeger tracer.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	AgentHost   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Driver:        v.GetString("DB_DRIVER"),
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrationsDir: v.GetString("DB_MIGRATIONS_DIR"),
		AutoMigrate:   v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),

		PasswordResetURL: v.GetString("PASSWORD_RESET_URL"),
		PasswordResetTTL: parseDuration(v.GetString("PASSWORD_RESET_TTL"), 72*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	perPage := v.GetInt("ADMIN_LIST_PER_PAGE")
	if perPage <= 0 {
		perPage = 20
	}
	cfg.Admin = AdminConfig{
		DemoMode:        v.GetBool("ADMIN_DEMO_MODE"),
		ListPerPage:     perPage,
		DashboardPrefix: strings.TrimRight(v.GetString("ADMIN_DASHBOARD_PREFIX"), "/"),
	}

	cfg.Cache = CacheConfig{
		SavedQueriesTTL:  parseDuration(v.GetString("SAVED_QUERIES_CACHE_TTL"), 24*time.Hour),
		DocumentationTTL: parseDuration(v.GetString("DOCUMENTATION_CACHE_TTL"), 24*time.Hour),
		KeyPrefix:        v.GetString("CACHE_KEY_PREFIX"),
	}

	cfg.Queue = QueueConfig{
		Workers:    v.GetInt("QUEUE_WORKERS"),
		BufferSize: v.GetInt("QUEUE_BUFFER_SIZE"),
		MaxRetries: v.GetInt("QUEUE_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("QUEUE_RETRY_DELAY"), 5*time.Second),
		Names:      splitAndTrim(v.GetString("QUEUE_NAMES")),
	}

	cfg.Email = EmailConfig{
		Enabled: v.GetBool("EMAIL_ENABLED"),
		URL:     v.GetString("EMAIL_API_URL"),
		APIKey:  v.GetString("EMAIL_API_KEY"),
		Sender:  v.GetString("EMAIL_SENDER"),
		Timeout: parseDuration(v.GetString("EMAIL_TIMEOUT"), 10*time.Second),
	}

	cfg.Turnstile = TurnstileConfig{
		SecretKey: v.GetString("TURNSTILE_SECRET_KEY"),
		VerifyURL: v.GetString("TURNSTILE_VERIFY_URL"),
		Timeout:   parseDuration(v.GetString("TURNSTILE_TIMEOUT"), 10*time.Second),
	}

	cfg.Storage = StorageConfig{
		Driver:          v.GetString("STORAGE_DRIVER"),
		LocalDir:        v.GetString("STORAGE_LOCAL_DIR"),
		PublicBaseURL:   strings.TrimRight(v.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
		SignedURLSecret: v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), time.Hour),
		Endpoint:        v.GetString("MINIO_ENDPOINT"),
		AccessKey:       v.GetString("MINIO_ACCESS_KEY"),
		SecretKey:       v.GetString("MINIO_SECRET_KEY"),
		Bucket:          v.GetString("MINIO_BUCKET"),
		UseSSL:          v.GetBool("MINIO_USE_SSL"),
	}

	cfg.Tracing = TracingConfig{
		Enabled:     v.GetBool("TRACING_ENABLED"),
		ServiceName: v.GetString("TRACING_SERVICE_NAME"),
		AgentHost:   v.GetString("JAEGER_AGENT_HOST_PORT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "admin_api")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATIONS_DIR", "migrations")
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "admin-api")
	v.SetDefault("PASSWORD_RESET_URL", "http://localhost:3000/users/reset")
	v.SetDefault("PASSWORD_RESET_TTL", "72h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ADMIN_DEMO_MODE", false)
	v.SetDefault("ADMIN_LIST_PER_PAGE", 20)
	v.SetDefault("ADMIN_DASHBOARD_PREFIX", "/dashboard")

	v.SetDefault("SAVED_QUERIES_CACHE_TTL", "24h")
	v.SetDefault("DOCUMENTATION_CACHE_TTL", "24h")
	v.SetDefault("CACHE_KEY_PREFIX", "admin:")

	v.SetDefault("QUEUE_WORKERS", 2)
	v.SetDefault("QUEUE_BUFFER_SIZE", 64)
	v.SetDefault("QUEUE_MAX_RETRIES", 3)
	v.SetDefault("QUEUE_RETRY_DELAY", "5s")
	v.SetDefault("QUEUE_NAMES", "default,email")

	v.SetDefault("EMAIL_ENABLED", false)
	v.SetDefault("EMAIL_API_URL", "")
	v.SetDefault("EMAIL_API_KEY", "")
	v.SetDefault("EMAIL_SENDER", "no-reply@localhost")
	v.SetDefault("EMAIL_TIMEOUT", "10s")

	v.SetDefault("TURNSTILE_SECRET_KEY", "")
	v.SetDefault("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")
	v.SetDefault("TURNSTILE_TIMEOUT", "10s")

	v.SetDefault("STORAGE_DRIVER", StorageLocal)
	v.SetDefault("STORAGE_LOCAL_DIR", "./media")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "/media")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_media_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "1h")
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "admin-media")
	v.SetDefault("MINIO_USE_SSL", false)

	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_SERVICE_NAME", "admin-api")
	v.SetDefault("JAEGER_AGENT_HOST_PORT", "localhost:6831")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
