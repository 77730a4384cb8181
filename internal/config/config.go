package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Discord      DiscordConfig
	OAuth        OAuthConfig
	Roblox       RobloxConfig
	Upload       UploadConfig
	Redis        RedisConfig
	Postgres     PostgresConfig
	Logger       LoggerConfig
	Wizard       WizardConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// DiscordConfig holds bot credentials and the guild objects the workflow targets.
type DiscordConfig struct {
	BotToken                string
	CategoryID              string
	StaffRoleID             string
	LogChannelID            string
	APITimeoutSeconds       int
	CloseDeleteDelaySeconds int
}

// OAuthConfig defines the Discord OAuth2 application parameters.
type OAuthConfig struct {
	ClientID         string
	ClientSecret     string
	RedirectURI      string
	ClientURL        string
	StateSecret      string
	StateTTLMinutes  int
	ExchangeTimeoutS int
}

// RobloxConfig configures the best-effort username lookup.
type RobloxConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// UploadConfig controls evidence storage.
type UploadConfig struct {
	Dir              string
	MaxEvidenceFiles int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PostgresConfig holds optional audit DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// WizardConfig controls report-wizard session behavior.
type WizardConfig struct {
	SessionTTLMinutes int
}

// NotificationConfig holds the optional event webhook endpoint.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "report-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Discord: DiscordConfig{
			BotToken:                os.Getenv("DISCORD_TOKEN"),
			CategoryID:              os.Getenv("CATEGORY_ID"),
			StaffRoleID:             os.Getenv("STAFF_ROLE_ID"),
			LogChannelID:            os.Getenv("LOG_CHANNEL_ID"),
			APITimeoutSeconds:       getEnvAsInt("DISCORD_API_TIMEOUT_SECONDS", 10),
			CloseDeleteDelaySeconds: getEnvAsInt("CLOSE_DELETE_DELAY_SECONDS", 5),
		},
		OAuth: OAuthConfig{
			ClientID:         os.Getenv("DISCORD_CLIENT_ID"),
			ClientSecret:     os.Getenv("DISCORD_CLIENT_SECRET"),
			RedirectURI:      os.Getenv("REDIRECT_URI"),
			ClientURL:        os.Getenv("CLIENT_URL"),
			StateSecret:      getEnv("OAUTH_STATE_SECRET", "dev-secret"),
			StateTTLMinutes:  getEnvAsInt("OAUTH_STATE_TTL_MINUTES", 10),
			ExchangeTimeoutS: getEnvAsInt("OAUTH_EXCHANGE_TIMEOUT_SECONDS", 10),
		},
		Roblox: RobloxConfig{
			BaseURL:        getEnv("ROBLOX_API_BASE_URL", "https://users.roblox.com"),
			TimeoutSeconds: getEnvAsInt("ROBLOX_API_TIMEOUT_SECONDS", 5),
		},
		Upload: UploadConfig{
			Dir:              getEnv("UPLOAD_DIR", "uploads"),
			MaxEvidenceFiles: getEnvAsInt("UPLOAD_MAX_EVIDENCE_FILES", 10),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Wizard: WizardConfig{
			SessionTTLMinutes: getEnvAsInt("WIZARD_SESSION_TTL_MINUTES", 30),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// APITimeout returns the per-call timeout applied to Discord REST requests.
func (d DiscordConfig) APITimeout() time.Duration {
	if d.APITimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(d.APITimeoutSeconds) * time.Second
}

// CloseDeleteDelay returns the grace period before a closed ticket channel is removed.
func (d DiscordConfig) CloseDeleteDelay() time.Duration {
	if d.CloseDeleteDelaySeconds < 0 {
		return 0
	}
	return time.Duration(d.CloseDeleteDelaySeconds) * time.Second
}

// Timeout returns the lookup timeout for the Roblox API.
func (r RobloxConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// ExchangeTimeout returns the timeout for OAuth token exchange and profile fetch.
func (o OAuthConfig) ExchangeTimeout() time.Duration {
	if o.ExchangeTimeoutS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(o.ExchangeTimeoutS) * time.Second
}

// StateTTL returns the validity window of the signed OAuth state parameter.
func (o OAuthConfig) StateTTL() time.Duration {
	if o.StateTTLMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(o.StateTTLMinutes) * time.Minute
}

// SessionTTL returns how long an abandoned wizard session survives.
func (w WizardConfig) SessionTTL() time.Duration {
	if w.SessionTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(w.SessionTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
