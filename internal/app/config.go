package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/personachat-backend/internal/data/db"
	"github.com/yungbote/personachat-backend/internal/modules/chat/breaker"
	"github.com/yungbote/personachat-backend/internal/modules/chat/webhook"
	"github.com/yungbote/personachat-backend/internal/observability"
	"github.com/yungbote/personachat-backend/internal/platform/envutil"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type Config struct {
	LogMode        string
	ListenAddr     string
	MetricsAddr    string
	JWTSecretKey   string
	AllowedOrigins []string

	Postgres db.PostgresConfig

	WebhookEncryptionKey string
	Webhook              webhook.Policy
	Breaker              breaker.Config
	EditWindow           time.Duration

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAITitleModel string
	TitleTimeout     time.Duration

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	AuditRedisChannel string

	Otel observability.OtelConfig
}

// fileOverlay is the optional YAML file named by CONFIG_FILE. Only the
// tuning sections live there; secrets stay in the environment.
type fileOverlay struct {
	Webhook *struct {
		Retries          *int     `yaml:"retries"`
		TimeoutSeconds   *int     `yaml:"timeout_seconds"`
		BaseDelayMS      *int     `yaml:"base_delay_ms"`
		AllowedHosts     []string `yaml:"allowed_hosts"`
		ChatPathPrefix   string   `yaml:"chat_path_prefix"`
		TraitsPathPrefix string   `yaml:"traits_path_prefix"`
	} `yaml:"webhook"`
	Breaker *struct {
		FailureThreshold    *int `yaml:"failure_threshold"`
		ResetTimeoutSeconds *int `yaml:"reset_timeout_seconds"`
	} `yaml:"breaker"`
	Title *struct {
		Model          string `yaml:"model"`
		TimeoutSeconds *int   `yaml:"timeout_seconds"`
	} `yaml:"title"`
	EditWindowMinutes *int     `yaml:"edit_window_minutes"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		LogMode:        envutil.String("LOG_MODE", "development"),
		ListenAddr:     envutil.String("LISTEN_ADDR", ":8080"),
		MetricsAddr:    envutil.String("METRICS_ADDR", ":9090"),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		AllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS"),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "personachat"),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
		},
		WebhookEncryptionKey: envutil.String("WEBHOOK_ENCRYPTION_KEY", ""),
		Webhook: webhook.Policy{
			Retries:          envutil.Int("WEBHOOK_RETRIES", webhook.DefaultRetries),
			Timeout:          envutil.Seconds("WEBHOOK_TIMEOUT_SECONDS", webhook.DefaultTimeout),
			BaseDelay:        envutil.Millis("WEBHOOK_BASE_DELAY_MS", webhook.DefaultBaseDelay),
			SigningSecret:    envutil.String("WEBHOOK_SIGNING_SECRET", ""),
			AllowedHosts:     envutil.List("WEBHOOK_ALLOWED_HOSTS"),
			ChatPathPrefix:   envutil.String("WEBHOOK_CHAT_PATH_PREFIX", webhook.DefaultChatPathPrefix),
			TraitsPathPrefix: envutil.String("WEBHOOK_TRAITS_PATH_PREFIX", webhook.DefaultTraitsPathPrefix),
		},
		Breaker: breaker.Config{
			FailureThreshold: envutil.Int("BREAKER_FAILURE_THRESHOLD", 5),
			ResetTimeout:     envutil.Seconds("BREAKER_RESET_TIMEOUT_SECONDS", 5*time.Minute),
		},
		EditWindow:        time.Duration(envutil.Int("EDIT_WINDOW_MINUTES", 0)) * time.Minute,
		OpenAIAPIKey:      envutil.String("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     envutil.String("OPENAI_BASE_URL", ""),
		OpenAITitleModel:  envutil.String("OPENAI_TITLE_MODEL", ""),
		TitleTimeout:      envutil.Seconds("TITLE_TIMEOUT_SECONDS", 10*time.Second),
		RedisAddr:         envutil.String("REDIS_ADDR", ""),
		RedisPassword:     envutil.String("REDIS_PASSWORD", ""),
		RedisDB:           envutil.Int("REDIS_DB", 0),
		AuditRedisChannel: envutil.String("AUDIT_REDIS_CHANNEL", "audit"),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "personachat"),
			Environment: envutil.String("OTEL_ENVIRONMENT", envutil.String("LOG_MODE", "development")),
			Version:     envutil.String("OTEL_SERVICE_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1),
		},
	}

	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
		if log != nil {
			log.Info("applied config file", "path", path)
		}
	}
	if log != nil {
		log.Debug("config loaded",
			"listen_addr", cfg.ListenAddr,
			"webhook_retries", cfg.Webhook.Retries,
			"webhook_timeout", cfg.Webhook.Timeout.String(),
			"webhook_allowed_hosts", cfg.Webhook.AllowedHosts,
			"breaker_threshold", cfg.Breaker.FailureThreshold,
			"breaker_reset", cfg.Breaker.ResetTimeout.String(),
			"edit_window", cfg.EditWindow.String(),
			"llm_titles", cfg.OpenAIAPIKey != "",
			"redis_audit", cfg.RedisAddr != "",
		)
		if len(cfg.Webhook.AllowedHosts) == 0 {
			log.Warn("WEBHOOK_ALLOWED_HOSTS is empty, every persona webhook will be rejected")
		}
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileOverlay
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if w := f.Webhook; w != nil {
		if w.Retries != nil {
			c.Webhook.Retries = *w.Retries
		}
		if w.TimeoutSeconds != nil {
			c.Webhook.Timeout = time.Duration(*w.TimeoutSeconds) * time.Second
		}
		if w.BaseDelayMS != nil {
			c.Webhook.BaseDelay = time.Duration(*w.BaseDelayMS) * time.Millisecond
		}
		if len(w.AllowedHosts) > 0 {
			c.Webhook.AllowedHosts = w.AllowedHosts
		}
		if s := strings.TrimSpace(w.ChatPathPrefix); s != "" {
			c.Webhook.ChatPathPrefix = s
		}
		if s := strings.TrimSpace(w.TraitsPathPrefix); s != "" {
			c.Webhook.TraitsPathPrefix = s
		}
	}
	if b := f.Breaker; b != nil {
		if b.FailureThreshold != nil {
			c.Breaker.FailureThreshold = *b.FailureThreshold
		}
		if b.ResetTimeoutSeconds != nil {
			c.Breaker.ResetTimeout = time.Duration(*b.ResetTimeoutSeconds) * time.Second
		}
	}
	if t := f.Title; t != nil {
		if s := strings.TrimSpace(t.Model); s != "" {
			c.OpenAITitleModel = s
		}
		if t.TimeoutSeconds != nil {
			c.TitleTimeout = time.Duration(*t.TimeoutSeconds) * time.Second
		}
	}
	if f.EditWindowMinutes != nil {
		c.EditWindow = time.Duration(*f.EditWindowMinutes) * time.Minute
	}
	if len(f.AllowedOrigins) > 0 {
		c.AllowedOrigins = f.AllowedOrigins
	}
	return nil
}
