package app

import (
	"fmt"

	redisclient "github.com/yungbote/personachat-backend/internal/clients/redis"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
	"github.com/yungbote/personachat-backend/internal/platform/openai"
	"github.com/yungbote/personachat-backend/internal/platform/secrets"
)

type Clients struct {
	AuditBus redisclient.AuditBus
	OpenAI   openai.Client
	Cipher   *secrets.Cipher
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	cipher, err := secrets.NewCipher(cfg.WebhookEncryptionKey)
	if err != nil {
		return Clients{}, fmt.Errorf("init webhook cipher: %w", err)
	}

	// Redis is optional; audit rows still land in Postgres without it.
	var bus redisclient.AuditBus
	if cfg.RedisAddr != "" {
		b, err := redisclient.NewAuditBus(log, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.AuditRedisChannel,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis audit bus: %w", err)
		}
		bus = b
	}

	llm, err := openai.NewClient(log, openai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		TitleModel: cfg.OpenAITitleModel,
		Timeout:    cfg.TitleTimeout,
		MaxRetries: 1,
	})
	if err != nil {
		if bus != nil {
			_ = bus.Close()
		}
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	return Clients{AuditBus: bus, OpenAI: llm, Cipher: cipher}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.AuditBus != nil {
		_ = c.AuditBus.Close()
	}
}
