package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/personachat-backend/internal/modules/chat/breaker"
	"github.com/yungbote/personachat-backend/internal/modules/chat/title"
	"github.com/yungbote/personachat-backend/internal/modules/chat/webhook"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
	"github.com/yungbote/personachat-backend/internal/services"
)

type Services struct {
	Audit         services.AuditSink
	Breakers      *breaker.Registry
	Dispatcher    *webhook.Dispatcher
	PersonaChat   services.PersonaChatService
	Conversations services.ConversationService
	Reactions     services.ReactionService
	BreakerAdmin  services.BreakerAdmin
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) Services {
	log.Info("Wiring services...")

	audit := services.NewAuditSink(log, r.AuditLog, c.AuditBus)
	breakers := breaker.NewRegistry(cfg.Breaker)
	dispatcher := webhook.New(webhook.Deps{
		Log:      log,
		Client:   webhook.NewHTTPClient(),
		Cipher:   c.Cipher,
		Breakers: breakers,
		Audit:    audit,
		Policy:   cfg.Webhook,
	})

	var gen title.Generator
	if c.OpenAI != nil {
		gen = c.OpenAI
	}
	titles := title.NewResolver(log, gen, cfg.TitleTimeout)

	return Services{
		Audit:      audit,
		Breakers:   breakers,
		Dispatcher: dispatcher,
		PersonaChat: services.NewPersonaChatService(services.PersonaChatDeps{
			DB:            db,
			Log:           log,
			Personas:      r.Persona,
			Conversations: r.Conversation,
			Sessions:      r.ChatSession,
			Messages:      r.Message,
			Edits:         r.MessageEdit,
			Files:         r.UploadedFile,
			Dispatcher:    dispatcher,
			Titles:        titles,
			Audit:         audit,
			EditWindow:    cfg.EditWindow,
		}),
		Conversations: services.NewConversationService(log, r.Conversation, r.Message, audit),
		Reactions:     services.NewReactionService(log, r.Message, r.Conversation, r.Reaction, audit),
		BreakerAdmin:  services.NewBreakerAdmin(log, breakers, audit),
	}
}
