package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	redisclient "github.com/yungbote/personachat-backend/internal/clients/redis"
	"github.com/yungbote/personachat-backend/internal/data/repos"
	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/observability"
	"github.com/yungbote/personachat-backend/internal/platform/ctxutil"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

const (
	AuditChatMessageSent         = "chat_message_sent"
	AuditChatMessageEdited       = "chat_message_edited"
	AuditReactionToggled         = "message_reaction_toggled"
	AuditConversationRenamed     = "conversation_renamed"
	AuditConversationArchived    = "conversation_archived"
	AuditConversationUnarchived  = "conversation_unarchived"
	AuditConversationDeleted     = "conversation_deleted"
	AuditCircuitBreakerReset     = "circuit_breaker_reset"
	AuditWebhookConfigurationErr = "webhook_configuration_error"
)

// AuditSink records audit events off the request path. Failures are logged
// and never reach the caller.
type AuditSink interface {
	Record(ctx context.Context, userID *uuid.UUID, eventType string, payload map[string]any)
	// Wait blocks until every in-flight record has been written.
	Wait()
}

type auditSink struct {
	log  *logger.Logger
	repo repos.AuditLogRepo
	bus  redisclient.AuditBus
	wg   sync.WaitGroup
}

// NewAuditSink persists to repo and, when bus is non-nil, fans events out
// over redis pub/sub.
func NewAuditSink(baseLog *logger.Logger, repo repos.AuditLogRepo, bus redisclient.AuditBus) AuditSink {
	return &auditSink{
		log:  baseLog.With("service", "AuditSink"),
		repo: repo,
		bus:  bus,
	}
}

func (s *auditSink) Record(ctx context.Context, userID *uuid.UUID, eventType string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("audit payload not serializable", "event_type", eventType, "error", err)
		raw = []byte(`{}`)
	}
	traceID := ctxutil.TraceID(ctx)
	row := &types.AuditLog{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: eventType,
		Payload:   datatypes.JSON(raw),
		TraceID:   traceID,
		CreatedAt: time.Now().UTC(),
	}

	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.write(detached, row)
	}()
}

func (s *auditSink) write(ctx context.Context, row *types.AuditLog) {
	wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	observability.Current().IncAuditEvent(row.EventType)
	if s.repo != nil {
		if err := s.repo.Create(dbctx.Context{Ctx: wctx}, row); err != nil {
			observability.Current().IncAuditFailure("db")
			s.log.Error("audit write failed", "event_type", row.EventType, "error", err)
		}
	}
	if s.bus != nil {
		msg := redisclient.AuditMessage{
			ID:        row.ID.String(),
			EventType: row.EventType,
			TraceID:   row.TraceID,
			Payload:   json.RawMessage(row.Payload),
			CreatedAt: row.CreatedAt,
		}
		if row.UserID != nil {
			msg.UserID = row.UserID.String()
		}
		if err := s.bus.Publish(wctx, msg); err != nil {
			observability.Current().IncAuditFailure("redis")
			s.log.Warn("audit publish failed", "event_type", row.EventType, "error", err)
		}
	}
}

func (s *auditSink) Wait() { s.wg.Wait() }
