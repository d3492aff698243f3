package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/personachat-backend/internal/modules/chat/breaker"
	"github.com/yungbote/personachat-backend/internal/platform/apierr"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type BreakerAdmin interface {
	List(ctx context.Context) []breaker.Snapshot
	// Reset forces the persona's breaker CLOSED and returns its new state.
	Reset(ctx context.Context, actorID *uuid.UUID, personaID string) (*breaker.Snapshot, error)
}

type breakerAdmin struct {
	log      *logger.Logger
	registry *breaker.Registry
	audit    AuditSink
}

func NewBreakerAdmin(baseLog *logger.Logger, registry *breaker.Registry, audit AuditSink) BreakerAdmin {
	return &breakerAdmin{
		log:      baseLog.With("service", "BreakerAdmin"),
		registry: registry,
		audit:    audit,
	}
}

func (s *breakerAdmin) List(ctx context.Context) []breaker.Snapshot {
	return s.registry.Snapshot()
}

func (s *breakerAdmin) Reset(ctx context.Context, actorID *uuid.UUID, personaID string) (*breaker.Snapshot, error) {
	key := strings.TrimSpace(personaID)
	if key == "" {
		return nil, invalid("persona id is required")
	}
	b, ok := s.registry.Lookup(key)
	if !ok {
		return nil, apierr.Newf(http.StatusNotFound, CodeBreakerNotFound, "no circuit breaker for persona %s", key)
	}
	before := b.Snapshot()
	b.Reset()
	after := b.Snapshot()
	s.log.Info("circuit breaker reset", "persona_id", key, "previous_state", before.State)
	s.audit.Record(ctx, actorID, AuditCircuitBreakerReset, map[string]any{
		"persona_id":        key,
		"previous_state":    string(before.State),
		"previous_failures": before.Failures,
	})
	return &after, nil
}
