package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/personachat-backend/internal/data/repos"
	"github.com/yungbote/personachat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/modules/chat/breaker"
	"github.com/yungbote/personachat-backend/internal/modules/chat/title"
	"github.com/yungbote/personachat-backend/internal/modules/chat/webhook"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/platform/secrets"
)

// webhookStub is a TLS persona endpoint that answers from a scripted queue
// and records every payload it receives.
type webhookStub struct {
	srv *httptest.Server

	mu        sync.Mutex
	script    []stubReply
	payloads  []webhook.Payload
	onRequest func()
}

type stubReply struct {
	status int
	body   string
}

func newWebhookStub(t *testing.T, script ...stubReply) *webhookStub {
	t.Helper()
	s := &webhookStub{script: script}
	s.srv = httptest.NewTLSServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *webhookStub) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var p webhook.Payload
	_ = json.Unmarshal(raw, &p)

	s.mu.Lock()
	s.payloads = append(s.payloads, p)
	reply := stubReply{status: http.StatusOK, body: `{"reply":"ok"}`}
	if len(s.script) > 0 {
		reply = s.script[0]
		if len(s.script) > 1 {
			s.script = s.script[1:]
		}
	}
	hook := s.onRequest
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	_, _ = io.WriteString(w, reply.body)
}

func (s *webhookStub) setOnRequest(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRequest = fn
}

func (s *webhookStub) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func (s *webhookStub) lastPayload() webhook.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloads[len(s.payloads)-1]
}

func (s *webhookStub) url() string { return s.srv.URL + "/webhook/chat/persona" }

type chatHarness struct {
	ctx       context.Context
	db        *gorm.DB
	cipher    *secrets.Cipher
	breakers  *breaker.Registry
	audit     AuditSink
	svc       PersonaChatService
	convs     ConversationService
	reactions ReactionService
	admin     BreakerAdmin
	stub      *webhookStub
	userID    uuid.UUID
}

func newChatHarness(t *testing.T, stub *webhookStub) *chatHarness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	c, err := secrets.NewCipher("service-test-secret")
	require.NoError(t, err)

	auditRepo := repos.NewAuditLogRepo(db, log)
	audit := NewAuditSink(log, auditRepo, nil)
	// Drain audit writers before the database closes.
	t.Cleanup(audit.Wait)

	registry := breaker.NewRegistry(breaker.Config{})
	var client *http.Client
	if stub != nil {
		client = stub.srv.Client()
	}
	dispatcher := webhook.New(webhook.Deps{
		Log:      log,
		Client:   client,
		Cipher:   c,
		Breakers: registry,
		Audit:    audit,
		Policy: webhook.Policy{
			Retries:      2,
			Timeout:      5 * time.Second,
			BaseDelay:    time.Millisecond,
			AllowedHosts: []string{"127.0.0.1"},
		},
		Sleep: func(context.Context, time.Duration) error { return nil },
	})

	personas := repos.NewPersonaRepo(db, log)
	conversations := repos.NewConversationRepo(db, log)
	messages := repos.NewMessageRepo(db, log)
	reactionRepo := repos.NewReactionRepo(db, log)

	svc := NewPersonaChatService(PersonaChatDeps{
		DB:            db,
		Log:           log,
		Personas:      personas,
		Conversations: conversations,
		Sessions:      repos.NewChatSessionRepo(db, log),
		Messages:      messages,
		Edits:         repos.NewMessageEditRepo(db, log),
		Files:         repos.NewUploadedFileRepo(db, log),
		Dispatcher:    dispatcher,
		Titles:        title.NewResolver(log, nil, time.Second),
		Audit:         audit,
	})

	return &chatHarness{
		ctx:       context.Background(),
		db:        db,
		cipher:    c,
		breakers:  registry,
		audit:     audit,
		svc:       svc,
		convs:     NewConversationService(log, conversations, messages, audit),
		reactions: NewReactionService(log, messages, conversations, reactionRepo, audit),
		admin:     NewBreakerAdmin(log, registry, audit),
		stub:      stub,
		userID:    uuid.New(),
	}
}

func (h *chatHarness) dbc() dbctx.Context { return dbctx.Context{Ctx: h.ctx} }

func (h *chatHarness) persona(t *testing.T, slug string) *types.Persona {
	t.Helper()
	sealed := ""
	if h.stub != nil {
		var err error
		sealed, err = h.cipher.Encrypt(h.stub.url())
		require.NoError(t, err)
	}
	return testutil.SeedPersona(t, h.ctx, h.db, slug, sealed, true)
}

func (h *chatHarness) liveMessages(t *testing.T, conversationID uuid.UUID) []*types.Message {
	t.Helper()
	var out []*types.Message
	require.NoError(t, h.db.Where("conversation_id = ?", conversationID).Order("created_at ASC").Find(&out).Error)
	return out
}

func (h *chatHarness) auditEvents(t *testing.T, eventType string) []*types.AuditLog {
	t.Helper()
	h.audit.Wait()
	var out []*types.AuditLog
	require.NoError(t, h.db.Where("event_type = ?", eventType).Find(&out).Error)
	return out
}
