package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/personachat-backend/internal/data/repos"
	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/modules/chat/title"
	"github.com/yungbote/personachat-backend/internal/modules/chat/webhook"
	"github.com/yungbote/personachat-backend/internal/observability"
	"github.com/yungbote/personachat-backend/internal/platform/apierr"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type SendMessageInput struct {
	PersonaID      uuid.UUID
	UserID         uuid.UUID
	Message        string
	ConversationID *uuid.UUID
	WorkspaceID    *uuid.UUID
	FileID         *uuid.UUID
	// Metadata is client info stored on the chat session.
	Metadata map[string]any
}

type SendMessageResult struct {
	Reply              string    `json:"reply"`
	ConversationID     uuid.UUID `json:"conversationId"`
	UserMessageID      uuid.UUID `json:"userMessageId"`
	AssistantMessageID uuid.UUID `json:"assistantMessageId"`
	SessionID          string    `json:"sessionId"`
	Title              *string   `json:"title"`
}

type EditMessageInput struct {
	MessageID uuid.UUID
	UserID    uuid.UUID
	Content   string
	Metadata  map[string]any
}

type EditMessageResult struct {
	EditedMessageID    uuid.UUID `json:"editedMessageId"`
	AssistantMessageID uuid.UUID `json:"assistantMessageId"`
	AssistantContent   string    `json:"assistantContent"`
	ConversationID     uuid.UUID `json:"conversationId"`
	SessionID          string    `json:"sessionId"`
	SoftDeleted        int64     `json:"softDeleted"`
}

type PersonaChatService interface {
	// SendMessage runs one chat turn against the persona webhook.
	SendMessage(dbc dbctx.Context, in SendMessageInput) (*SendMessageResult, error)
	// EditMessage rewrites a user message, discards everything after it and
	// regenerates the reply inside one transaction.
	EditMessage(dbc dbctx.Context, in EditMessageInput) (*EditMessageResult, error)
}

type PersonaChatDeps struct {
	DB            *gorm.DB
	Log           *logger.Logger
	Personas      repos.PersonaRepo
	Conversations repos.ConversationRepo
	Sessions      repos.ChatSessionRepo
	Messages      repos.MessageRepo
	Edits         repos.MessageEditRepo
	Files         repos.UploadedFileRepo
	Dispatcher    *webhook.Dispatcher
	Titles        *title.Resolver
	Audit         AuditSink
	// EditWindow bounds how old an editable message may be; 0 disables the check.
	EditWindow time.Duration
	Now        func() time.Time
}

type personaChatService struct {
	db            *gorm.DB
	log           *logger.Logger
	personas      repos.PersonaRepo
	conversations repos.ConversationRepo
	sessions      repos.ChatSessionRepo
	messages      repos.MessageRepo
	edits         repos.MessageEditRepo
	files         repos.UploadedFileRepo
	dispatcher    *webhook.Dispatcher
	titles        *title.Resolver
	audit         AuditSink
	editWindow    time.Duration
	now           func() time.Time
}

func NewPersonaChatService(deps PersonaChatDeps) PersonaChatService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &personaChatService{
		db:            deps.DB,
		log:           deps.Log.With("service", "PersonaChatService"),
		personas:      deps.Personas,
		conversations: deps.Conversations,
		sessions:      deps.Sessions,
		messages:      deps.Messages,
		edits:         deps.Edits,
		files:         deps.Files,
		dispatcher:    deps.Dispatcher,
		titles:        deps.Titles,
		audit:         deps.Audit,
		editWindow:    deps.EditWindow,
		now:           func() time.Time { return now().UTC() },
	}
}

func (s *personaChatService) SendMessage(dbc dbctx.Context, in SendMessageInput) (*SendMessageResult, error) {
	if dbc.Ctx == nil {
		dbc.Ctx = context.Background()
	}
	ctx := dbc.Ctx
	content := strings.TrimSpace(in.Message)
	if in.UserID == uuid.Nil {
		return nil, apierr.Newf(http.StatusUnauthorized, "unauthorized", "not authenticated")
	}
	if in.PersonaID == uuid.Nil {
		return nil, invalid("personaId is required")
	}
	if content == "" {
		return nil, invalid("message is required")
	}
	if utf8.RuneCountInString(content) > maxMessageRunes {
		return nil, invalid("message exceeds %d characters", maxMessageRunes)
	}

	persona, err := s.personas.GetByID(dbc, in.PersonaID)
	if err != nil {
		return nil, internal(s.log, "load persona", err)
	}
	if persona == nil {
		return nil, apierr.Newf(http.StatusNotFound, CodePersonaNotFound, "persona not found")
	}
	if !persona.IsActive {
		return nil, apierr.Newf(http.StatusBadRequest, CodePersonaInactive, "this persona is not active")
	}
	if s.dispatcher.Breakers().Get(persona.ID.String()).IsOpen() {
		observability.Current().IncBreakerRejection(persona.ID.String())
		s.log.Warn("persona circuit open, rejecting message", "persona_id", persona.ID)
		return nil, apierr.Newf(http.StatusServiceUnavailable, CodePersonaUnavailable,
			"this persona is temporarily unavailable, please try again later")
	}
	userID := in.UserID
	target, err := s.dispatcher.Prepare(ctx, persona, &userID)
	if err != nil {
		return nil, err
	}

	conv, err := s.resolveConversation(dbc, in, persona)
	if err != nil {
		return nil, err
	}
	convID := uuid.Nil
	if conv != nil {
		convID = conv.ID
	}
	if in.FileID != nil {
		f, err := s.files.GetForConversation(dbc, *in.FileID, in.UserID, convID)
		if err != nil {
			return nil, internal(s.log, "load file", err)
		}
		if f == nil {
			return nil, apierr.Newf(http.StatusBadRequest, CodeFileNotFound, "file not found")
		}
	}

	now := s.now()
	if conv == nil {
		conv = &types.Conversation{
			ID:          uuid.New(),
			UserID:      in.UserID,
			PersonaID:   persona.ID,
			WorkspaceID: in.WorkspaceID,
			Visibility:  types.VisibilityPrivate,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err := s.conversations.Create(dbc, []*types.Conversation{conv}); err != nil {
			return nil, internal(s.log, "create conversation", err)
		}
	}
	if in.FileID != nil {
		if err := s.files.AttachToConversation(dbc, *in.FileID, conv.ID); err != nil {
			return nil, internal(s.log, "attach file", err)
		}
	}

	session, err := s.openSession(dbc, conv, in.UserID, in.Metadata, false, now)
	if err != nil {
		return nil, err
	}

	userMsg := &types.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		PersonaID:      persona.ID,
		UserID:         &userID,
		Content:        content,
		Role:           types.RoleUser,
		FileID:         in.FileID,
		ChatSessionID:  &session.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.messages.Create(dbc, []*types.Message{userMsg}); err != nil {
		return nil, internal(s.log, "create user message", err)
	}
	observability.Current().IncMessage(types.RoleUser)

	res, err := s.dispatcher.Dispatch(ctx, target, webhook.Payload{
		Message:        content,
		ConversationID: conv.ID.String(),
		PersonaID:      persona.ID.String(),
		UserID:         in.UserID.String(),
		SessionID:      session.SessionID,
	})
	if err != nil {
		// The caller may be gone; the session row must still leave "active".
		detached := dbctx.Context{Ctx: context.WithoutCancel(ctx), Tx: dbc.Tx}
		if endErr := s.sessions.MarkEnded(detached, session.ID, types.SessionStatusFailed); endErr != nil {
			s.log.Warn("mark session failed", "session_id", session.SessionID, "error", endErr)
		}
		return nil, err
	}

	assistantAt := after(s.now(), userMsg.CreatedAt)
	assistantMsg := &types.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		PersonaID:      persona.ID,
		Content:        res.Reply,
		Role:           types.RoleAssistant,
		ChatSessionID:  &session.ID,
		CreatedAt:      assistantAt,
		UpdatedAt:      assistantAt,
	}
	if _, err := s.messages.Create(dbc, []*types.Message{assistantMsg}); err != nil {
		return nil, internal(s.log, "create assistant message", err)
	}
	observability.Current().IncMessage(types.RoleAssistant)

	if err := s.sessions.MarkEnded(dbc, session.ID, types.SessionStatusCompleted); err != nil {
		s.log.Warn("mark session completed", "session_id", session.SessionID, "error", err)
	}
	if err := s.conversations.UpdateFields(dbc, conv.ID, map[string]interface{}{}); err != nil {
		s.log.Warn("touch conversation", "conversation_id", conv.ID, "error", err)
	}

	resolvedTitle := s.applyTitle(dbc, conv, res, content)

	s.audit.Record(ctx, &userID, AuditChatMessageSent, map[string]any{
		"conversation_id": conv.ID.String(),
		"persona_id":      persona.ID.String(),
		"session_id":      session.SessionID,
		"message_length":  utf8.RuneCountInString(content),
		"file_attached":   in.FileID != nil,
		"attempts":        res.Attempts,
	})

	return &SendMessageResult{
		Reply:              res.Reply,
		ConversationID:     conv.ID,
		UserMessageID:      userMsg.ID,
		AssistantMessageID: assistantMsg.ID,
		SessionID:          session.SessionID,
		Title:              resolvedTitle,
	}, nil
}

// resolveConversation returns the caller's conversation, or nil when a new
// one must be created. A stale id is superseded rather than rejected.
func (s *personaChatService) resolveConversation(dbc dbctx.Context, in SendMessageInput, persona *types.Persona) (*types.Conversation, error) {
	if in.ConversationID == nil || *in.ConversationID == uuid.Nil {
		return nil, nil
	}
	conv, err := s.conversations.FindActive(dbc, repos.ConversationLookup{
		ID:          *in.ConversationID,
		UserID:      in.UserID,
		PersonaID:   &persona.ID,
		WorkspaceID: in.WorkspaceID,
	})
	if err != nil {
		return nil, internal(s.log, "load conversation", err)
	}
	if conv == nil {
		s.log.Warn("conversation id does not match persona, starting a new conversation",
			"conversation_id", *in.ConversationID,
			"persona_id", persona.ID,
		)
	}
	return conv, nil
}

func (s *personaChatService) openSession(dbc dbctx.Context, conv *types.Conversation, userID uuid.UUID, meta map[string]any, isEdit bool, now time.Time) (*types.ChatSession, error) {
	rawMeta := []byte(`{}`)
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err != nil {
			return nil, invalid("metadata is not valid JSON")
		}
		rawMeta = b
	}
	session := &types.ChatSession{
		ID:             uuid.New(),
		SessionID:      newSessionToken(),
		ConversationID: conv.ID,
		PersonaID:      conv.PersonaID,
		UserID:         userID,
		Metadata:       datatypes.JSON(rawMeta),
		Status:         types.SessionStatusActive,
		IsEdit:         isEdit,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.sessions.Create(dbc, []*types.ChatSession{session}); err != nil {
		return nil, internal(s.log, "create chat session", err)
	}
	return session, nil
}

// applyTitle stores a resolved title when the current one is a placeholder
// and returns the title the conversation ends up with.
func (s *personaChatService) applyTitle(dbc dbctx.Context, conv *types.Conversation, res *webhook.Result, userMessage string) *string {
	if s.titles == nil || !title.IsPlaceholder(conv.Title) {
		return conv.Title
	}
	first := userMessage
	if m, err := s.messages.FirstUserMessage(dbc, conv.ID); err != nil {
		s.log.Warn("load first user message for title", "conversation_id", conv.ID, "error", err)
	} else if m != nil {
		first = m.Content
	}
	t, source := s.titles.Resolve(dbc.Ctx, title.Input{
		Response:         res.Document,
		FirstUserMessage: first,
		UserMessage:      userMessage,
		AssistantReply:   res.Reply,
	})
	if t == "" {
		return conv.Title
	}
	ok, err := s.conversations.SwapTitle(dbc, conv.ID, conv.Title, t)
	if err != nil {
		s.log.Warn("store conversation title", "conversation_id", conv.ID, "error", err)
		return conv.Title
	}
	observability.Current().ObserveTitle(source, ok)
	if !ok {
		// Someone else set a title first; report what is stored now.
		fresh, err := s.conversations.FindActive(dbc, repos.ConversationLookup{ID: conv.ID, UserID: conv.UserID})
		if err != nil || fresh == nil {
			return conv.Title
		}
		return fresh.Title
	}
	return &t
}

func (s *personaChatService) EditMessage(dbc dbctx.Context, in EditMessageInput) (*EditMessageResult, error) {
	ctx := dbc.Ctx
	content := strings.TrimSpace(in.Content)
	if in.UserID == uuid.Nil {
		return nil, apierr.Newf(http.StatusUnauthorized, "unauthorized", "not authenticated")
	}
	if content == "" {
		return nil, invalid("content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageRunes {
		return nil, invalid("content exceeds %d characters", maxMessageRunes)
	}

	msg, err := s.messages.GetByID(dbc, in.MessageID)
	if err != nil {
		return nil, internal(s.log, "load message", err)
	}
	if msg == nil || msg.IsDeleted() {
		return nil, apierr.Newf(http.StatusNotFound, CodeMessageNotFound, "message not found")
	}
	conv, err := s.conversations.FindActive(dbc, repos.ConversationLookup{ID: msg.ConversationID, UserID: in.UserID})
	if err != nil {
		return nil, internal(s.log, "load conversation", err)
	}
	ownMessage := msg.UserID != nil && *msg.UserID == in.UserID
	if conv == nil {
		if ownMessage {
			return nil, apierr.Newf(http.StatusNotFound, CodeConversationNotFound, "conversation not found")
		}
		return nil, apierr.Newf(http.StatusForbidden, CodeMessageNotEditable, "you can only edit your own messages")
	}
	if msg.Role != types.RoleUser {
		return nil, apierr.Newf(http.StatusBadRequest, CodeMessageNotEditable, "only user messages can be edited")
	}
	if !ownMessage {
		return nil, apierr.Newf(http.StatusForbidden, CodeMessageNotEditable, "you can only edit your own messages")
	}
	if s.editWindow > 0 && s.now().Sub(msg.CreatedAt) > s.editWindow {
		return nil, apierr.Newf(http.StatusForbidden, CodeEditWindowExpired, "this message can no longer be edited")
	}

	userID := in.UserID
	target := s.prepareForEdit(dbc, conv, &userID)
	previous := msg.Content

	var out *EditMessageResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		now := s.now()

		if _, err := s.edits.Create(inner, []*types.MessageEdit{{
			MessageID:       msg.ID,
			UserID:          in.UserID,
			PreviousContent: previous,
			NewContent:      content,
			CreatedAt:       now,
		}}); err != nil {
			return fmt.Errorf("record edit: %w", err)
		}
		if err := s.messages.UpdateFields(inner, msg.ID, map[string]interface{}{
			"content": content,
			"edited":  true,
		}); err != nil {
			return fmt.Errorf("update message: %w", err)
		}
		discarded, err := s.messages.SoftDeleteAfter(inner, conv.ID, msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("discard branch: %w", err)
		}
		lineage, err := s.messages.ListLineageUpTo(inner, conv.ID, msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("reload history: %w", err)
		}
		session, err := s.openSession(inner, conv, in.UserID, in.Metadata, true, now)
		if err != nil {
			return err
		}

		reply := ""
		if target != nil {
			res, ok := s.dispatcher.Regenerate(ctx, target, webhook.Payload{
				Message:         content,
				ConversationID:  conv.ID.String(),
				PersonaID:       conv.PersonaID.String(),
				UserID:          in.UserID.String(),
				SessionID:       session.SessionID,
				History:         historyItems(lineage),
				IsEdit:          true,
				EditedMessageID: msg.ID.String(),
			})
			if ok {
				reply = res.Reply
			}
		}
		regenerated := reply != ""

		assistantAt := after(s.now(), msg.CreatedAt)
		assistant := &types.Message{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			PersonaID:      conv.PersonaID,
			Content:        reply,
			Role:           types.RoleAssistant,
			ChatSessionID:  &session.ID,
			CreatedAt:      assistantAt,
			UpdatedAt:      assistantAt,
		}
		if _, err := s.messages.Create(inner, []*types.Message{assistant}); err != nil {
			return fmt.Errorf("create assistant message: %w", err)
		}
		status := types.SessionStatusCompleted
		if !regenerated {
			status = types.SessionStatusFailed
		}
		if err := s.sessions.MarkEnded(inner, session.ID, status); err != nil {
			return fmt.Errorf("close session: %w", err)
		}
		if err := s.conversations.UpdateFields(inner, conv.ID, map[string]interface{}{}); err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}

		observability.Current().ObserveEdit(regenerated, discarded)
		out = &EditMessageResult{
			EditedMessageID:    msg.ID,
			AssistantMessageID: assistant.ID,
			AssistantContent:   reply,
			ConversationID:     conv.ID,
			SessionID:          session.SessionID,
			SoftDeleted:        discarded,
		}
		return nil
	})
	if err != nil {
		if ae, ok := apierr.As(err); ok {
			return nil, ae
		}
		return nil, internal(s.log, "edit message", err)
	}

	s.audit.Record(ctx, &userID, AuditChatMessageEdited, map[string]any{
		"message_id":       msg.ID.String(),
		"conversation_id":  conv.ID.String(),
		"session_id":       out.SessionID,
		"previous_content": previous,
		"new_content":      content,
		"soft_deleted":     out.SoftDeleted,
		"regenerated":      out.AssistantContent != "",
	})
	return out, nil
}

// prepareForEdit resolves the webhook target for a regeneration. Any
// failure is logged and yields nil: the edit is kept without a reply.
func (s *personaChatService) prepareForEdit(dbc dbctx.Context, conv *types.Conversation, userID *uuid.UUID) *webhook.Target {
	persona, err := s.personas.GetByID(dbc, conv.PersonaID)
	if err != nil || persona == nil {
		s.log.Warn("persona unavailable for edit regeneration", "persona_id", conv.PersonaID, "error", err)
		return nil
	}
	target, err := s.dispatcher.Prepare(dbc.Ctx, persona, userID)
	if err != nil {
		s.log.Warn("webhook not usable for edit regeneration", "persona_id", persona.ID, "error", err)
		return nil
	}
	return target
}

func historyItems(lineage []*types.Message) []webhook.HistoryItem {
	out := make([]webhook.HistoryItem, 0, len(lineage))
	for _, m := range lineage {
		out = append(out, webhook.HistoryItem{
			Role:      strings.ToLower(m.Role),
			Content:   m.Content,
			MessageID: m.ID.String(),
			CreatedAt: m.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	return out
}

// after returns t, or the instant just past floor when t does not follow it.
func after(t, floor time.Time) time.Time {
	if t.After(floor) {
		return t
	}
	return floor.Add(time.Microsecond)
}

func newSessionToken() string {
	return "chs_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
