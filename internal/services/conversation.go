package services

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yungbote/personachat-backend/internal/data/repos"
	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/platform/apierr"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type ListConversationsInput struct {
	UserID          uuid.UUID
	PersonaID       *uuid.UUID
	WorkspaceID     *uuid.UUID
	IncludeArchived bool
	Limit           int
}

type ConversationService interface {
	List(dbc dbctx.Context, in ListConversationsInput) ([]*types.Conversation, error)
	// GetMessages returns the live (non-deleted) messages in ascending order.
	GetMessages(dbc dbctx.Context, userID, conversationID uuid.UUID, limit int) ([]*types.Message, error)
	Rename(dbc dbctx.Context, userID, conversationID uuid.UUID, title string) (*types.Conversation, error)
	SetArchived(dbc dbctx.Context, userID, conversationID uuid.UUID, archived bool) (*types.Conversation, error)
	// Delete deactivates the conversation; rows are kept for audit.
	Delete(dbc dbctx.Context, userID, conversationID uuid.UUID) error
}

type conversationService struct {
	log           *logger.Logger
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
	audit         AuditSink
}

func NewConversationService(baseLog *logger.Logger, conversations repos.ConversationRepo, messages repos.MessageRepo, audit AuditSink) ConversationService {
	return &conversationService{
		log:           baseLog.With("service", "ConversationService"),
		conversations: conversations,
		messages:      messages,
		audit:         audit,
	}
}

func (s *conversationService) List(dbc dbctx.Context, in ListConversationsInput) ([]*types.Conversation, error) {
	if in.UserID == uuid.Nil {
		return nil, apierr.Newf(http.StatusUnauthorized, "unauthorized", "not authenticated")
	}
	out, err := s.conversations.List(dbc, repos.ConversationFilter{
		UserID:          in.UserID,
		PersonaID:       in.PersonaID,
		WorkspaceID:     in.WorkspaceID,
		IncludeArchived: in.IncludeArchived,
		Limit:           in.Limit,
	})
	if err != nil {
		return nil, internal(s.log, "list conversations", err)
	}
	return out, nil
}

func (s *conversationService) GetMessages(dbc dbctx.Context, userID, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	if _, err := s.owned(dbc, userID, conversationID); err != nil {
		return nil, err
	}
	out, err := s.messages.ListByConversation(dbc, conversationID, limit)
	if err != nil {
		return nil, internal(s.log, "list messages", err)
	}
	return out, nil
}

func (s *conversationService) Rename(dbc dbctx.Context, userID, conversationID uuid.UUID, title string) (*types.Conversation, error) {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return nil, invalid("title is required")
	}
	if utf8.RuneCountInString(title) > maxConversationTitleRunes {
		return nil, invalid("title exceeds %d characters", maxConversationTitleRunes)
	}
	conv, err := s.owned(dbc, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.conversations.UpdateFields(dbc, conv.ID, map[string]interface{}{"title": title}); err != nil {
		return nil, internal(s.log, "rename conversation", err)
	}
	previous := ""
	if conv.Title != nil {
		previous = *conv.Title
	}
	conv.Title = &title
	s.audit.Record(dbc.Ctx, &userID, AuditConversationRenamed, map[string]any{
		"conversation_id": conv.ID.String(),
		"previous_title":  previous,
		"title":           title,
	})
	return conv, nil
}

func (s *conversationService) SetArchived(dbc dbctx.Context, userID, conversationID uuid.UUID, archived bool) (*types.Conversation, error) {
	conv, err := s.owned(dbc, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if (conv.ArchivedAt != nil) == archived {
		return conv, nil
	}
	var archivedAt *time.Time
	event := AuditConversationUnarchived
	if archived {
		now := time.Now().UTC()
		archivedAt = &now
		event = AuditConversationArchived
	}
	if err := s.conversations.UpdateFields(dbc, conv.ID, map[string]interface{}{"archived_at": archivedAt}); err != nil {
		return nil, internal(s.log, "archive conversation", err)
	}
	conv.ArchivedAt = archivedAt
	s.audit.Record(dbc.Ctx, &userID, event, map[string]any{"conversation_id": conv.ID.String()})
	return conv, nil
}

func (s *conversationService) Delete(dbc dbctx.Context, userID, conversationID uuid.UUID) error {
	conv, err := s.owned(dbc, userID, conversationID)
	if err != nil {
		return err
	}
	if err := s.conversations.UpdateFields(dbc, conv.ID, map[string]interface{}{"is_active": false}); err != nil {
		return internal(s.log, "delete conversation", err)
	}
	s.audit.Record(dbc.Ctx, &userID, AuditConversationDeleted, map[string]any{
		"conversation_id": conv.ID.String(),
		"persona_id":      conv.PersonaID.String(),
	})
	return nil
}

func (s *conversationService) owned(dbc dbctx.Context, userID, conversationID uuid.UUID) (*types.Conversation, error) {
	if userID == uuid.Nil {
		return nil, apierr.Newf(http.StatusUnauthorized, "unauthorized", "not authenticated")
	}
	if conversationID == uuid.Nil {
		return nil, invalid("conversation id is required")
	}
	conv, err := s.conversations.FindActive(dbc, repos.ConversationLookup{ID: conversationID, UserID: userID})
	if err != nil {
		return nil, internal(s.log, "load conversation", err)
	}
	if conv == nil {
		return nil, apierr.Newf(http.StatusNotFound, CodeConversationNotFound, "conversation not found")
	}
	return conv, nil
}
