package services

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/personachat-backend/internal/data/repos"
	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/platform/apierr"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

const (
	ReactionAdded    = "added"
	ReactionRemoved  = "removed"
	ReactionReplaced = "replaced"
)

type ToggleReactionResult struct {
	Action   string          `json:"action"`
	Reaction *types.Reaction `json:"reaction,omitempty"`
}

type ReactionService interface {
	// ToggleReaction adds a reaction, removes it when the same type is sent
	// again, or replaces it when the other type is sent.
	ToggleReaction(dbc dbctx.Context, userID, messageID uuid.UUID, reactionType string) (*ToggleReactionResult, error)
}

type reactionService struct {
	log           *logger.Logger
	messages      repos.MessageRepo
	conversations repos.ConversationRepo
	reactions     repos.ReactionRepo
	audit         AuditSink
}

func NewReactionService(baseLog *logger.Logger, messages repos.MessageRepo, conversations repos.ConversationRepo, reactions repos.ReactionRepo, audit AuditSink) ReactionService {
	return &reactionService{
		log:           baseLog.With("service", "ReactionService"),
		messages:      messages,
		conversations: conversations,
		reactions:     reactions,
		audit:         audit,
	}
}

func (s *reactionService) ToggleReaction(dbc dbctx.Context, userID, messageID uuid.UUID, reactionType string) (*ToggleReactionResult, error) {
	reactionType = strings.ToUpper(strings.TrimSpace(reactionType))
	if !types.ValidReactionType(reactionType) {
		return nil, apierr.Newf(http.StatusBadRequest, CodeInvalidReactionType, "reaction type must be LIKE or DISLIKE")
	}
	if userID == uuid.Nil {
		return nil, apierr.Newf(http.StatusUnauthorized, "unauthorized", "not authenticated")
	}
	msg, err := s.messages.GetByID(dbc, messageID)
	if err != nil {
		return nil, internal(s.log, "load message", err)
	}
	if msg == nil || msg.IsDeleted() {
		return nil, apierr.Newf(http.StatusNotFound, CodeMessageNotFound, "message not found")
	}
	conv, err := s.conversations.FindActive(dbc, repos.ConversationLookup{ID: msg.ConversationID, UserID: userID})
	if err != nil {
		return nil, internal(s.log, "load conversation", err)
	}
	if conv == nil {
		return nil, apierr.Newf(http.StatusNotFound, CodeMessageNotFound, "message not found")
	}

	existing, err := s.reactions.Get(dbc, msg.ID, userID)
	if err != nil {
		return nil, internal(s.log, "load reaction", err)
	}
	out := &ToggleReactionResult{}
	switch {
	case existing == nil:
		now := time.Now().UTC()
		row, err := s.reactions.Create(dbc, &types.Reaction{
			MessageID: msg.ID,
			UserID:    userID,
			Type:      reactionType,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return nil, internal(s.log, "create reaction", err)
		}
		out.Action, out.Reaction = ReactionAdded, row
	case existing.Type == reactionType:
		if err := s.reactions.Delete(dbc, existing.ID); err != nil {
			return nil, internal(s.log, "delete reaction", err)
		}
		out.Action = ReactionRemoved
	default:
		if err := s.reactions.UpdateType(dbc, existing.ID, reactionType); err != nil {
			return nil, internal(s.log, "update reaction", err)
		}
		existing.Type = reactionType
		out.Action, out.Reaction = ReactionReplaced, existing
	}

	s.audit.Record(dbc.Ctx, &userID, AuditReactionToggled, map[string]any{
		"message_id":      msg.ID.String(),
		"conversation_id": conv.ID.String(),
		"type":            reactionType,
		"action":          out.Action,
	})
	return out, nil
}
