package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/personachat-backend/internal/http/response"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/services"
)

type PersonaChatHandler struct {
	chat services.PersonaChatService
}

func NewPersonaChatHandler(chat services.PersonaChatService) *PersonaChatHandler {
	return &PersonaChatHandler{chat: chat}
}

type sendMessageReq struct {
	Message        string         `json:"message"`
	ConversationID string         `json:"conversationId"`
	WorkspaceID    *uuid.UUID     `json:"workspaceId"`
	FileID         *uuid.UUID     `json:"fileId"`
	Metadata       map[string]any `json:"metadata"`
}

// POST /api/personas/:id/chat
func (h *PersonaChatHandler) SendMessage(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	personaID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, services.CodeInvalidRequest, err)
		return
	}
	workspaceID := req.WorkspaceID
	if workspaceID == nil {
		workspaceID = rd.WorkspaceID
	}
	meta := req.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	if ua := c.Request.UserAgent(); ua != "" {
		meta["user_agent"] = ua
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	res, err := h.chat.SendMessage(dbc, services.SendMessageInput{
		PersonaID:      personaID,
		UserID:         rd.UserID,
		Message:        req.Message,
		ConversationID: staleTolerantID(req.ConversationID),
		WorkspaceID:    workspaceID,
		FileID:         req.FileID,
		Metadata:       meta,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// staleTolerantID parses a client-held conversation id. Ids that no longer
// parse are dropped so the service starts a fresh conversation.
func staleTolerantID(raw string) *uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return nil
	}
	return &id
}

type editMessageReq struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// PUT /api/messages/:id
func (h *PersonaChatHandler) EditMessage(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	messageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req editMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, services.CodeInvalidRequest, err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	res, err := h.chat.EditMessage(dbc, services.EditMessageInput{
		MessageID: messageID,
		UserID:    rd.UserID,
		Content:   req.Content,
		Metadata:  req.Metadata,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}
