package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/personachat-backend/internal/http/response"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/services"
)

type ConversationHandler struct {
	conversations services.ConversationService
	reactions     services.ReactionService
}

func NewConversationHandler(conversations services.ConversationService, reactions services.ReactionService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, reactions: reactions}
}

// GET /api/conversations?personaId=&includeArchived=true&limit=50
func (h *ConversationHandler) List(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	personaID, ok := queryUUID(c, "personaId")
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	convs, err := h.conversations.List(dbc, services.ListConversationsInput{
		UserID:          rd.UserID,
		PersonaID:       personaID,
		WorkspaceID:     rd.WorkspaceID,
		IncludeArchived: c.Query("includeArchived") == "true",
		Limit:           queryLimit(c, 50),
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"conversations": convs})
}

// GET /api/conversations/:id/messages?limit=100
func (h *ConversationHandler) Messages(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	convID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	msgs, err := h.conversations.GetMessages(dbc, rd.UserID, convID, queryLimit(c, 100))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

type patchConversationReq struct {
	Title    *string `json:"title"`
	Archived *bool   `json:"archived"`
}

// PATCH /api/conversations/:id
func (h *ConversationHandler) Patch(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	convID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req patchConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, services.CodeInvalidRequest, err)
		return
	}
	if req.Title == nil && req.Archived == nil {
		response.RespondError(c, http.StatusBadRequest, services.CodeInvalidRequest, errors.New("nothing to update"))
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	var (
		conv any
		err  error
	)
	if req.Title != nil {
		if conv, err = h.conversations.Rename(dbc, rd.UserID, convID, *req.Title); err != nil {
			response.RespondAPIError(c, err)
			return
		}
	}
	if req.Archived != nil {
		if conv, err = h.conversations.SetArchived(dbc, rd.UserID, convID, *req.Archived); err != nil {
			response.RespondAPIError(c, err)
			return
		}
	}
	response.RespondOK(c, gin.H{"conversation": conv})
}

// DELETE /api/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	convID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.conversations.Delete(dbc, rd.UserID, convID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

type toggleReactionReq struct {
	Type string `json:"type"`
}

// POST /api/messages/:id/reactions
func (h *ConversationHandler) ToggleReaction(c *gin.Context) {
	rd, ok := caller(c)
	if !ok {
		return
	}
	messageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req toggleReactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, services.CodeInvalidRequest, err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	res, err := h.reactions.ToggleReaction(dbc, rd.UserID, messageID, req.Type)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}
