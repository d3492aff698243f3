package services

import (
	"net/http"

	"github.com/yungbote/personachat-backend/internal/platform/apierr"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

const (
	CodeInvalidRequest        = "invalid_request"
	CodePersonaNotFound       = "persona_not_found"
	CodePersonaInactive       = "persona_inactive"
	CodePersonaUnavailable    = "persona_unavailable"
	CodeFileNotFound          = "file_not_found"
	CodeMessageNotFound       = "message_not_found"
	CodeMessageNotEditable    = "message_not_editable"
	CodeEditWindowExpired     = "edit_window_expired"
	CodeConversationNotFound  = "conversation_not_found"
	CodeBreakerNotFound       = "circuit_breaker_not_found"
	CodeInvalidReactionType   = "invalid_reaction_type"
	maxMessageRunes           = 16000
	maxConversationTitleRunes = 120
)

func invalid(format string, args ...any) *apierr.Error {
	return apierr.Newf(http.StatusBadRequest, CodeInvalidRequest, format, args...)
}

// internal logs err with the operation name and returns the generic error.
func internal(log *logger.Logger, op string, err error) *apierr.Error {
	log.Error(op+" failed", "error", err)
	return apierr.Internal()
}
