package domain

import (
	"github.com/yungbote/personachat-backend/internal/domain/chat"
)

const (
	RoleUser      = chat.RoleUser
	RoleAssistant = chat.RoleAssistant

	ReactionLike    = chat.ReactionLike
	ReactionDislike = chat.ReactionDislike

	SessionStatusActive    = chat.SessionStatusActive
	SessionStatusCompleted = chat.SessionStatusCompleted
	SessionStatusFailed    = chat.SessionStatusFailed

	VisibilityPrivate   = chat.VisibilityPrivate
	VisibilityWorkspace = chat.VisibilityWorkspace
)

type Persona = chat.Persona
type Conversation = chat.Conversation
type ChatSession = chat.ChatSession
type Message = chat.Message
type MessageEdit = chat.MessageEdit
type Reaction = chat.Reaction
type UploadedFile = chat.UploadedFile
type AuditLog = chat.AuditLog

func ValidReactionType(t string) bool { return chat.ValidReactionType(t) }

// Models lists every table owned by this service, in migration order.
func Models() []any {
	return []any{
		&Persona{},
		&Conversation{},
		&ChatSession{},
		&Message{},
		&MessageEdit{},
		&Reaction{},
		&UploadedFile{},
		&AuditLog{},
	}
}
