package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/personachat-backend/internal/data/repos/audit"
	"github.com/yungbote/personachat-backend/internal/data/repos/chat"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type PersonaRepo = chat.PersonaRepo
type ConversationRepo = chat.ConversationRepo
type ChatSessionRepo = chat.ChatSessionRepo
type MessageRepo = chat.MessageRepo
type MessageEditRepo = chat.MessageEditRepo
type ReactionRepo = chat.ReactionRepo
type UploadedFileRepo = chat.UploadedFileRepo

type AuditLogRepo = audit.AuditLogRepo

type ConversationLookup = chat.ConversationLookup
type ConversationFilter = chat.ConversationFilter

func NewPersonaRepo(db *gorm.DB, baseLog *logger.Logger) PersonaRepo {
	return chat.NewPersonaRepo(db, baseLog)
}
func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return chat.NewConversationRepo(db, baseLog)
}
func NewChatSessionRepo(db *gorm.DB, baseLog *logger.Logger) ChatSessionRepo {
	return chat.NewChatSessionRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return chat.NewMessageRepo(db, baseLog)
}
func NewMessageEditRepo(db *gorm.DB, baseLog *logger.Logger) MessageEditRepo {
	return chat.NewMessageEditRepo(db, baseLog)
}
func NewReactionRepo(db *gorm.DB, baseLog *logger.Logger) ReactionRepo {
	return chat.NewReactionRepo(db, baseLog)
}
func NewUploadedFileRepo(db *gorm.DB, baseLog *logger.Logger) UploadedFileRepo {
	return chat.NewUploadedFileRepo(db, baseLog)
}

func NewAuditLogRepo(db *gorm.DB, baseLog *logger.Logger) AuditLogRepo {
	return audit.NewAuditLogRepo(db, baseLog)
}
