package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/personachat-backend/internal/data/repos"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type Repos struct {
	Persona      repos.PersonaRepo
	Conversation repos.ConversationRepo
	ChatSession  repos.ChatSessionRepo
	Message      repos.MessageRepo
	MessageEdit  repos.MessageEditRepo
	Reaction     repos.ReactionRepo
	UploadedFile repos.UploadedFileRepo
	AuditLog     repos.AuditLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Persona:      repos.NewPersonaRepo(db, log),
		Conversation: repos.NewConversationRepo(db, log),
		ChatSession:  repos.NewChatSessionRepo(db, log),
		Message:      repos.NewMessageRepo(db, log),
		MessageEdit:  repos.NewMessageEditRepo(db, log),
		Reaction:     repos.NewReactionRepo(db, log),
		UploadedFile: repos.NewUploadedFileRepo(db, log),
		AuditLog:     repos.NewAuditLogRepo(db, log),
	}
}
