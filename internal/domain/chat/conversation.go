package chat

import (
	"time"

	"github.com/google/uuid"
)

const (
	VisibilityPrivate   = "private"
	VisibilityWorkspace = "workspace"
)

// Conversation is bound to exactly one (user, persona) pair.
// Title stays nil until title resolution fills it.
type Conversation struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_conversation_user_persona,priority:1" json:"user_id"`
	PersonaID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_conversation_user_persona,priority:2" json:"persona_id"`
	WorkspaceID *uuid.UUID `gorm:"type:uuid;index" json:"workspace_id,omitempty"`

	Title      *string    `gorm:"column:title" json:"title"`
	Visibility string     `gorm:"column:visibility;not null;default:'private'" json:"visibility"`
	ArchivedAt *time.Time `gorm:"column:archived_at;index" json:"archived_at,omitempty"`
	IsActive   bool       `gorm:"column:is_active;not null;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversation" }
