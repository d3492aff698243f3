package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusFailed    = "failed"
)

// ChatSession is a unit-of-work record: one row per dispatch, edits included.
type ChatSession struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID      string    `gorm:"column:session_id;not null;uniqueIndex" json:"session_id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	PersonaID      uuid.UUID `gorm:"type:uuid;not null;index" json:"persona_id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Metadata datatypes.JSON `gorm:"type:jsonb;column:metadata;not null;default:'{}'" json:"metadata,omitempty"`
	Status   string         `gorm:"column:status;not null;default:'active';index" json:"status"`
	IsEdit   bool           `gorm:"column:is_edit;not null;default:false" json:"is_edit"`

	CreatedAt time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
	EndedAt   *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`
}

func (ChatSession) TableName() string { return "chat_session" }
