package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser      = "USER"
	RoleAssistant = "ASSISTANT"
)

// Message is one turn of a conversation. DeletedAt is the soft-delete flag
// set when an earlier user message is edited and the branch is discarded.
type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;not null;index:idx_message_conversation_created,priority:1" json:"conversation_id"`
	PersonaID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"persona_id"`
	UserID         *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`

	Content       string     `gorm:"column:content;type:text;not null;default:''" json:"content"`
	Role          string     `gorm:"column:role;not null;index" json:"role"`
	FileID        *uuid.UUID `gorm:"type:uuid;column:file_id" json:"file_id,omitempty"`
	ChatSessionID *uuid.UUID `gorm:"type:uuid;column:chat_session_id;index" json:"chat_session_id,omitempty"`
	Edited        bool       `gorm:"column:edited;not null;default:false" json:"edited"`

	CreatedAt time.Time      `gorm:"not null;index:idx_message_conversation_created,priority:2" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Reactions []Reaction `gorm:"foreignKey:MessageID" json:"reactions,omitempty"`
}

func (Message) TableName() string { return "message" }

func (m *Message) IsDeleted() bool { return m != nil && m.DeletedAt.Valid }

// MessageEdit is an append-only record of a message's prior content.
type MessageEdit struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MessageID       uuid.UUID `gorm:"type:uuid;not null;index" json:"message_id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	PreviousContent string    `gorm:"column:previous_content;type:text;not null" json:"previous_content"`
	NewContent      string    `gorm:"column:new_content;type:text;not null" json:"new_content"`
	CreatedAt       time.Time `gorm:"not null;index" json:"created_at"`
}

func (MessageEdit) TableName() string { return "message_edit" }
