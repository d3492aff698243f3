package chat

import (
	"time"

	"github.com/google/uuid"
)

// UploadedFile is written by the upload layer; chat only verifies ownership.
type UploadedFile struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ConversationID *uuid.UUID `gorm:"type:uuid;index" json:"conversation_id,omitempty"`

	Name       string `gorm:"column:name;not null" json:"name"`
	MimeType   string `gorm:"column:mime_type;not null;default:''" json:"mime_type"`
	SizeBytes  int64  `gorm:"column:size_bytes;not null;default:0" json:"size_bytes"`
	StorageKey string `gorm:"column:storage_key;not null" json:"-"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (UploadedFile) TableName() string { return "uploaded_file" }
