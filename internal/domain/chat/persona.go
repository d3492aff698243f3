package chat

import (
	"time"

	"github.com/google/uuid"
)

// Persona is a chat character backed by an external webhook.
// WebhookURL holds ciphertext; it is only decrypted at dispatch time.
type Persona struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID *uuid.UUID `gorm:"type:uuid;index" json:"workspace_id,omitempty"`

	Name       string `gorm:"column:name;not null" json:"name"`
	Slug       string `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	WebhookURL string `gorm:"column:webhook_url;type:text;not null;default:''" json:"-"`
	IsActive   bool   `gorm:"column:is_active;not null;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Persona) TableName() string { return "persona" }
