package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	EventType string         `gorm:"column:event_type;not null;index" json:"event_type"`
	Payload   datatypes.JSON `gorm:"type:jsonb;column:payload;not null;default:'{}'" json:"payload"`
	TraceID   string         `gorm:"column:trace_id;not null;default:''" json:"trace_id,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_log" }
