package chat

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReactionLike    = "LIKE"
	ReactionDislike = "DISLIKE"
)

type Reaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MessageID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_message_user,priority:1" json:"message_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reaction_message_user,priority:2" json:"user_id"`
	Type      string    `gorm:"column:type;not null" json:"type"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Reaction) TableName() string { return "reaction" }

func ValidReactionType(t string) bool {
	return t == ReactionLike || t == ReactionDislike
}
