package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/personachat-backend/internal/domain"
)

func SeedPersona(tb testing.TB, ctx context.Context, db *gorm.DB, slug, webhookCipher string, active bool) *types.Persona {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.Persona{
		ID:         uuid.New(),
		Name:       slug,
		Slug:       slug,
		WebhookURL: webhookCipher,
		IsActive:   active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed persona: %v", err)
	}
	return p
}

func SeedConversation(tb testing.TB, ctx context.Context, db *gorm.DB, userID, personaID uuid.UUID) *types.Conversation {
	tb.Helper()
	now := time.Now().UTC()
	c := &types.Conversation{
		ID:         uuid.New(),
		UserID:     userID,
		PersonaID:  personaID,
		Visibility: types.VisibilityPrivate,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	return c
}

// SeedMessage writes a message at an explicit instant so ordering is deterministic.
func SeedMessage(tb testing.TB, ctx context.Context, db *gorm.DB, conv *types.Conversation, role, content string, at time.Time) *types.Message {
	tb.Helper()
	m := &types.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		PersonaID:      conv.PersonaID,
		Content:        content,
		Role:           role,
		CreatedAt:      at.UTC(),
		UpdatedAt:      at.UTC(),
	}
	if role == types.RoleUser {
		uid := conv.UserID
		m.UserID = &uid
	}
	if err := db.WithContext(ctx).Omit("Reactions").Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func SeedFile(tb testing.TB, ctx context.Context, db *gorm.DB, userID uuid.UUID, conversationID *uuid.UUID) *types.UploadedFile {
	tb.Helper()
	f := &types.UploadedFile{
		ID:             uuid.New(),
		UserID:         userID,
		ConversationID: conversationID,
		Name:           "notes.txt",
		MimeType:       "text/plain",
		SizeBytes:      12,
		StorageKey:     "uploads/" + uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed file: %v", err)
	}
	return f
}
