package db

import (
	"fmt"

	types "github.com/yungbote/personachat-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureChatIndexes adds Postgres-only partial indexes that gorm tags cannot express.
func EnsureChatIndexes(db *gorm.DB) error {
	// Live lineage per conversation (edit branching + history replay).
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_message_conversation_live
		ON message (conversation_id, created_at)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_message_conversation_live: %w", err)
	}

	// Sidebar listing per user/persona.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_conversation_user_active_updated
		ON conversation (user_id, persona_id, updated_at DESC)
		WHERE is_active = true;
	`).Error; err != nil {
		return fmt.Errorf("create idx_conversation_user_active_updated: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_log_event_created
		ON audit_log (event_type, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_audit_log_event_created: %w", err)
	}

	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureChatIndexes(s.db); err != nil {
		s.log.Error("Chat index migration failed", "error", err)
		return err
	}
	return nil
}
