package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type MessageRepo interface {
	Create(dbc dbctx.Context, rows []*types.Message) ([]*types.Message, error)
	// GetByID includes soft-deleted rows so callers can tell "deleted" from "missing".
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error)
	ListByConversation(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.Message, error)
	// ListLineageUpTo returns the live lineage up to and including upTo, oldest first.
	ListLineageUpTo(dbc dbctx.Context, conversationID uuid.UUID, upTo time.Time) ([]*types.Message, error)
	FirstUserMessage(dbc dbctx.Context, conversationID uuid.UUID) (*types.Message, error)
	// SoftDeleteAfter discards every live message created strictly after the given instant.
	SoftDeleteAfter(dbc dbctx.Context, conversationID uuid.UUID, after time.Time) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, rows []*types.Message) ([]*types.Message, error) {
	if len(rows) == 0 {
		return []*types.Message{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := dbc.DB(r.db).Omit("Reactions").Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *messageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing message id")
	}
	var out []*types.Message
	if err := dbc.DB(r.db).
		Unscoped().
		Model(&types.Message{}).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *messageRepo) ListByConversation(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation_id")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*types.Message
	if err := dbc.DB(r.db).
		Model(&types.Message{}).
		Preload("Reactions").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	// Normalize to ASC for clients.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *messageRepo) ListLineageUpTo(dbc dbctx.Context, conversationID uuid.UUID, upTo time.Time) ([]*types.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation_id")
	}
	var out []*types.Message
	if err := dbc.DB(r.db).
		Model(&types.Message{}).
		Where("conversation_id = ? AND created_at <= ?", conversationID, upTo).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) FirstUserMessage(dbc dbctx.Context, conversationID uuid.UUID) (*types.Message, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation_id")
	}
	var out []*types.Message
	if err := dbc.DB(r.db).
		Model(&types.Message{}).
		Where("conversation_id = ? AND role = ?", conversationID, types.RoleUser).
		Order("created_at ASC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *messageRepo) SoftDeleteAfter(dbc dbctx.Context, conversationID uuid.UUID, after time.Time) (int64, error) {
	if conversationID == uuid.Nil {
		return 0, fmt.Errorf("missing conversation_id")
	}
	res := dbc.DB(r.db).
		Where("conversation_id = ? AND created_at > ?", conversationID, after).
		Delete(&types.Message{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *messageRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing_id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return dbc.DB(r.db).
		Model(&types.Message{}).
		Where("id = ?", id).
		Updates(updates).Error
}
