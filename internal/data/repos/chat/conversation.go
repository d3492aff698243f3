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

// ConversationLookup scopes a conversation fetch to its owner.
// Nil PersonaID / WorkspaceID skip those predicates.
type ConversationLookup struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	PersonaID   *uuid.UUID
	WorkspaceID *uuid.UUID
}

type ConversationFilter struct {
	UserID          uuid.UUID
	PersonaID       *uuid.UUID
	WorkspaceID     *uuid.UUID
	IncludeArchived bool
	Limit           int
}

type ConversationRepo interface {
	Create(dbc dbctx.Context, rows []*types.Conversation) ([]*types.Conversation, error)
	FindActive(dbc dbctx.Context, q ConversationLookup) (*types.Conversation, error)
	List(dbc dbctx.Context, f ConversationFilter) ([]*types.Conversation, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// SwapTitle sets title only if the stored title still equals previous.
	SwapTitle(dbc dbctx.Context, id uuid.UUID, previous *string, title string) (bool, error)
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, log *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: log.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) Create(dbc dbctx.Context, rows []*types.Conversation) ([]*types.Conversation, error) {
	if len(rows) == 0 {
		return []*types.Conversation{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.Visibility == "" {
			row.Visibility = types.VisibilityPrivate
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindActive returns (nil, nil) when no active conversation matches.
func (r *conversationRepo) FindActive(dbc dbctx.Context, q ConversationLookup) (*types.Conversation, error) {
	if q.ID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation id")
	}
	if q.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	tx := dbc.DB(r.db).
		Model(&types.Conversation{}).
		Where("id = ? AND user_id = ? AND is_active = ?", q.ID, q.UserID, true)
	if q.PersonaID != nil {
		tx = tx.Where("persona_id = ?", *q.PersonaID)
	}
	if q.WorkspaceID != nil {
		tx = tx.Where("(workspace_id = ? OR workspace_id IS NULL)", *q.WorkspaceID)
	}
	var out []*types.Conversation
	if err := tx.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *conversationRepo) List(dbc dbctx.Context, f ConversationFilter) ([]*types.Conversation, error) {
	if f.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	tx := dbc.DB(r.db).
		Model(&types.Conversation{}).
		Where("user_id = ? AND is_active = ?", f.UserID, true)
	if f.PersonaID != nil {
		tx = tx.Where("persona_id = ?", *f.PersonaID)
	}
	if f.WorkspaceID != nil {
		tx = tx.Where("(workspace_id = ? OR workspace_id IS NULL)", *f.WorkspaceID)
	}
	if !f.IncludeArchived {
		tx = tx.Where("archived_at IS NULL")
	}
	var out []*types.Conversation
	if err := tx.Order("updated_at DESC").Limit(f.Limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return dbc.DB(r.db).
		Model(&types.Conversation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *conversationRepo) SwapTitle(dbc dbctx.Context, id uuid.UUID, previous *string, title string) (bool, error) {
	if id == uuid.Nil {
		return false, fmt.Errorf("missing id")
	}
	tx := dbc.DB(r.db).Model(&types.Conversation{}).Where("id = ?", id)
	if previous == nil {
		tx = tx.Where("title IS NULL")
	} else {
		tx = tx.Where("title = ?", *previous)
	}
	res := tx.Updates(map[string]interface{}{
		"title":      title,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
