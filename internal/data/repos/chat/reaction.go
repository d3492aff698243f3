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

type ReactionRepo interface {
	Get(dbc dbctx.Context, messageID, userID uuid.UUID) (*types.Reaction, error)
	Create(dbc dbctx.Context, row *types.Reaction) (*types.Reaction, error)
	UpdateType(dbc dbctx.Context, id uuid.UUID, reactionType string) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type reactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReactionRepo(db *gorm.DB, log *logger.Logger) ReactionRepo {
	return &reactionRepo{db: db, log: log.With("repo", "ReactionRepo")}
}

func (r *reactionRepo) Get(dbc dbctx.Context, messageID, userID uuid.UUID) (*types.Reaction, error) {
	if messageID == uuid.Nil || userID == uuid.Nil {
		return nil, fmt.Errorf("missing message_id or user_id")
	}
	var out []*types.Reaction
	if err := dbc.DB(r.db).
		Model(&types.Reaction{}).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *reactionRepo) Create(dbc dbctx.Context, row *types.Reaction) (*types.Reaction, error) {
	if row == nil {
		return nil, fmt.Errorf("missing reaction")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *reactionRepo) UpdateType(dbc dbctx.Context, id uuid.UUID, reactionType string) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	return dbc.DB(r.db).
		Model(&types.Reaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"type":       reactionType,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *reactionRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	return dbc.DB(r.db).Where("id = ?", id).Delete(&types.Reaction{}).Error
}
