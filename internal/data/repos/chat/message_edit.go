package chat

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type MessageEditRepo interface {
	Create(dbc dbctx.Context, rows []*types.MessageEdit) ([]*types.MessageEdit, error)
	ListByMessage(dbc dbctx.Context, messageID uuid.UUID) ([]*types.MessageEdit, error)
}

type messageEditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageEditRepo(db *gorm.DB, log *logger.Logger) MessageEditRepo {
	return &messageEditRepo{db: db, log: log.With("repo", "MessageEditRepo")}
}

func (r *messageEditRepo) Create(dbc dbctx.Context, rows []*types.MessageEdit) ([]*types.MessageEdit, error) {
	if len(rows) == 0 {
		return []*types.MessageEdit{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *messageEditRepo) ListByMessage(dbc dbctx.Context, messageID uuid.UUID) ([]*types.MessageEdit, error) {
	if messageID == uuid.Nil {
		return nil, fmt.Errorf("missing message_id")
	}
	var out []*types.MessageEdit
	if err := dbc.DB(r.db).
		Model(&types.MessageEdit{}).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
