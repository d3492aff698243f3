package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type ChatSessionRepo interface {
	Create(dbc dbctx.Context, rows []*types.ChatSession) ([]*types.ChatSession, error)
	GetBySessionID(dbc dbctx.Context, sessionID string) (*types.ChatSession, error)
	MarkEnded(dbc dbctx.Context, id uuid.UUID, status string) error
}

type chatSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatSessionRepo(db *gorm.DB, log *logger.Logger) ChatSessionRepo {
	return &chatSessionRepo{db: db, log: log.With("repo", "ChatSessionRepo")}
}

func (r *chatSessionRepo) Create(dbc dbctx.Context, rows []*types.ChatSession) ([]*types.ChatSession, error) {
	if len(rows) == 0 {
		return []*types.ChatSession{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if len(row.Metadata) == 0 {
			row.Metadata = []byte(`{}`)
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chatSessionRepo) GetBySessionID(dbc dbctx.Context, sessionID string) (*types.ChatSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("missing session_id")
	}
	var out []*types.ChatSession
	if err := dbc.DB(r.db).
		Model(&types.ChatSession{}).
		Where("session_id = ?", sessionID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *chatSessionRepo) MarkEnded(dbc dbctx.Context, id uuid.UUID, status string) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	now := time.Now().UTC()
	return dbc.DB(r.db).
		Model(&types.ChatSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"ended_at":   now,
			"updated_at": now,
		}).Error
}
