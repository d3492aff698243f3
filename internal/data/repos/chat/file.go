package chat

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type UploadedFileRepo interface {
	Create(dbc dbctx.Context, rows []*types.UploadedFile) ([]*types.UploadedFile, error)
	// GetForConversation matches files owned by userID that are either unattached
	// or already attached to conversationID.
	GetForConversation(dbc dbctx.Context, id, userID, conversationID uuid.UUID) (*types.UploadedFile, error)
	AttachToConversation(dbc dbctx.Context, id, conversationID uuid.UUID) error
}

type uploadedFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadedFileRepo(db *gorm.DB, log *logger.Logger) UploadedFileRepo {
	return &uploadedFileRepo{db: db, log: log.With("repo", "UploadedFileRepo")}
}

func (r *uploadedFileRepo) Create(dbc dbctx.Context, rows []*types.UploadedFile) ([]*types.UploadedFile, error) {
	if len(rows) == 0 {
		return []*types.UploadedFile{}, nil
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

func (r *uploadedFileRepo) GetForConversation(dbc dbctx.Context, id, userID, conversationID uuid.UUID) (*types.UploadedFile, error) {
	if id == uuid.Nil || userID == uuid.Nil {
		return nil, fmt.Errorf("missing file id or user id")
	}
	var out []*types.UploadedFile
	if err := dbc.DB(r.db).
		Model(&types.UploadedFile{}).
		Where("id = ? AND user_id = ?", id, userID).
		Where("(conversation_id IS NULL OR conversation_id = ?)", conversationID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *uploadedFileRepo) AttachToConversation(dbc dbctx.Context, id, conversationID uuid.UUID) error {
	if id == uuid.Nil || conversationID == uuid.Nil {
		return fmt.Errorf("missing file id or conversation id")
	}
	return dbc.DB(r.db).
		Model(&types.UploadedFile{}).
		Where("id = ? AND conversation_id IS NULL", id).
		Update("conversation_id", conversationID).Error
}
