package audit

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type AuditLogRepo interface {
	Create(dbc dbctx.Context, row *types.AuditLog) error
	ListByEvent(dbc dbctx.Context, eventType string, limit int) ([]*types.AuditLog, error)
}

type auditLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditLogRepo(db *gorm.DB, log *logger.Logger) AuditLogRepo {
	return &auditLogRepo{db: db, log: log.With("repo", "AuditLogRepo")}
}

func (r *auditLogRepo) Create(dbc dbctx.Context, row *types.AuditLog) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if len(row.Payload) == 0 {
		row.Payload = []byte(`{}`)
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *auditLogRepo) ListByEvent(dbc dbctx.Context, eventType string, limit int) ([]*types.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*types.AuditLog
	if err := dbc.DB(r.db).
		Model(&types.AuditLog{}).
		Where("event_type = ?", eventType).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
