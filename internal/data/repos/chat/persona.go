package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/personachat-backend/internal/domain"
	"github.com/yungbote/personachat-backend/internal/platform/dbctx"
	"github.com/yungbote/personachat-backend/internal/platform/logger"
)

type PersonaRepo interface {
	Create(dbc dbctx.Context, rows []*types.Persona) ([]*types.Persona, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Persona, error)
	GetBySlug(dbc dbctx.Context, slug string) (*types.Persona, error)
}

type personaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonaRepo(db *gorm.DB, log *logger.Logger) PersonaRepo {
	return &personaRepo{db: db, log: log.With("repo", "PersonaRepo")}
}

func (r *personaRepo) Create(dbc dbctx.Context, rows []*types.Persona) ([]*types.Persona, error) {
	if len(rows) == 0 {
		return []*types.Persona{}, nil
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

// GetByID returns (nil, nil) when the persona does not exist.
func (r *personaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Persona, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing persona id")
	}
	var out []*types.Persona
	if err := dbc.DB(r.db).
		Model(&types.Persona{}).
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

func (r *personaRepo) GetBySlug(dbc dbctx.Context, slug string) (*types.Persona, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("missing persona slug")
	}
	var out []*types.Persona
	if err := dbc.DB(r.db).
		Model(&types.Persona{}).
		Where("slug = ?", slug).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}
