package conversation

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/syncraft-backend/internal/domain"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type EdgeRepo interface {
	Create(dbc dbctx.Context, rows []*types.Edge) ([]*types.Edge, error)
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Edge, error)
	DeleteTouching(dbc dbctx.Context, nodeIDs []uuid.UUID) error
	DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error
}

type edgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEdgeRepo(db *gorm.DB, log *logger.Logger) EdgeRepo {
	return &edgeRepo{db: db, log: log.With("repo", "EdgeRepo")}
}

func (r *edgeRepo) Create(dbc dbctx.Context, rows []*types.Edge) ([]*types.Edge, error) {
	if len(rows) == 0 {
		return []*types.Edge{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	if err := txx.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *edgeRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Edge, error) {
	if sessionID == uuid.Nil {
		return []*types.Edge{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Edge
	if err := txx.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTouching removes every edge whose source or target is in nodeIDs.
func (r *edgeRepo) DeleteTouching(dbc dbctx.Context, nodeIDs []uuid.UUID) error {
	if len(nodeIDs) == 0 {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Where("source_id IN ? OR target_id IN ?", nodeIDs, nodeIDs).
		Delete(&types.Edge{}).Error
}

func (r *edgeRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return fmt.Errorf("missing session_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Where("session_id = ?", sessionID).Delete(&types.Edge{}).Error
}
