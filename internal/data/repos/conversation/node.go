package conversation

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/syncraft-backend/internal/domain"
	"github.com/yungbote/syncraft-backend/internal/pkg/clock"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type NodeRepo interface {
	Create(dbc dbctx.Context, rows []*types.Node) ([]*types.Node, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Node, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Node, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Node, error)
	ListChildren(dbc dbctx.Context, parentID uuid.UUID) ([]*types.Node, error)
	ListChildrenOf(dbc dbctx.Context, parentIDs []uuid.UUID) ([]*types.Node, error)
	ListChildIDs(dbc dbctx.Context, parentIDs []uuid.UUID) ([]uuid.UUID, error)
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Node, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
	DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error
}

type nodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNodeRepo(db *gorm.DB, log *logger.Logger) NodeRepo {
	return &nodeRepo{db: db, log: log.With("repo", "NodeRepo")}
}

func (r *nodeRepo) Create(dbc dbctx.Context, rows []*types.Node) ([]*types.Node, error) {
	if len(rows) == 0 {
		return []*types.Node{}, nil
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

func (r *nodeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Node, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *nodeRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Node, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID required dbc.Tx")
	}
	var out []*types.Node
	if err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(lockForUpdate()).
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

func (r *nodeRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Node, error) {
	if len(ids) == 0 {
		return []*types.Node{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Node
	if err := txx.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nodeRepo) ListChildren(dbc dbctx.Context, parentID uuid.UUID) ([]*types.Node, error) {
	if parentID == uuid.Nil {
		return []*types.Node{}, nil
	}
	return r.ListChildrenOf(dbc, []uuid.UUID{parentID})
}

// ListChildrenOf returns the direct children of every given parent ordered by
// (created_at, id), so callers can bucket them by ParentID and keep sibling order.
func (r *nodeRepo) ListChildrenOf(dbc dbctx.Context, parentIDs []uuid.UUID) ([]*types.Node, error) {
	if len(parentIDs) == 0 {
		return []*types.Node{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Node
	if err := txx.WithContext(dbc.Ctx).
		Where("parent_id IN ?", parentIDs).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nodeRepo) ListChildIDs(dbc dbctx.Context, parentIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(parentIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []uuid.UUID
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Node{}).
		Where("parent_id IN ?", parentIDs).
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nodeRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Node, error) {
	if sessionID == uuid.Nil {
		return []*types.Node{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Node
	if err := txx.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nodeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = clock.Now()
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&types.Node{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *nodeRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).Where("id IN ?", ids).Delete(&types.Node{})
	return res.RowsAffected, res.Error
}

func (r *nodeRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return fmt.Errorf("missing session_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Where("session_id = ?", sessionID).Delete(&types.Node{}).Error
}
