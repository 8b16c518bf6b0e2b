package conversation

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/syncraft-backend/internal/domain"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type ContextNodeRepo interface {
	Create(dbc dbctx.Context, rows []*types.ContextNode) ([]*types.ContextNode, error)
	Get(dbc dbctx.Context, contextID, nodeID uuid.UUID) (*types.ContextNode, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
	ListByContext(dbc dbctx.Context, contextID uuid.UUID) ([]*types.ContextNode, error)
	ListByNode(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.ContextNode, error)
	DeleteByContextIDs(dbc dbctx.Context, contextIDs []uuid.UUID) error
	DeleteByNodeIDs(dbc dbctx.Context, nodeIDs []uuid.UUID) error
}

type contextNodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContextNodeRepo(db *gorm.DB, log *logger.Logger) ContextNodeRepo {
	return &contextNodeRepo{db: db, log: log.With("repo", "ContextNodeRepo")}
}

func (r *contextNodeRepo) Create(dbc dbctx.Context, rows []*types.ContextNode) ([]*types.ContextNode, error) {
	if len(rows) == 0 {
		return []*types.ContextNode{}, nil
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

func (r *contextNodeRepo) Get(dbc dbctx.Context, contextID, nodeID uuid.UUID) (*types.ContextNode, error) {
	if contextID == uuid.Nil || nodeID == uuid.Nil {
		return nil, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ContextNode
	if err := txx.WithContext(dbc.Ctx).
		Where("context_id = ? AND node_id = ?", contextID, nodeID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *contextNodeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if len(updates) == 0 {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).
		Model(&types.ContextNode{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *contextNodeRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.ContextNode{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *contextNodeRepo) ListByContext(dbc dbctx.Context, contextID uuid.UUID) ([]*types.ContextNode, error) {
	if contextID == uuid.Nil {
		return []*types.ContextNode{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ContextNode
	if err := txx.WithContext(dbc.Ctx).
		Where("context_id = ?", contextID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contextNodeRepo) ListByNode(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.ContextNode, error) {
	if nodeID == uuid.Nil {
		return []*types.ContextNode{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.ContextNode
	if err := txx.WithContext(dbc.Ctx).
		Where("node_id = ?", nodeID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contextNodeRepo) DeleteByContextIDs(dbc dbctx.Context, contextIDs []uuid.UUID) error {
	if len(contextIDs) == 0 {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Where("context_id IN ?", contextIDs).Delete(&types.ContextNode{}).Error
}

func (r *contextNodeRepo) DeleteByNodeIDs(dbc dbctx.Context, nodeIDs []uuid.UUID) error {
	if len(nodeIDs) == 0 {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Where("node_id IN ?", nodeIDs).Delete(&types.ContextNode{}).Error
}
