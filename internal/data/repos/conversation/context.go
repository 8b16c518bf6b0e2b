package conversation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/syncraft-backend/internal/domain"
	"github.com/yungbote/syncraft-backend/internal/pkg/clock"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type ContextRepo interface {
	Create(dbc dbctx.Context, rows []*types.Context) ([]*types.Context, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Context, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Context, error)
	GetByContextID(dbc dbctx.Context, contextID string) (*types.Context, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Context, error)
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Context, error)
	ListRootedAt(dbc dbctx.Context, nodeIDs []uuid.UUID) ([]*types.Context, error)
	ListActiveAt(dbc dbctx.Context, nodeIDs []uuid.UUID) ([]*types.Context, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
	DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error
}

type contextRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContextRepo(db *gorm.DB, log *logger.Logger) ContextRepo {
	return &contextRepo{db: db, log: log.With("repo", "ContextRepo")}
}

func (r *contextRepo) Create(dbc dbctx.Context, rows []*types.Context) ([]*types.Context, error) {
	if len(rows) == 0 {
		return []*types.Context{}, nil
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

func (r *contextRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Context, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *contextRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Context, error) {
	if len(ids) == 0 {
		return []*types.Context{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Context
	if err := txx.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contextRepo) GetByContextID(dbc dbctx.Context, contextID string) (*types.Context, error) {
	contextID = strings.TrimSpace(contextID)
	if contextID == "" {
		return nil, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Context
	if err := txx.WithContext(dbc.Ctx).
		Where("context_id = ?", contextID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// LockByID reads the context FOR UPDATE. Returns nil when it does not exist.
func (r *contextRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Context, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID required dbc.Tx")
	}
	var out []*types.Context
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

func (r *contextRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Context, error) {
	if sessionID == uuid.Nil {
		return []*types.Context{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Context
	if err := txx.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contextRepo) ListRootedAt(dbc dbctx.Context, nodeIDs []uuid.UUID) ([]*types.Context, error) {
	return r.listWhereIn(dbc, "context_root_node_id", nodeIDs)
}

func (r *contextRepo) ListActiveAt(dbc dbctx.Context, nodeIDs []uuid.UUID) ([]*types.Context, error) {
	return r.listWhereIn(dbc, "active_node_id", nodeIDs)
}

func (r *contextRepo) listWhereIn(dbc dbctx.Context, column string, ids []uuid.UUID) ([]*types.Context, error) {
	if len(ids) == 0 {
		return []*types.Context{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.Context
	if err := txx.WithContext(dbc.Ctx).
		Where(column+" IN ?", ids).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contextRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Context{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *contextRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).Where("id IN ?", ids).Delete(&types.Context{})
	return res.RowsAffected, res.Error
}

func (r *contextRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return fmt.Errorf("missing session_id")
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Where("session_id = ?", sessionID).Delete(&types.Context{}).Error
}
