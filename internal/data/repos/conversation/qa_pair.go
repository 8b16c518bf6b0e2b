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

// QAPairScope narrows ListForSearch. A nil SessionID means every session;
// ContextID keeps pairs on that context's member nodes. UserID keeps only
// pairs in that owner's sessions.
type QAPairScope struct {
	SessionID *uuid.UUID
	ContextID *uuid.UUID
	UserID    string
}

type QAPairRepo interface {
	Create(dbc dbctx.Context, rows []*types.QAPair) ([]*types.QAPair, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QAPair, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.QAPair, error)
	ListByNode(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.QAPair, error)
	ListByNodeIDs(dbc dbctx.Context, nodeIDs []uuid.UUID) ([]*types.QAPair, error)
	LatestByNode(dbc dbctx.Context, nodeID uuid.UUID) (*types.QAPair, error)
	ListForSearch(dbc dbctx.Context, scope QAPairScope) ([]*types.QAPair, error)
	IDsByNodeIDs(dbc dbctx.Context, nodeIDs []uuid.UUID) ([]uuid.UUID, error)
	IDsBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]uuid.UUID, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Touch(dbc dbctx.Context, id uuid.UUID) error
	IncrementViewCount(dbc dbctx.Context, id uuid.UUID) (bool, error)
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
}

type qaPairRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQAPairRepo(db *gorm.DB, log *logger.Logger) QAPairRepo {
	return &qaPairRepo{db: db, log: log.With("repo", "QAPairRepo")}
}

func (r *qaPairRepo) Create(dbc dbctx.Context, rows []*types.QAPair) ([]*types.QAPair, error) {
	if len(rows) == 0 {
		return []*types.QAPair{}, nil
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

func (r *qaPairRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QAPair, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.QAPair
	if err := txx.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// LockByID serializes writers appending to the same pair. Returns nil when absent.
func (r *qaPairRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.QAPair, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing id")
	}
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID required dbc.Tx")
	}
	var out []*types.QAPair
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

func (r *qaPairRepo) ListByNode(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.QAPair, error) {
	if nodeID == uuid.Nil {
		return []*types.QAPair{}, nil
	}
	return r.ListByNodeIDs(dbc, []uuid.UUID{nodeID})
}

// ListByNodeIDs orders by (created_at, id) ascending.
func (r *qaPairRepo) ListByNodeIDs(dbc dbctx.Context, nodeIDs []uuid.UUID) ([]*types.QAPair, error) {
	if len(nodeIDs) == 0 {
		return []*types.QAPair{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.QAPair
	if err := txx.WithContext(dbc.Ctx).
		Where("node_id IN ?", nodeIDs).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *qaPairRepo) LatestByNode(dbc dbctx.Context, nodeID uuid.UUID) (*types.QAPair, error) {
	if nodeID == uuid.Nil {
		return nil, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []*types.QAPair
	if err := txx.WithContext(dbc.Ctx).
		Where("node_id = ?", nodeID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// ListForSearch returns candidate pairs newest first; text matching happens
// on the derived question/answer in the caller.
func (r *qaPairRepo) ListForSearch(dbc dbctx.Context, scope QAPairScope) ([]*types.QAPair, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	q := txx.WithContext(dbc.Ctx).Model(&types.QAPair{})
	if scope.SessionID != nil {
		q = q.Where("session_id = ?", *scope.SessionID)
	}
	if scope.ContextID != nil {
		q = q.Where("node_id IN (?)", txx.Model(&types.ContextNode{}).Select("node_id").Where("context_id = ?", *scope.ContextID))
	}
	if scope.UserID != "" {
		q = q.Where("session_id IN (?)", txx.Model(&types.Session{}).Select("id").Where("user_id = ?", scope.UserID))
	}
	var out []*types.QAPair
	if err := q.Order("created_at DESC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *qaPairRepo) IDsByNodeIDs(dbc dbctx.Context, nodeIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(nodeIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []uuid.UUID
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.QAPair{}).
		Where("node_id IN ?", nodeIDs).
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *qaPairRepo) IDsBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]uuid.UUID, error) {
	if sessionID == uuid.Nil {
		return []uuid.UUID{}, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var out []uuid.UUID
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.QAPair{}).
		Where("session_id = ?", sessionID).
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *qaPairRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.QAPair{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Touch moves updated_at forward.
func (r *qaPairRepo) Touch(dbc dbctx.Context, id uuid.UUID) error {
	return r.UpdateFields(dbc, id, nil)
}

func (r *qaPairRepo) IncrementViewCount(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).
		Model(&types.QAPair{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *qaPairRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	res := txx.WithContext(dbc.Ctx).Where("id IN ?", ids).Delete(&types.QAPair{})
	return res.RowsAffected, res.Error
}
