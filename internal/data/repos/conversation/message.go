package conversation

import (
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/syncraft-backend/internal/domain"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type MessageRepo interface {
	Create(dbc dbctx.Context, rows []*types.Message) ([]*types.Message, error)
	ListByQAPair(dbc dbctx.Context, qaPairID uuid.UUID) ([]*types.Message, error)
	ListByQAPairIDs(dbc dbctx.Context, qaPairIDs []uuid.UUID) (map[uuid.UUID][]*types.Message, error)
	MaxSeq(dbc dbctx.Context, qaPairID uuid.UUID) (int, error)
	DeleteByQAPairIDs(dbc dbctx.Context, qaPairIDs []uuid.UUID) error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, rows []*types.Message) ([]*types.Message, error) {
	if len(rows) == 0 {
		return []*types.Message{}, nil
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

func (r *messageRepo) ListByQAPair(dbc dbctx.Context, qaPairID uuid.UUID) ([]*types.Message, error) {
	if qaPairID == uuid.Nil {
		return []*types.Message{}, nil
	}
	byPair, err := r.ListByQAPairIDs(dbc, []uuid.UUID{qaPairID})
	if err != nil {
		return nil, err
	}
	if msgs := byPair[qaPairID]; msgs != nil {
		return msgs, nil
	}
	return []*types.Message{}, nil
}

// ListByQAPairIDs groups messages by pair, each group in seq order.
func (r *messageRepo) ListByQAPairIDs(dbc dbctx.Context, qaPairIDs []uuid.UUID) (map[uuid.UUID][]*types.Message, error) {
	out := make(map[uuid.UUID][]*types.Message, len(qaPairIDs))
	if len(qaPairIDs) == 0 {
		return out, nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var rows []*types.Message
	if err := txx.WithContext(dbc.Ctx).
		Where("qa_pair_id IN ?", qaPairIDs).
		Order("qa_pair_id ASC, seq ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, m := range rows {
		out[m.QAPairID] = append(out[m.QAPairID], m)
	}
	return out, nil
}

// MaxSeq returns 0 for a pair without messages.
func (r *messageRepo) MaxSeq(dbc dbctx.Context, qaPairID uuid.UUID) (int, error) {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	var max sql.NullInt64
	if err := txx.WithContext(dbc.Ctx).
		Model(&types.Message{}).
		Where("qa_pair_id = ?", qaPairID).
		Select("MAX(seq)").
		Row().
		Scan(&max); err != nil {
		return 0, err
	}
	return int(max.Int64), nil
}

func (r *messageRepo) DeleteByQAPairIDs(dbc dbctx.Context, qaPairIDs []uuid.UUID) error {
	if len(qaPairIDs) == 0 {
		return nil
	}
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx).Where("qa_pair_id IN ?", qaPairIDs).Delete(&types.Message{}).Error
}
