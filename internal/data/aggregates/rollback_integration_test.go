package aggregates_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/syncraft-backend/internal/data/aggregates"
	"github.com/yungbote/syncraft-backend/internal/data/repos"
	repotest "github.com/yungbote/syncraft-backend/internal/data/repos/testutil"
	types "github.com/yungbote/syncraft-backend/internal/domain"
	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
)

type failingContextNodeRepo struct {
	repos.ContextNodeRepo
	err error
}

func (r failingContextNodeRepo) Create(dbctx.Context, []*types.ContextNode) ([]*types.ContextNode, error) {
	return nil, r.err
}

func TestCreateSessionFailureLeavesNoRows(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	boom := errors.New("membership insert failed")
	h := newHarnessWithRunner(t, tx, aggregates.NewGormTxRunner(tx), func(set *repos.Set) {
		set.ContextNode = failingContextNodeRepo{ContextNodeRepo: set.ContextNode, err: boom}
	})

	_, err := h.sessions.CreateSession(h.ctx, domainagg.CreateSessionInput{Name: "s", UserID: "u1"})
	if err == nil {
		t.Fatalf("expected CreateSession to fail")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("cause must be preserved, got %v", err)
	}

	for name, model := range map[string]any{
		"sessions":    &types.Session{},
		"nodes":       &types.Node{},
		"contexts":    &types.Context{},
		"memberships": &types.ContextNode{},
	} {
		if got := h.count(t, model, "1 = 1"); got != 0 {
			t.Fatalf("%s: want=0 got=%d", name, got)
		}
	}
}

func TestDeleteNodeFailureMidCascadeRollsBack(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	boom := errors.New("node delete failed")
	var failing bool
	h := newHarnessWithRunner(t, tx, aggregates.NewGormTxRunner(tx), func(set *repos.Set) {
		set.Node = switchableNodeRepo{NodeRepo: set.Node, fail: &failing, err: boom}
	})
	s := h.mustSession(t)

	a := h.mustChild(t, s.id, s.root)
	b := h.mustChild(t, s.id, a)
	answer := "answer"
	if _, err := h.qa.CreateQAPair(h.ctx, domainagg.CreateQAPairInput{NodeID: b, Question: "q", Answer: &answer}); err != nil {
		t.Fatalf("CreateQAPair: %v", err)
	}
	deep, err := h.contexts.CreateContext(h.ctx, domainagg.CreateContextInput{SessionID: s.id, RootNodeID: a, Mode: "deepdive"})
	if err != nil {
		t.Fatalf("CreateContext: %v", err)
	}
	if _, err := h.contexts.UpdateActiveNode(h.ctx, s.chat, b); err != nil {
		t.Fatalf("UpdateActiveNode: %v", err)
	}

	type snapshot struct{ nodes, edges, pairs, messages, contexts, memberships int64 }
	take := func() snapshot {
		return snapshot{
			nodes:       h.count(t, &types.Node{}, "1 = 1"),
			edges:       h.count(t, &types.Edge{}, "1 = 1"),
			pairs:       h.count(t, &types.QAPair{}, "1 = 1"),
			messages:    h.count(t, &types.Message{}, "1 = 1"),
			contexts:    h.count(t, &types.Context{}, "1 = 1"),
			memberships: h.count(t, &types.ContextNode{}, "1 = 1"),
		}
	}
	before := take()

	// Pairs, edges and the rooted context are gone by the time nodes are
	// deleted; all of it must come back.
	failing = true
	_, err = h.tree.DeleteNode(h.ctx, a)
	if !errors.Is(err, boom) {
		t.Fatalf("DeleteNode: want cause %v, got %v", boom, err)
	}

	if after := take(); after != before {
		t.Fatalf("partial delete: before=%+v after=%+v", before, after)
	}
	if got := h.count(t, &types.Context{}, "id = ?", deep.ID); got != 1 {
		t.Fatalf("context rooted in the subtree must survive the rollback")
	}
	chat, err := h.repos.Context.GetByID(dbctx.Context{Ctx: h.ctx}, s.chat)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if chat.ActiveNodeID != b {
		t.Fatalf("active pointer repair must roll back: want=%s got=%s", b, chat.ActiveNodeID)
	}
}

type switchableNodeRepo struct {
	repos.NodeRepo
	fail *bool
	err  error
}

func (r switchableNodeRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	if *r.fail {
		return 0, r.err
	}
	return r.NodeRepo.DeleteByIDs(dbc, ids)
}

// batchRecorder remembers the widest id list each cascade delete was handed.
type batchRecorder struct {
	widestPairs    int
	widestMessages int
}

type recordingQAPairRepo struct {
	repos.QAPairRepo
	rec *batchRecorder
}

func (r recordingQAPairRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	r.rec.widestPairs = max(r.rec.widestPairs, len(ids))
	return r.QAPairRepo.DeleteByIDs(dbc, ids)
}

type recordingMessageRepo struct {
	repos.MessageRepo
	rec *batchRecorder
}

func (r recordingMessageRepo) DeleteByQAPairIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	r.rec.widestMessages = max(r.rec.widestMessages, len(ids))
	return r.MessageRepo.DeleteByQAPairIDs(dbc, ids)
}

func TestDeleteNodeBatchesLargePairSets(t *testing.T) {
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	rec := &batchRecorder{}
	h := newHarnessWithRunner(t, tx, aggregates.NewGormTxRunner(tx), func(set *repos.Set) {
		set.QAPair = recordingQAPairRepo{QAPairRepo: set.QAPair, rec: rec}
		set.Message = recordingMessageRepo{MessageRepo: set.Message, rec: rec}
	})
	s := h.mustSession(t)
	leaf := h.mustChild(t, s.id, s.root)

	const total = 1234
	pairs := make([]*types.QAPair, 0, total)
	msgs := make([]*types.Message, 0, total)
	for i := 0; i < total; i++ {
		p := &types.QAPair{
			ID:        uuid.New(),
			NodeID:    leaf,
			SessionID: s.id,
			Tags:      datatypes.JSON([]byte("[]")),
			Ext:       datatypes.JSON([]byte("{}")),
		}
		pairs = append(pairs, p)
		msgs = append(msgs, &types.Message{QAPairID: p.ID, Seq: 1, Role: types.RoleUser, Content: "q", Metadata: datatypes.JSON([]byte("{}"))})
	}
	if err := h.tx.WithContext(h.ctx).CreateInBatches(pairs, 200).Error; err != nil {
		t.Fatalf("seed pairs: %v", err)
	}
	if err := h.tx.WithContext(h.ctx).CreateInBatches(msgs, 200).Error; err != nil {
		t.Fatalf("seed messages: %v", err)
	}

	res, err := h.tree.DeleteNode(h.ctx, leaf)
	if err != nil || !res.Deleted {
		t.Fatalf("DeleteNode: res=%+v err=%v", res, err)
	}
	if got := h.count(t, &types.QAPair{}, "node_id = ?", leaf); got != 0 {
		t.Fatalf("qa pairs left: %d", got)
	}
	if got := h.count(t, &types.Message{}, "1 = 1"); got != 0 {
		t.Fatalf("messages left: %d", got)
	}
	if rec.widestPairs == 0 || rec.widestPairs > 500 {
		t.Fatalf("qa pair deletes must be batched: widest=%d", rec.widestPairs)
	}
	if rec.widestMessages == 0 || rec.widestMessages > 500 {
		t.Fatalf("message deletes must be batched: widest=%d", rec.widestMessages)
	}
}
