package aggregates_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/syncraft-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/syncraft-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/syncraft-backend/internal/data/repos"
	repotest "github.com/yungbote/syncraft-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
)

type harness struct {
	ctx   context.Context
	tx    *gorm.DB
	repos repos.Set
	hooks *aggtest.HooksRecorder

	sessions domainagg.SessionAggregate
	tree     domainagg.TreeAggregate
	contexts domainagg.ContextAggregate
	qa       domainagg.QAAggregate
}

// newHarness builds every aggregate over one rolled-back test transaction;
// aggregate transactions nest as savepoints.
func newHarness(t *testing.T) *harness {
	t.Helper()
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	return newHarnessWithRunner(t, tx, aggregates.NewGormTxRunner(tx))
}

// newHarnessWithRunner lets a test swap the runner and, through wrap, any
// repo in the set the aggregates are built over.
func newHarnessWithRunner(t *testing.T, tx *gorm.DB, runner aggregates.TxRunner, wrap ...func(*repos.Set)) *harness {
	t.Helper()
	log := repotest.Logger(t)
	set := repos.NewSet(tx, log)
	for _, w := range wrap {
		w(&set)
	}
	hooks := &aggtest.HooksRecorder{}
	base := aggregates.BaseDeps{DB: tx, Log: log, Runner: runner, Hooks: hooks}

	ctxAgg := aggregates.NewContextAggregate(aggregates.ContextAggregateDeps{
		Base:         base,
		Sessions:     set.Session,
		Nodes:        set.Node,
		Contexts:     set.Context,
		ContextNodes: set.ContextNode,
	})
	return &harness{
		ctx:   context.Background(),
		tx:    tx,
		repos: set,
		hooks: hooks,
		sessions: aggregates.NewSessionAggregate(aggregates.SessionAggregateDeps{
			Base:         base,
			Sessions:     set.Session,
			Nodes:        set.Node,
			Edges:        set.Edge,
			Contexts:     set.Context,
			ContextNodes: set.ContextNode,
			QAPairs:      set.QAPair,
			Messages:     set.Message,
		}),
		tree: aggregates.NewTreeAggregate(aggregates.TreeAggregateDeps{
			Base:         base,
			Sessions:     set.Session,
			Nodes:        set.Node,
			Edges:        set.Edge,
			Contexts:     set.Context,
			ContextNodes: set.ContextNode,
			QAPairs:      set.QAPair,
			Messages:     set.Message,
			ContextAgg:   ctxAgg,
		}),
		contexts: ctxAgg,
		qa: aggregates.NewQAAggregate(aggregates.QAAggregateDeps{
			Base:     base,
			Nodes:    set.Node,
			QAPairs:  set.QAPair,
			Messages: set.Message,
		}),
	}
}

func (h *harness) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := h.tx.WithContext(h.ctx).Model(model).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func (h *harness) mustSession(t *testing.T) *sessionFixture {
	t.Helper()
	b, err := h.sessions.CreateSession(h.ctx, domainagg.CreateSessionInput{Name: "s", UserID: "u1"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return &sessionFixture{id: b.Session.ID, root: b.RootNode.ID, chat: b.ChatContext.ID}
}

func (h *harness) mustChild(t *testing.T, sessionID, parentID uuid.UUID) uuid.UUID {
	t.Helper()
	n, err := h.tree.CreateNode(h.ctx, domainagg.CreateNodeInput{SessionID: sessionID, ParentID: &parentID})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	return n.ID
}

type sessionFixture struct {
	id   uuid.UUID
	root uuid.UUID
	chat uuid.UUID
}
