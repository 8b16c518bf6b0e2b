package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/syncraft-backend/internal/data/aggregates"
	"github.com/yungbote/syncraft-backend/internal/data/repos"
	repotest "github.com/yungbote/syncraft-backend/internal/data/repos/testutil"
	types "github.com/yungbote/syncraft-backend/internal/domain"
	"github.com/yungbote/syncraft-backend/internal/pkg/ctxutil"
	"github.com/yungbote/syncraft-backend/internal/platform/cache"
	"github.com/yungbote/syncraft-backend/internal/platform/llm"
)

type fixture struct {
	ctx   context.Context
	tx    *gorm.DB
	repos repos.Set
	cache cache.Cache

	sessions SessionService
	nodes    NodeService
	contexts ContextService
	qa       QAService
}

// newFixture wires every service over one rolled-back transaction and an
// in-memory cache. ctx carries user "u1".
func newFixture(t *testing.T, gen llm.Generator) *fixture {
	t.Helper()
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	log := repotest.Logger(t)

	c, err := cache.NewBadger("", log)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	set := repos.NewSet(tx, log)
	aggs := aggregates.NewSet(aggregates.BaseDeps{DB: tx, Log: log, Runner: aggregates.NewGormTxRunner(tx)}, set)
	return &fixture{
		ctx:      asUser(context.Background(), "u1"),
		tx:       tx,
		repos:    set,
		cache:    c,
		sessions: NewSessionService(tx, log, set, aggs.Sessions, nil, c),
		nodes:    NewNodeService(tx, log, set, aggs.Tree, nil, c),
		contexts: NewContextService(tx, log, set, aggs.Contexts, c),
		qa:       NewQAService(tx, log, set, aggs.QA, gen, c),
	}
}

func asUser(ctx context.Context, userID string) context.Context {
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: userID, Username: userID})
}

func (f *fixture) mustSession(t *testing.T, name string) *types.SessionBundle {
	t.Helper()
	b, err := f.sessions.Create(f.ctx, CreateSessionInput{Name: name})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return b
}

func (f *fixture) mustChild(t *testing.T, sessionID, parentID uuid.UUID) *types.Node {
	t.Helper()
	n, err := f.nodes.Create(f.ctx, CreateNodeInput{SessionID: sessionID, ParentID: &parentID})
	if err != nil {
		t.Fatalf("create node: %v", err)
	}
	return n
}

func (f *fixture) mustQA(t *testing.T, node *types.Node, question, answer string) *types.QAPairView {
	t.Helper()
	in := CreateQAPairInput{NodeID: node.ID, Question: question}
	if answer != "" {
		in.Answer = &answer
	}
	v, err := f.qa.Create(f.ctx, in)
	if err != nil {
		t.Fatalf("create qa pair: %v", err)
	}
	return v
}

// seedFanout writes n children of the session root directly, skipping the
// aggregates, and a QA pair on the last one.
func (f *fixture) seedFanout(t *testing.T, b *types.SessionBundle, n int) *types.Node {
	t.Helper()
	var last *types.Node
	for i := 0; i < n; i++ {
		last = repotest.SeedNode(t, f.ctx, f.tx, b.Session.ID, &b.RootNode.ID)
	}
	repotest.SeedQAPair(t, f.ctx, f.tx, last, "deep in the fanout?", "yes")
	return last
}
