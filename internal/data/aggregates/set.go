package aggregates

import (
	"github.com/yungbote/syncraft-backend/internal/data/repos"
	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
)

// Set wires the conversation aggregates over one repo set. Tree shares the
// context aggregate so CreateNode can advance a pointer in its own transaction.
type Set struct {
	Sessions domainagg.SessionAggregate
	Tree     domainagg.TreeAggregate
	Contexts domainagg.ContextAggregate
	QA       domainagg.QAAggregate
}

func NewSet(base BaseDeps, r repos.Set) Set {
	ctxAgg := NewContextAggregate(ContextAggregateDeps{
		Base:         base,
		Sessions:     r.Session,
		Nodes:        r.Node,
		Contexts:     r.Context,
		ContextNodes: r.ContextNode,
	})
	return Set{
		Sessions: NewSessionAggregate(SessionAggregateDeps{
			Base:         base,
			Sessions:     r.Session,
			Nodes:        r.Node,
			Edges:        r.Edge,
			Contexts:     r.Context,
			ContextNodes: r.ContextNode,
			QAPairs:      r.QAPair,
			Messages:     r.Message,
		}),
		Tree: NewTreeAggregate(TreeAggregateDeps{
			Base:         base,
			Sessions:     r.Session,
			Nodes:        r.Node,
			Edges:        r.Edge,
			Contexts:     r.Context,
			ContextNodes: r.ContextNode,
			QAPairs:      r.QAPair,
			Messages:     r.Message,
			ContextAgg:   ctxAgg,
		}),
		Contexts: ctxAgg,
		QA: NewQAAggregate(QAAggregateDeps{
			Base:     base,
			Nodes:    r.Node,
			QAPairs:  r.QAPair,
			Messages: r.Message,
		}),
	}
}
