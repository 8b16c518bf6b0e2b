package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/syncraft-backend/internal/data/repos"
	types "github.com/yungbote/syncraft-backend/internal/domain"
	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
	"github.com/yungbote/syncraft-backend/internal/domain/conversation"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
)

type ContextAggregateDeps struct {
	Base         BaseDeps
	Sessions     repos.SessionRepo
	Nodes        repos.NodeRepo
	Contexts     repos.ContextRepo
	ContextNodes repos.ContextNodeRepo
}

type contextAggregate struct {
	deps ContextAggregateDeps
}

func NewContextAggregate(deps ContextAggregateDeps) domainagg.ContextAggregate {
	return &contextAggregate{deps: deps}
}

func (a *contextAggregate) Contract() domainagg.Contract {
	return domainagg.ContextAggregateContract
}

func (a *contextAggregate) CreateContext(ctx context.Context, in domainagg.CreateContextInput) (*types.Context, error) {
	const op = "context.create"
	mode := conversation.NormalizeMode(in.Mode)
	if mode == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing mode", nil)
	}
	if in.SessionID == uuid.Nil || in.RootNodeID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing session_id or root_node_id", nil)
	}
	contextID := conversation.DeriveContextID(mode, in.SessionID, in.RootNodeID)

	var out *types.Context
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		session, err := a.deps.Sessions.GetByID(dbc, in.SessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return notFoundf("session %s not found", in.SessionID)
		}
		root, err := a.deps.Nodes.GetByID(dbc, in.RootNodeID)
		if err != nil {
			return err
		}
		if root == nil {
			return notFoundf("node %s not found", in.RootNodeID)
		}
		if err := requireSameSession(session.ID, root.SessionID, "root node"); err != nil {
			return err
		}
		existing, err := a.deps.Contexts.GetByContextID(dbc, contextID)
		if err != nil {
			return err
		}
		if existing != nil {
			out = existing
			return nil
		}
		out, err = insertContextWithRoot(dbc, a.deps.Contexts, a.deps.ContextNodes, mode, session.ID, root.ID, in.Source)
		return err
	})
	if domainagg.IsCode(err, domainagg.CodeConflict) {
		// Lost the unique-index race on context_id; the winner's row is the answer.
		winner, rerr := a.deps.Contexts.GetByContextID(dbctx.Context{Ctx: ctx}, contextID)
		if rerr == nil && winner != nil {
			return winner, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// insertContextWithRoot writes a context (active = root) and its root
// membership. Callers own the transaction.
func insertContextWithRoot(dbc dbctx.Context, contexts repos.ContextRepo, members repos.ContextNodeRepo, mode string, sessionID, rootID uuid.UUID, source *string) (*types.Context, error) {
	mode = conversation.NormalizeMode(mode)
	c := &types.Context{
		ID:                uuid.New(),
		ContextID:         conversation.DeriveContextID(mode, sessionID, rootID),
		Mode:              mode,
		SessionID:         sessionID,
		ContextRootNodeID: rootID,
		ActiveNodeID:      rootID,
		Source:            source,
	}
	if _, err := contexts.Create(dbc, []*types.Context{c}); err != nil {
		return nil, err
	}
	m := &types.ContextNode{
		ContextID:    c.ID,
		NodeID:       rootID,
		RelationType: types.RelationRoot,
		Metadata:     emptyObject(),
	}
	if _, err := members.Create(dbc, []*types.ContextNode{m}); err != nil {
		return nil, err
	}
	return c, nil
}

func (a *contextAggregate) UpdateActiveNode(ctx context.Context, contextID, nodeID uuid.UUID) (*types.Context, error) {
	return a.UpdateActiveNodeInTx(dbctx.Context{Ctx: ctx}, contextID, nodeID)
}

func (a *contextAggregate) UpdateActiveNodeInTx(dbc dbctx.Context, contextID, nodeID uuid.UUID) (*types.Context, error) {
	const op = "context.update_active_node"
	if contextID == uuid.Nil || nodeID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing context_id or node_id", nil)
	}
	var out *types.Context
	err := joinOrBegin(dbc, a.deps.Base, op, func(dbc dbctx.Context) error {
		c, err := a.deps.Contexts.LockByID(dbc, contextID)
		if err != nil || c == nil {
			return err
		}
		node, err := a.deps.Nodes.GetByID(dbc, nodeID)
		if err != nil {
			return err
		}
		if node == nil {
			return notFoundf("node %s not found", nodeID)
		}
		if err := requireSameSession(c.SessionID, node.SessionID, "node"); err != nil {
			return err
		}
		if err := a.deps.Contexts.UpdateFields(dbc, c.ID, map[string]interface{}{"active_node_id": node.ID}); err != nil {
			return err
		}
		out, err = a.deps.Contexts.GetByID(dbc, c.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *contextAggregate) AddNode(ctx context.Context, in domainagg.AddContextNodeInput) (*types.ContextNode, error) {
	return a.AddNodeInTx(dbctx.Context{Ctx: ctx}, in)
}

func (a *contextAggregate) AddNodeInTx(dbc dbctx.Context, in domainagg.AddContextNodeInput) (*types.ContextNode, error) {
	const op = "context.add_node"
	if in.ContextID == uuid.Nil || in.NodeID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing context_id or node_id", nil)
	}
	relation := strings.TrimSpace(in.RelationType)
	if relation == "" {
		relation = types.RelationMember
	}
	var out *types.ContextNode
	err := joinOrBegin(dbc, a.deps.Base, op, func(dbc dbctx.Context) error {
		c, err := a.deps.Contexts.GetByID(dbc, in.ContextID)
		if err != nil {
			return err
		}
		if c == nil {
			return notFoundf("context %s not found", in.ContextID)
		}
		node, err := a.deps.Nodes.GetByID(dbc, in.NodeID)
		if err != nil {
			return err
		}
		if node == nil {
			return notFoundf("node %s not found", in.NodeID)
		}
		if err := requireSameSession(c.SessionID, node.SessionID, "node"); err != nil {
			return err
		}
		if relation == types.RelationRoot && node.ID != c.ContextRootNodeID {
			return InvalidOperationError("only the context root node can hold the root relation")
		}
		existing, err := a.deps.ContextNodes.Get(dbc, c.ID, node.ID)
		if err != nil {
			return err
		}
		if existing != nil && existing.RelationType == types.RelationRoot && relation != types.RelationRoot {
			return InvalidOperationError("the root membership cannot be changed")
		}

		if existing == nil {
			meta, err := jsonObject(in.Metadata)
			if err != nil {
				return err
			}
			row := &types.ContextNode{ContextID: c.ID, NodeID: node.ID, RelationType: relation, Metadata: meta}
			if _, err := a.deps.ContextNodes.Create(dbc, []*types.ContextNode{row}); err != nil {
				return err
			}
			out = row
			return nil
		}

		updates := map[string]interface{}{"relation_type": relation}
		if in.Metadata != nil {
			meta, err := jsonObject(in.Metadata)
			if err != nil {
				return err
			}
			updates["metadata"] = meta
		}
		if err := a.deps.ContextNodes.UpdateFields(dbc, existing.ID, updates); err != nil {
			return err
		}
		out, err = a.deps.ContextNodes.Get(dbc, c.ID, node.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *contextAggregate) RemoveNode(ctx context.Context, contextID, nodeID uuid.UUID) (bool, error) {
	const op = "context.remove_node"
	removed := false
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		m, err := a.deps.ContextNodes.Get(dbc, contextID, nodeID)
		if err != nil || m == nil {
			return err
		}
		if m.RelationType == types.RelationRoot {
			return InvalidOperationError("the root membership cannot be removed")
		}
		removed, err = a.deps.ContextNodes.Delete(dbc, m.ID)
		return err
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (a *contextAggregate) DeleteContext(ctx context.Context, contextID uuid.UUID) (bool, error) {
	const op = "context.delete"
	deleted := false
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		c, err := a.deps.Contexts.GetByID(dbc, contextID)
		if err != nil || c == nil {
			return err
		}
		if err := a.deps.ContextNodes.DeleteByContextIDs(dbc, []uuid.UUID{c.ID}); err != nil {
			return err
		}
		n, err := a.deps.Contexts.DeleteByIDs(dbc, []uuid.UUID{c.ID})
		deleted = n > 0
		return err
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
