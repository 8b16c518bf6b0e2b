package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/yungbote/syncraft-backend/internal/data/repos"
	types "github.com/yungbote/syncraft-backend/internal/domain"
	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
)

type TreeAggregateDeps struct {
	Base         BaseDeps
	Sessions     repos.SessionRepo
	Nodes        repos.NodeRepo
	Edges        repos.EdgeRepo
	Contexts     repos.ContextRepo
	ContextNodes repos.ContextNodeRepo
	QAPairs      repos.QAPairRepo
	Messages     repos.MessageRepo

	// ContextAgg advances the active pointer inside CreateNode's transaction.
	ContextAgg domainagg.ContextAggregate
}

type treeAggregate struct {
	deps TreeAggregateDeps
}

func NewTreeAggregate(deps TreeAggregateDeps) domainagg.TreeAggregate {
	if deps.ContextAgg == nil {
		deps.ContextAgg = NewContextAggregate(ContextAggregateDeps{
			Base:         deps.Base,
			Sessions:     deps.Sessions,
			Nodes:        deps.Nodes,
			Contexts:     deps.Contexts,
			ContextNodes: deps.ContextNodes,
		})
	}
	return &treeAggregate{deps: deps}
}

func (a *treeAggregate) Contract() domainagg.Contract {
	return domainagg.TreeAggregateContract
}

func (a *treeAggregate) CreateNode(ctx context.Context, in domainagg.CreateNodeInput) (*types.Node, error) {
	const op = "tree.create_node"
	if in.SessionID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing session_id", nil)
	}
	ext, err := jsonObject(in.Ext)
	if err != nil {
		return nil, MapError(op, err)
	}

	var out *types.Node
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		session, err := a.deps.Sessions.GetByID(dbc, in.SessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return notFoundf("session %s not found", in.SessionID)
		}
		if in.ParentID != nil {
			parent, err := a.deps.Nodes.GetByID(dbc, *in.ParentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return notFoundf("parent node %s not found", *in.ParentID)
			}
			if err := requireSameSession(session.ID, parent.SessionID, "parent node"); err != nil {
				return err
			}
		}

		node := &types.Node{
			ID:          uuid.New(),
			ParentID:    in.ParentID,
			SessionID:   session.ID,
			TemplateKey: in.TemplateKey,
			Ext:         ext,
		}
		if _, err := a.deps.Nodes.Create(dbc, []*types.Node{node}); err != nil {
			return err
		}
		if in.ParentID != nil {
			edge := &types.Edge{SessionID: session.ID, SourceID: *in.ParentID, TargetID: node.ID}
			if _, err := a.deps.Edges.Create(dbc, []*types.Edge{edge}); err != nil {
				return err
			}
		}

		if in.ContextID != nil {
			c, err := a.deps.ContextAgg.UpdateActiveNodeInTx(dbc, *in.ContextID, node.ID)
			if err != nil {
				return err
			}
			if c == nil {
				return notFoundf("context %s not found", *in.ContextID)
			}
			if _, err := a.deps.ContextAgg.AddNodeInTx(dbc, domainagg.AddContextNodeInput{
				ContextID:    c.ID,
				NodeID:       node.ID,
				RelationType: types.RelationMember,
			}); err != nil {
				return err
			}
		}
		out = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *treeAggregate) UpdateNode(ctx context.Context, in domainagg.UpdateNodeInput) (*types.Node, error) {
	const op = "tree.update_node"
	if err := requireID(in.NodeID, "node_id"); err != nil {
		return nil, MapError(op, err)
	}
	updates := map[string]interface{}{}
	if in.TemplateKey != nil {
		if key := strings.TrimSpace(*in.TemplateKey); key != "" {
			updates["template_key"] = key
		} else {
			updates["template_key"] = nil
		}
	}
	if in.SummaryUpToHere != nil {
		updates["summary_up_to_here"] = *in.SummaryUpToHere
	}

	var out *types.Node
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = nil
		node, err := a.deps.Nodes.LockByID(dbc, in.NodeID)
		if err != nil || node == nil {
			return err
		}
		if len(in.ExtPatch) > 0 {
			ext, err := mergeJSONObject(node.Ext, in.ExtPatch)
			if err != nil {
				return err
			}
			updates["ext"] = ext
		}
		if len(updates) > 0 {
			if err := a.deps.Nodes.UpdateFields(dbc, node.ID, updates); err != nil {
				return err
			}
		}
		out, err = a.deps.Nodes.GetByID(dbc, node.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *treeAggregate) DeleteNode(ctx context.Context, nodeID uuid.UUID) (domainagg.DeleteNodeResult, error) {
	const op = "tree.delete_node"
	res := domainagg.DeleteNodeResult{}
	if nodeID == uuid.Nil {
		return res, nil
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		res = domainagg.DeleteNodeResult{}
		node, err := a.deps.Nodes.GetByID(dbc, nodeID)
		if err != nil || node == nil {
			return err
		}
		session, err := a.deps.Sessions.GetByID(dbc, node.SessionID)
		if err != nil {
			return err
		}
		if session != nil && session.RootNodeID != nil && *session.RootNodeID == node.ID {
			return InvalidOperationError("the session root node cannot be deleted; delete the session instead")
		}

		removed, err := a.collectSubtree(dbc, node.ID)
		if err != nil {
			return err
		}

		if err := inChunks(removed, func(ids []uuid.UUID) error {
			qaIDs, err := a.deps.QAPairs.IDsByNodeIDs(dbc, ids)
			if err != nil {
				return err
			}
			// A few nodes can own many pairs; chunk those ids too.
			if err := inChunks(qaIDs, func(pairIDs []uuid.UUID) error {
				if err := a.deps.Messages.DeleteByQAPairIDs(dbc, pairIDs); err != nil {
					return err
				}
				_, err := a.deps.QAPairs.DeleteByIDs(dbc, pairIDs)
				return err
			}); err != nil {
				return err
			}
			return a.deps.Edges.DeleteTouching(dbc, ids)
		}); err != nil {
			return err
		}

		deletedContexts, repaired, err := a.repairContexts(dbc, node, removed)
		if err != nil {
			return err
		}

		if err := inChunks(removed, func(ids []uuid.UUID) error {
			if err := a.deps.ContextNodes.DeleteByNodeIDs(dbc, ids); err != nil {
				return err
			}
			_, err := a.deps.Nodes.DeleteByIDs(dbc, ids)
			return err
		}); err != nil {
			return err
		}

		res = domainagg.DeleteNodeResult{
			Deleted:          true,
			RemovedNodeIDs:   removed,
			DeletedContexts:  deletedContexts,
			RepairedContexts: repaired,
		}
		return nil
	})
	if err != nil {
		return domainagg.DeleteNodeResult{}, err
	}
	return res, nil
}

// collectSubtree walks children breadth-first in batches, starting at rootID
// (included). The seen set guards against malformed cyclic data.
func (a *treeAggregate) collectSubtree(dbc dbctx.Context, rootID uuid.UUID) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]struct{}{rootID: {}}
	out := []uuid.UUID{rootID}
	frontier := []uuid.UUID{rootID}
	for len(frontier) > 0 {
		var next []uuid.UUID
		for _, batch := range lo.Chunk(frontier, 500) {
			kids, err := a.deps.Nodes.ListChildIDs(dbc, batch)
			if err != nil {
				return nil, err
			}
			for _, id := range kids {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, id)
				next = append(next, id)
			}
		}
		frontier = next
	}
	return out, nil
}

// repairContexts deletes contexts rooted inside the removed set and moves
// surviving active pointers out of it: to the deleted node's parent when it
// has one, otherwise back to the context root.
func (a *treeAggregate) repairContexts(dbc dbctx.Context, deleted *types.Node, removed []uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	var rooted, active []*types.Context
	if err := inChunks(removed, func(ids []uuid.UUID) error {
		r, err := a.deps.Contexts.ListRootedAt(dbc, ids)
		if err != nil {
			return err
		}
		act, err := a.deps.Contexts.ListActiveAt(dbc, ids)
		if err != nil {
			return err
		}
		rooted = append(rooted, r...)
		active = append(active, act...)
		return nil
	}); err != nil {
		return nil, nil, err
	}

	deletedIDs := lo.Uniq(lo.Map(rooted, func(c *types.Context, _ int) uuid.UUID { return c.ID }))
	if err := inChunks(deletedIDs, func(ids []uuid.UUID) error {
		if err := a.deps.ContextNodes.DeleteByContextIDs(dbc, ids); err != nil {
			return err
		}
		_, err := a.deps.Contexts.DeleteByIDs(dbc, ids)
		return err
	}); err != nil {
		return nil, nil, err
	}

	gone := lo.SliceToMap(deletedIDs, func(id uuid.UUID) (uuid.UUID, struct{}) { return id, struct{}{} })
	var repaired []uuid.UUID
	for _, c := range lo.UniqBy(active, func(c *types.Context) uuid.UUID { return c.ID }) {
		if _, ok := gone[c.ID]; ok {
			continue
		}
		target := c.ContextRootNodeID
		if deleted.ParentID != nil {
			target = *deleted.ParentID
		}
		if err := a.deps.Contexts.UpdateFields(dbc, c.ID, map[string]interface{}{"active_node_id": target}); err != nil {
			return nil, nil, err
		}
		repaired = append(repaired, c.ID)
	}
	return deletedIDs, repaired, nil
}
