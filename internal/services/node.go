package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/yungbote/syncraft-backend/internal/data/graph"
	"github.com/yungbote/syncraft-backend/internal/data/repos"
	types "github.com/yungbote/syncraft-backend/internal/domain"
	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
	"github.com/yungbote/syncraft-backend/internal/domain/conversation"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/platform/cache"
)

const (
	defaultChildrenDepth = 1
	maxChildrenDepth     = 10
)

type CreateNodeInput struct {
	SessionID   uuid.UUID      `json:"session_id" validate:"required"`
	ParentID    *uuid.UUID     `json:"parent_id"`
	TemplateKey *string        `json:"template_key" validate:"omitempty,max=128"`
	Label       *string        `json:"label" validate:"omitempty,max=512"`
	Type        *string        `json:"type" validate:"omitempty,max=64"`
	Ext         map[string]any `json:"ext"`
	// ContextID moves that context's active pointer to the new node.
	ContextID *uuid.UUID `json:"context_id"`
}

type UpdateNodeInput struct {
	TemplateKey     *string        `json:"template_key" validate:"omitempty,max=128"`
	SummaryUpToHere *string        `json:"summary_up_to_here"`
	Label           *string        `json:"label" validate:"omitempty,max=512"`
	Type            *string        `json:"type" validate:"omitempty,max=64"`
	Ext             map[string]any `json:"ext"`
}

type DetailOptions struct {
	IncludeQA       bool
	IncludeChildren bool
	ChildrenDepth   int
}

type NodeService interface {
	Create(ctx context.Context, in CreateNodeInput) (*types.Node, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Node, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateNodeInput) (*types.Node, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Children(ctx context.Context, id uuid.UUID) ([]*types.Node, error)
	Descendants(ctx context.Context, id uuid.UUID) ([]*types.Node, error)
	Path(ctx context.Context, id uuid.UUID) ([]*types.Node, error)
	Detail(ctx context.Context, id uuid.UUID, opts DetailOptions) (*types.NodeDetail, error)
}

type nodeService struct {
	db        *gorm.DB
	log       *logger.Logger
	repos     repos.Set
	tree      domainagg.TreeAggregate
	projector graph.TreeProjector
	scope     sessionScope
}

func NewNodeService(
	db *gorm.DB,
	log *logger.Logger,
	r repos.Set,
	tree domainagg.TreeAggregate,
	projector graph.TreeProjector,
	c cache.Cache,
) NodeService {
	serviceLog := log.With("service", "NodeService")
	if projector == nil {
		projector = graph.NoopProjector{}
	}
	return &nodeService{
		db:        db,
		log:       serviceLog,
		repos:     r,
		tree:      tree,
		projector: projector,
		scope:     newSessionScope(r.Session, c, serviceLog),
	}
}

func (s *nodeService) Create(ctx context.Context, in CreateNodeInput) (*types.Node, error) {
	const op = "node.create"
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	sess, err := s.scope.owned(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "session "+in.SessionID.String()+" not found", nil)
	}

	node, err := s.tree.CreateNode(ctx, domainagg.CreateNodeInput{
		SessionID:   in.SessionID,
		ParentID:    in.ParentID,
		TemplateKey: in.TemplateKey,
		Ext:         withLabelAndType(in.Ext, in.Label, in.Type),
		ContextID:   in.ContextID,
	})
	if err != nil {
		return nil, err
	}
	if in.ContextID != nil {
		s.scope.invalidate(ctx, sess.ID, sess.UserID)
	}
	if err := s.projector.UpsertNodes(ctx, sess, []*types.Node{node}); err != nil {
		s.log.Warn("Tree projection failed", "node_id", node.ID, "error", err)
	}
	return node, nil
}

// Get returns nil when the node is missing or belongs to another owner.
func (s *nodeService) Get(ctx context.Context, id uuid.UUID) (*types.Node, error) {
	node, err := s.repos.Node.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil || node == nil {
		return nil, err
	}
	sess, err := s.scope.owned(ctx, node.SessionID)
	if err != nil || sess == nil {
		return nil, err
	}
	return node, nil
}

func (s *nodeService) Update(ctx context.Context, id uuid.UUID, in UpdateNodeInput) (*types.Node, error) {
	const op = "node.update"
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}

	node, err := s.tree.UpdateNode(ctx, domainagg.UpdateNodeInput{
		NodeID:          current.ID,
		TemplateKey:     in.TemplateKey,
		SummaryUpToHere: in.SummaryUpToHere,
		ExtPatch:        withLabelAndType(in.Ext, in.Label, in.Type),
	})
	if err != nil || node == nil {
		return nil, err
	}
	sess, err := s.scope.owned(ctx, node.SessionID)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		if err := s.projector.UpsertNodes(ctx, sess, []*types.Node{node}); err != nil {
			s.log.Warn("Tree projection failed", "node_id", node.ID, "error", err)
		}
	}
	return node, nil
}

func (s *nodeService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	node, err := s.Get(ctx, id)
	if err != nil || node == nil {
		return false, err
	}
	res, err := s.tree.DeleteNode(ctx, id)
	if err != nil {
		return false, err
	}
	if !res.Deleted {
		return false, nil
	}
	s.scope.invalidateByID(ctx, node.SessionID)
	if err := s.projector.DeleteNodes(ctx, res.RemovedNodeIDs); err != nil {
		s.log.Warn("Tree projection delete failed", "node_id", id, "error", err)
	}
	s.log.Debug("Node subtree deleted",
		"node_id", id,
		"removed", len(res.RemovedNodeIDs),
		"contexts_deleted", len(res.DeletedContexts),
		"contexts_repaired", len(res.RepairedContexts),
	)
	return true, nil
}

func (s *nodeService) Children(ctx context.Context, id uuid.UUID) ([]*types.Node, error) {
	node, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return []*types.Node{}, nil
	}
	return s.repos.Node.ListChildren(dbctx.Context{Ctx: ctx}, id)
}

// Descendants returns the subtree below id in pre-order, siblings by creation.
func (s *nodeService) Descendants(ctx context.Context, id uuid.UUID) ([]*types.Node, error) {
	node, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []*types.Node{}
	if node == nil {
		return out, nil
	}
	all, err := s.repos.Node.ListBySession(dbctx.Context{Ctx: ctx}, node.SessionID)
	if err != nil {
		return nil, err
	}
	children := childrenByParent(all)

	seen := map[uuid.UUID]bool{id: true}
	stack := reversed(children[id])
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, n)
		stack = append(stack, reversed(children[n.ID])...)
	}
	return out, nil
}

// Path returns the nodes from the session root down to id.
func (s *nodeService) Path(ctx context.Context, id uuid.UUID) ([]*types.Node, error) {
	node, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []*types.Node{}
	if node == nil {
		return out, nil
	}
	all, err := s.repos.Node.ListBySession(dbctx.Context{Ctx: ctx}, node.SessionID)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(all, func(n *types.Node) uuid.UUID { return n.ID })

	visited := map[uuid.UUID]bool{}
	for cur := node; cur != nil && !visited[cur.ID]; {
		visited[cur.ID] = true
		out = append(out, cur)
		if cur.ParentID == nil {
			break
		}
		cur = byID[*cur.ParentID]
	}
	return reversed(out), nil
}

func (s *nodeService) Detail(ctx context.Context, id uuid.UUID, opts DetailOptions) (*types.NodeDetail, error) {
	node, err := s.Get(ctx, id)
	if err != nil || node == nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	root := &types.NodeDetail{Node: *node}
	all := []*types.NodeDetail{root}

	if opts.IncludeChildren {
		depth := opts.ChildrenDepth
		if depth <= 0 {
			depth = defaultChildrenDepth
		}
		if depth > maxChildrenDepth {
			depth = maxChildrenDepth
		}
		level := []*types.NodeDetail{root}
		for d := 0; d < depth && len(level) > 0; d++ {
			parents := lo.KeyBy(level, func(n *types.NodeDetail) uuid.UUID { return n.ID })
			kids, err := listInBatches(lo.Keys(parents), func(ids []uuid.UUID) ([]*types.Node, error) {
				return s.repos.Node.ListChildrenOf(dbc, ids)
			})
			if err != nil {
				return nil, err
			}
			next := make([]*types.NodeDetail, 0, len(kids))
			for _, k := range kids {
				p := parents[*k.ParentID]
				kd := &types.NodeDetail{Node: *k}
				p.Children = append(p.Children, kd)
				next = append(next, kd)
			}
			all = append(all, next...)
			level = next
		}
	}

	if opts.IncludeQA {
		byNode := lo.KeyBy(all, func(n *types.NodeDetail) uuid.UUID { return n.ID })
		pairs, err := listInBatches(lo.Keys(byNode), func(ids []uuid.UUID) ([]*types.QAPair, error) {
			return s.repos.QAPair.ListByNodeIDs(dbc, ids)
		})
		if err != nil {
			return nil, err
		}
		msgs, err := messagesByPair(dbc, s.repos, lo.Map(pairs, func(p *types.QAPair, _ int) uuid.UUID { return p.ID }))
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			q, a := conversation.DeriveQA(msgs[p.ID])
			d := byNode[p.NodeID]
			d.QAPairs = append(d.QAPairs, types.QABrief{ID: p.ID, Question: q, Answer: a, CreatedAt: p.CreatedAt})
		}
	}

	contexts, err := nodeContexts(dbc, s.repos, id)
	if err != nil {
		return nil, err
	}
	root.Contexts = contexts
	return root, nil
}

// nodeContexts lists the contexts id belongs to with its relation in each.
func nodeContexts(dbc dbctx.Context, r repos.Set, id uuid.UUID) ([]types.NodeContextView, error) {
	members, err := r.ContextNode.ListByNode(dbc, id)
	if err != nil {
		return nil, err
	}
	contextIDs := lo.Map(members, func(m *types.ContextNode, _ int) uuid.UUID { return m.ContextID })
	contexts, err := listInBatches(contextIDs, func(ids []uuid.UUID) ([]*types.Context, error) {
		return r.Context.GetByIDs(dbc, ids)
	})
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(contexts, func(c *types.Context) uuid.UUID { return c.ID })
	out := make([]types.NodeContextView, 0, len(members))
	for _, m := range members {
		c, ok := byID[m.ContextID]
		if !ok {
			continue
		}
		out = append(out, types.NodeContextView{Context: c, RelationType: m.RelationType})
	}
	return out, nil
}

func childrenByParent(nodes []*types.Node) map[uuid.UUID][]*types.Node {
	out := make(map[uuid.UUID][]*types.Node, len(nodes))
	for _, n := range nodes {
		if n.ParentID != nil {
			out[*n.ParentID] = append(out[*n.ParentID], n)
		}
	}
	return out
}

func reversed(nodes []*types.Node) []*types.Node {
	out := make([]*types.Node, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}

// withLabelAndType folds the label/type shorthands into ext.
func withLabelAndType(ext map[string]any, label, typ *string) map[string]any {
	if label == nil && typ == nil {
		return ext
	}
	out := lo.Assign(map[string]any{}, ext)
	if label != nil {
		out["label"] = *label
	}
	if typ != nil {
		out["type"] = *typ
	}
	return out
}
