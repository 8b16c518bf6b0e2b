package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/yungbote/syncraft-backend/internal/data/repos"
	types "github.com/yungbote/syncraft-backend/internal/domain"
	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/platform/cache"
)

type CreateContextInput struct {
	SessionID  uuid.UUID `json:"session_id" validate:"required"`
	RootNodeID uuid.UUID `json:"context_root_node_id" validate:"required"`
	Mode       string    `json:"mode" validate:"nonblank,max=64"`
	Source     *string   `json:"source" validate:"omitempty,max=256"`
}

type AddContextNodeInput struct {
	ContextID    uuid.UUID      `json:"context_id" validate:"required"`
	NodeID       uuid.UUID      `json:"node_id" validate:"required"`
	RelationType string         `json:"relation_type" validate:"omitempty,max=64"`
	Metadata     map[string]any `json:"metadata"`
}

type ContextService interface {
	Create(ctx context.Context, in CreateContextInput) (*types.Context, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Context, error)
	GetByContextID(ctx context.Context, contextID string) (*types.Context, error)
	UpdateActiveNode(ctx context.Context, id, nodeID uuid.UUID) (*types.Context, error)
	AddNode(ctx context.Context, in AddContextNodeInput) (*types.ContextNode, error)
	RemoveNode(ctx context.Context, id, nodeID uuid.UUID) (bool, error)
	ListNodes(ctx context.Context, id uuid.UUID) ([]types.ContextNodeView, error)
	ListNodeContexts(ctx context.Context, nodeID uuid.UUID) ([]types.NodeContextView, error)
	ListSessionContexts(ctx context.Context, sessionID uuid.UUID) ([]*types.Context, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type contextService struct {
	db       *gorm.DB
	log      *logger.Logger
	repos    repos.Set
	contexts domainagg.ContextAggregate
	scope    sessionScope
}

func NewContextService(db *gorm.DB, log *logger.Logger, r repos.Set, contexts domainagg.ContextAggregate, c cache.Cache) ContextService {
	serviceLog := log.With("service", "ContextService")
	return &contextService{
		db:       db,
		log:      serviceLog,
		repos:    r,
		contexts: contexts,
		scope:    newSessionScope(r.Session, c, serviceLog),
	}
}

func (s *contextService) Create(ctx context.Context, in CreateContextInput) (*types.Context, error) {
	const op = "context.create"
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
	c, err := s.contexts.CreateContext(ctx, domainagg.CreateContextInput{
		SessionID:  in.SessionID,
		RootNodeID: in.RootNodeID,
		Mode:       in.Mode,
		Source:     in.Source,
	})
	if err != nil {
		return nil, err
	}
	s.scope.invalidate(ctx, sess.ID, sess.UserID)
	return c, nil
}

// Get returns nil when the context is missing or in someone else's session.
func (s *contextService) Get(ctx context.Context, id uuid.UUID) (*types.Context, error) {
	c, err := s.repos.Context.GetByID(dbctx.Context{Ctx: ctx}, id)
	return s.visible(ctx, c, err)
}

func (s *contextService) GetByContextID(ctx context.Context, contextID string) (*types.Context, error) {
	c, err := s.repos.Context.GetByContextID(dbctx.Context{Ctx: ctx}, contextID)
	return s.visible(ctx, c, err)
}

func (s *contextService) visible(ctx context.Context, c *types.Context, err error) (*types.Context, error) {
	if err != nil || c == nil {
		return nil, err
	}
	sess, err := s.scope.owned(ctx, c.SessionID)
	if err != nil || sess == nil {
		return nil, err
	}
	return c, nil
}

func (s *contextService) UpdateActiveNode(ctx context.Context, id, nodeID uuid.UUID) (*types.Context, error) {
	const op = "context.update_active_node"
	if nodeID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing active_node_id", nil)
	}
	current, err := s.Get(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}
	c, err := s.contexts.UpdateActiveNode(ctx, id, nodeID)
	if err != nil {
		return nil, err
	}
	s.scope.invalidateByID(ctx, current.SessionID)
	return c, nil
}

func (s *contextService) AddNode(ctx context.Context, in AddContextNodeInput) (*types.ContextNode, error) {
	const op = "context.add_node"
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, in.ContextID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "context "+in.ContextID.String()+" not found", nil)
	}
	return s.contexts.AddNode(ctx, domainagg.AddContextNodeInput{
		ContextID:    in.ContextID,
		NodeID:       in.NodeID,
		RelationType: in.RelationType,
		Metadata:     in.Metadata,
	})
}

func (s *contextService) RemoveNode(ctx context.Context, id, nodeID uuid.UUID) (bool, error) {
	current, err := s.Get(ctx, id)
	if err != nil || current == nil {
		return false, err
	}
	return s.contexts.RemoveNode(ctx, id, nodeID)
}

// ListNodes returns the context's members in membership order.
func (s *contextService) ListNodes(ctx context.Context, id uuid.UUID) ([]types.ContextNodeView, error) {
	out := []types.ContextNodeView{}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return out, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	members, err := s.repos.ContextNode.ListByContext(dbc, id)
	if err != nil {
		return nil, err
	}
	nodes, err := listInBatches(lo.Map(members, func(m *types.ContextNode, _ int) uuid.UUID { return m.NodeID }), func(ids []uuid.UUID) ([]*types.Node, error) {
		return s.repos.Node.GetByIDs(dbc, ids)
	})
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(nodes, func(n *types.Node) uuid.UUID { return n.ID })
	for _, m := range members {
		n, ok := byID[m.NodeID]
		if !ok {
			continue
		}
		out = append(out, types.ContextNodeView{Node: n, RelationType: m.RelationType, Metadata: m.Metadata})
	}
	return out, nil
}

func (s *contextService) ListNodeContexts(ctx context.Context, nodeID uuid.UUID) ([]types.NodeContextView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	node, err := s.repos.Node.GetByID(dbc, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return []types.NodeContextView{}, nil
	}
	sess, err := s.scope.owned(ctx, node.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return []types.NodeContextView{}, nil
	}
	return nodeContexts(dbc, s.repos, nodeID)
}

func (s *contextService) ListSessionContexts(ctx context.Context, sessionID uuid.UUID) ([]*types.Context, error) {
	sess, err := s.scope.owned(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return []*types.Context{}, nil
	}
	return s.repos.Context.ListBySession(dbctx.Context{Ctx: ctx}, sessionID)
}

func (s *contextService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	current, err := s.Get(ctx, id)
	if err != nil || current == nil {
		return false, err
	}
	deleted, err := s.contexts.DeleteContext(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.scope.invalidateByID(ctx, current.SessionID)
	}
	return deleted, nil
}
