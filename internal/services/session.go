package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/yungbote/syncraft-backend/internal/data/graph"
	"github.com/yungbote/syncraft-backend/internal/data/repos"
	types "github.com/yungbote/syncraft-backend/internal/domain"
	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
	"github.com/yungbote/syncraft-backend/internal/domain/conversation"
	"github.com/yungbote/syncraft-backend/internal/pkg/ctxutil"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/platform/cache"
)

const (
	defaultSessionPageSize = 20
	maxSessionPageSize     = 100
)

type CreateSessionInput struct {
	Name string `json:"name" validate:"max=256"`
	// UserID defaults to the caller.
	UserID string `json:"-"`
}

type UpdateSessionInput struct {
	Name string `json:"name" validate:"nonblank,max=256"`
}

type ListSessionsInput struct {
	UserID    string `json:"-"`
	Limit     int    `json:"limit" validate:"gte=0"`
	Offset    int    `json:"offset" validate:"gte=0"`
	SortBy    string `json:"sort_by" validate:"omitempty,oneof=created_at updated_at name"`
	SortOrder string `json:"sort_order" validate:"omitempty,oneof=asc desc"`
}

type SessionService interface {
	Create(ctx context.Context, in CreateSessionInput) (*types.SessionBundle, error)
	Get(ctx context.Context, id uuid.UUID) (*types.SessionDetail, error)
	List(ctx context.Context, in ListSessionsInput) (*types.SessionPage, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateSessionInput) (*types.Session, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	PrimaryContext(ctx context.Context, id uuid.UUID) (*types.Context, error)
	Tree(ctx context.Context, id uuid.UUID, includeQA bool) (*types.SessionTree, error)
}

type sessionService struct {
	db        *gorm.DB
	log       *logger.Logger
	repos     repos.Set
	sessions  domainagg.SessionAggregate
	projector graph.TreeProjector
	cache     cache.Cache
	scope     sessionScope
}

func NewSessionService(
	db *gorm.DB,
	log *logger.Logger,
	r repos.Set,
	sessions domainagg.SessionAggregate,
	projector graph.TreeProjector,
	c cache.Cache,
) SessionService {
	serviceLog := log.With("service", "SessionService")
	if projector == nil {
		projector = graph.NoopProjector{}
	}
	if c == nil {
		c = cache.Noop{}
	}
	return &sessionService{
		db:        db,
		log:       serviceLog,
		repos:     r,
		sessions:  sessions,
		projector: projector,
		cache:     c,
		scope:     newSessionScope(r.Session, c, serviceLog),
	}
}

func (s *sessionService) Create(ctx context.Context, in CreateSessionInput) (*types.SessionBundle, error) {
	const op = "session.create"
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.UserID) == "" {
		if id, ok := ctxutil.CurrentUser(ctx); ok {
			in.UserID = id.ID
		}
	}
	bundle, err := s.sessions.CreateSession(ctx, domainagg.CreateSessionInput{
		Name:   strings.TrimSpace(in.Name),
		UserID: in.UserID,
	})
	if err != nil {
		return nil, err
	}
	s.scope.invalidate(ctx, bundle.Session.ID, bundle.Session.UserID)
	if err := s.projector.UpsertNodes(ctx, bundle.Session, []*types.Node{bundle.RootNode}); err != nil {
		s.log.Warn("Tree projection failed", "session_id", bundle.Session.ID, "error", err)
	}
	s.log.Info("Session created", "session_id", bundle.Session.ID, "user_id", bundle.Session.UserID)
	return bundle, nil
}

// Get returns the session with its contexts, or nil when it is missing or
// not the caller's.
func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*types.SessionDetail, error) {
	key := sessionCacheKey(id)
	var cached types.SessionDetail
	if ok, err := cache.GetJSON(ctx, s.cache, key, &cached); err != nil {
		s.log.Warn("Cache read failed", "key", key, "error", err)
	} else if ok {
		if !visibleTo(ctx, cached.UserID) {
			return nil, nil
		}
		return &cached, nil
	}

	sess, err := s.scope.owned(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	contexts, err := s.repos.Context.ListBySession(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	detail := &types.SessionDetail{Session: *sess, Contexts: contexts}
	if err := cache.SetJSON(ctx, s.cache, key, detail, sessionCacheTTL); err != nil {
		s.log.Warn("Cache write failed", "key", key, "error", err)
	}
	return detail, nil
}

func (s *sessionService) List(ctx context.Context, in ListSessionsInput) (*types.SessionPage, error) {
	const op = "session.list"
	in.SortBy = strings.ToLower(strings.TrimSpace(in.SortBy))
	in.SortOrder = strings.ToLower(strings.TrimSpace(in.SortOrder))
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	if in.UserID == "" {
		if id, ok := ctxutil.CurrentUser(ctx); ok {
			in.UserID = id.ID
		}
	}
	if in.UserID == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user", nil)
	}
	q := repos.SessionListQuery{
		UserID:    in.UserID,
		Limit:     lo.Clamp(lo.Ternary(in.Limit == 0, defaultSessionPageSize, in.Limit), 1, maxSessionPageSize),
		Offset:    in.Offset,
		SortBy:    lo.Ternary(in.SortBy == "", "created_at", in.SortBy),
		SortOrder: lo.Ternary(in.SortOrder == "", "desc", in.SortOrder),
	}

	key := sessionListCacheKey(q)
	var cached types.SessionPage
	if ok, err := cache.GetJSON(ctx, s.cache, key, &cached); err != nil {
		s.log.Warn("Cache read failed", "key", key, "error", err)
	} else if ok {
		return &cached, nil
	}

	items, total, err := s.repos.Session.ListByUser(dbctx.Context{Ctx: ctx}, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*types.Session{}
	}
	page := &types.SessionPage{Total: total, Items: items}
	if err := cache.SetJSON(ctx, s.cache, key, page, sessionListCacheTTL); err != nil {
		s.log.Warn("Cache write failed", "key", key, "error", err)
	}
	return page, nil
}

func (s *sessionService) Update(ctx context.Context, id uuid.UUID, in UpdateSessionInput) (*types.Session, error) {
	const op = "session.update"
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	sess, err := s.scope.owned(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.repos.Session.UpdateFields(dbc, id, map[string]interface{}{"name": strings.TrimSpace(in.Name)}); err != nil {
		return nil, err
	}
	s.scope.invalidate(ctx, id, sess.UserID)
	return s.repos.Session.GetByID(dbc, id)
}

func (s *sessionService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	sess, err := s.scope.owned(ctx, id)
	if err != nil || sess == nil {
		return false, err
	}
	deleted, err := s.sessions.DeleteSession(ctx, id)
	if err != nil {
		return false, err
	}
	s.scope.invalidate(ctx, id, sess.UserID)
	if deleted {
		if err := s.projector.DeleteSession(ctx, id); err != nil {
			s.log.Warn("Tree projection delete failed", "session_id", id, "error", err)
		}
		s.log.Info("Session deleted", "session_id", id)
	}
	return deleted, nil
}

// PrimaryContext returns the session's chat context.
func (s *sessionService) PrimaryContext(ctx context.Context, id uuid.UUID) (*types.Context, error) {
	sess, err := s.scope.owned(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	key := primaryContextCacheKey(id)
	var cached types.Context
	if ok, err := cache.GetJSON(ctx, s.cache, key, &cached); err != nil {
		s.log.Warn("Cache read failed", "key", key, "error", err)
	} else if ok {
		return &cached, nil
	}

	c, err := s.repos.Context.GetByContextID(dbctx.Context{Ctx: ctx}, conversation.DeriveContextID(types.ModeChat, id, uuid.Nil))
	if err != nil || c == nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, key, c, primaryContextCacheTTL); err != nil {
		s.log.Warn("Cache write failed", "key", key, "error", err)
	}
	return c, nil
}

// Tree returns every node and edge of the session. With includeQA each node
// carries a preview of its first QA pair.
func (s *sessionService) Tree(ctx context.Context, id uuid.UUID, includeQA bool) (*types.SessionTree, error) {
	sess, err := s.scope.owned(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	nodes, err := s.repos.Node.ListBySession(dbc, id)
	if err != nil {
		return nil, err
	}
	edges, err := s.repos.Edge.ListBySession(dbc, id)
	if err != nil {
		return nil, err
	}
	if edges == nil {
		edges = []*types.Edge{}
	}

	previews := map[uuid.UUID]*types.QAPreview{}
	if includeQA && len(nodes) > 0 {
		nodeIDs := lo.Map(nodes, func(n *types.Node, _ int) uuid.UUID { return n.ID })
		pairs, err := listInBatches(nodeIDs, func(ids []uuid.UUID) ([]*types.QAPair, error) {
			return s.repos.QAPair.ListByNodeIDs(dbc, ids)
		})
		if err != nil {
			return nil, err
		}
		// A node's pairs share a batch, so the first seen is its oldest.
		first := lo.UniqBy(pairs, func(p *types.QAPair) uuid.UUID { return p.NodeID })
		msgs, err := messagesByPair(dbc, s.repos, lo.Map(first, func(p *types.QAPair, _ int) uuid.UUID { return p.ID }))
		if err != nil {
			return nil, err
		}
		for _, p := range first {
			q, a := conversation.DeriveQA(msgs[p.ID])
			preview := &types.QAPreview{Question: conversation.Preview(q)}
			if a != nil {
				preview.Answer = lo.ToPtr(conversation.Preview(*a))
			}
			previews[p.NodeID] = preview
		}
	}

	out := &types.SessionTree{SessionID: id, Nodes: make([]*types.TreeNode, 0, len(nodes)), Edges: edges}
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, &types.TreeNode{Node: *n, QAPreview: previews[n.ID]})
	}
	return out, nil
}
