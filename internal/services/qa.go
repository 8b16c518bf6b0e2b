package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/yungbote/syncraft-backend/internal/data/repos"
	types "github.com/yungbote/syncraft-backend/internal/domain"
	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
	"github.com/yungbote/syncraft-backend/internal/domain/conversation"
	"github.com/yungbote/syncraft-backend/internal/observability"
	"github.com/yungbote/syncraft-backend/internal/pkg/ctxutil"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/platform/cache"
	"github.com/yungbote/syncraft-backend/internal/platform/llm"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
	idBatchSize        = 500
)

type CreateQAPairInput struct {
	NodeID   uuid.UUID `json:"node_id" validate:"required"`
	Question string    `json:"question" validate:"nonblank"`
	Answer   *string   `json:"answer"`
	Tags     []string  `json:"tags" validate:"omitempty,max=32,dive,max=64"`
}

type AddMessageInput struct {
	QAPairID uuid.UUID      `json:"qa_pair_id" validate:"required"`
	Role     string         `json:"role" validate:"required,oneof=user assistant system"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

type UpdateQAPairInput struct {
	Status     *string   `json:"status" validate:"omitempty,max=64"`
	Rating     *int      `json:"rating"`
	IsFavorite *bool     `json:"is_favorite"`
	Tags       *[]string `json:"tags" validate:"omitempty,max=32,dive,max=64"`
	Answer     *string   `json:"answer"`
}

type AskInput struct {
	Question string `json:"question" validate:"nonblank"`
}

type SearchInput struct {
	Query     string     `json:"query"`
	SessionID *uuid.UUID `json:"session_id"`
	ContextID *uuid.UUID `json:"context_id"`
	Limit     int        `json:"limit" validate:"gte=0"`
	Offset    int        `json:"offset" validate:"gte=0"`
}

type QAService interface {
	Create(ctx context.Context, in CreateQAPairInput) (*types.QAPairView, error)
	Get(ctx context.Context, id uuid.UUID) (*types.QAPairView, error)
	ListByNode(ctx context.Context, nodeID uuid.UUID) ([]*types.QAPairView, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateQAPairInput) (*types.QAPairView, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	AddMessage(ctx context.Context, in AddMessageInput) (*types.Message, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) (*types.QAPairView, error)
	Ask(ctx context.Context, nodeID uuid.UUID, in AskInput) (*types.QAPairView, error)
	Search(ctx context.Context, in SearchInput) (*types.SearchPage, error)
}

type qaService struct {
	db        *gorm.DB
	log       *logger.Logger
	repos     repos.Set
	qa        domainagg.QAAggregate
	generator llm.Generator
	scope     sessionScope
}

func NewQAService(
	db *gorm.DB,
	log *logger.Logger,
	r repos.Set,
	qa domainagg.QAAggregate,
	generator llm.Generator,
	c cache.Cache,
) QAService {
	serviceLog := log.With("service", "QAService")
	if generator == nil {
		generator = llm.Mock{}
	}
	return &qaService{
		db:        db,
		log:       serviceLog,
		repos:     r,
		qa:        qa,
		generator: generator,
		scope:     newSessionScope(r.Session, c, serviceLog),
	}
}

// visibleNode returns the node when it exists in one of the caller's sessions.
func (s *qaService) visibleNode(ctx context.Context, nodeID uuid.UUID) (*types.Node, error) {
	node, err := s.repos.Node.GetByID(dbctx.Context{Ctx: ctx}, nodeID)
	if err != nil || node == nil {
		return nil, err
	}
	sess, err := s.scope.owned(ctx, node.SessionID)
	if err != nil || sess == nil {
		return nil, err
	}
	return node, nil
}

func (s *qaService) visiblePair(ctx context.Context, id uuid.UUID) (*types.QAPair, error) {
	pair, err := s.repos.QAPair.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil || pair == nil {
		return nil, err
	}
	sess, err := s.scope.owned(ctx, pair.SessionID)
	if err != nil || sess == nil {
		return nil, err
	}
	return pair, nil
}

func (s *qaService) Create(ctx context.Context, in CreateQAPairInput) (*types.QAPairView, error) {
	const op = "qa.create"
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	node, err := s.visibleNode(ctx, in.NodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "node "+in.NodeID.String()+" not found", nil)
	}
	return s.qa.CreateQAPair(ctx, domainagg.CreateQAPairInput{
		NodeID:   in.NodeID,
		Question: in.Question,
		Answer:   in.Answer,
		Tags:     in.Tags,
	})
}

func (s *qaService) Get(ctx context.Context, id uuid.UUID) (*types.QAPairView, error) {
	pair, err := s.visiblePair(ctx, id)
	if err != nil || pair == nil {
		return nil, err
	}
	views, err := qaViews(dbctx.Context{Ctx: ctx}, s.repos, []*types.QAPair{pair})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *qaService) ListByNode(ctx context.Context, nodeID uuid.UUID) ([]*types.QAPairView, error) {
	node, err := s.visibleNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return []*types.QAPairView{}, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	pairs, err := s.repos.QAPair.ListByNode(dbc, nodeID)
	if err != nil {
		return nil, err
	}
	return qaViews(dbc, s.repos, pairs)
}

func (s *qaService) Update(ctx context.Context, id uuid.UUID, in UpdateQAPairInput) (*types.QAPairView, error) {
	const op = "qa.update"
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	pair, err := s.visiblePair(ctx, id)
	if err != nil || pair == nil {
		return nil, err
	}
	return s.qa.UpdateQAPair(ctx, domainagg.UpdateQAPairInput{
		QAPairID:   id,
		Status:     in.Status,
		Rating:     in.Rating,
		IsFavorite: in.IsFavorite,
		Tags:       in.Tags,
		Answer:     in.Answer,
	})
}

func (s *qaService) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	pair, err := s.visiblePair(ctx, id)
	if err != nil || pair == nil {
		return false, err
	}
	return s.qa.DeleteQAPair(ctx, id)
}

func (s *qaService) AddMessage(ctx context.Context, in AddMessageInput) (*types.Message, error) {
	const op = "qa.add_message"
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	pair, err := s.visiblePair(ctx, in.QAPairID)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "qa pair "+in.QAPairID.String()+" not found", nil)
	}
	return s.qa.AddMessage(ctx, domainagg.AddMessageInput{
		QAPairID: in.QAPairID,
		Role:     in.Role,
		Content:  in.Content,
		Metadata: in.Metadata,
	})
}

// IncrementViewCount returns nil when the pair is missing.
func (s *qaService) IncrementViewCount(ctx context.Context, id uuid.UUID) (*types.QAPairView, error) {
	pair, err := s.visiblePair(ctx, id)
	if err != nil || pair == nil {
		return nil, err
	}
	ok, err := s.repos.QAPair.IncrementViewCount(dbctx.Context{Ctx: ctx}, id)
	if err != nil || !ok {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Ask answers question on nodeID and stores the exchange. Generation never
// fails the call: errors and blank output fall back to FallbackAnswer.
func (s *qaService) Ask(ctx context.Context, nodeID uuid.UUID, in AskInput) (*types.QAPairView, error) {
	const op = "qa.ask"
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	node, err := s.visibleNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "node "+nodeID.String()+" not found", nil)
	}

	prompt, err := s.promptFor(ctx, node, in.Question)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	answer, genErr := s.generator.Generate(ctx, prompt)
	reason := "error"
	if genErr == nil && strings.TrimSpace(answer) == "" {
		genErr = llm.ErrEmptyCompletion
		reason = "empty"
	}
	if genErr != nil {
		wrapped := domainagg.NewError(domainagg.CodeGeneration, op, "answer generation failed", genErr)
		s.log.Warn("Generation failed, storing fallback answer",
			"node_id", nodeID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", wrapped,
		)
		observability.Current().IncLLMFallback(reason)
		answer = FallbackAnswer
	}

	return s.qa.CreateQAPair(ctx, domainagg.CreateQAPairInput{
		NodeID:   nodeID,
		Question: in.Question,
		Answer:   &answer,
	})
}

// promptFor reads the parent's most recent exchange.
func (s *qaService) promptFor(ctx context.Context, node *types.Node, question string) (string, error) {
	if node.ParentID == nil {
		return question, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	latest, err := s.repos.QAPair.LatestByNode(dbc, *node.ParentID)
	if err != nil {
		return "", err
	}
	if latest == nil {
		return question, nil
	}
	msgs, err := s.repos.Message.ListByQAPair(dbc, latest.ID)
	if err != nil {
		return "", err
	}
	q, a := conversation.DeriveQA(msgs)
	return buildPrompt(q, a, question), nil
}

// Search matches query case-insensitively against each pair's question and
// answer, newest first. Total counts every match; Limit/Offset page them.
func (s *qaService) Search(ctx context.Context, in SearchInput) (*types.SearchPage, error) {
	const op = "qa.search"
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	limit := lo.Clamp(lo.Ternary(in.Limit == 0, defaultSearchLimit, in.Limit), 1, maxSearchLimit)
	empty := &types.SearchPage{Total: 0, Items: []*types.SearchHit{}}

	dbc := dbctx.Context{Ctx: ctx}
	scope := repos.QAPairScope{}
	if id, ok := ctxutil.CurrentUser(ctx); ok {
		scope.UserID = id.ID
	}
	if in.SessionID != nil {
		scope.SessionID = in.SessionID
	}
	if in.ContextID != nil {
		c, err := s.repos.Context.GetByID(dbc, *in.ContextID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return empty, nil
		}
		scope.ContextID = &c.ID
	}

	pairs, err := s.repos.QAPair.ListForSearch(dbc, scope)
	if err != nil {
		return nil, err
	}
	views, err := qaViews(dbc, s.repos, pairs)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(in.Query))
	matched := lo.Filter(views, func(v *types.QAPairView, _ int) bool {
		if needle == "" {
			return true
		}
		if strings.Contains(strings.ToLower(v.Question), needle) {
			return true
		}
		return v.Answer != nil && strings.Contains(strings.ToLower(*v.Answer), needle)
	})

	page := &types.SearchPage{Total: len(matched), Items: []*types.SearchHit{}}
	if in.Offset >= len(matched) {
		return page, nil
	}
	end := min(in.Offset+limit, len(matched))
	for _, v := range matched[in.Offset:end] {
		hit := &types.SearchHit{
			ID:        v.ID,
			NodeID:    v.NodeID,
			SessionID: v.SessionID,
			CreatedAt: v.CreatedAt,
			Question:  conversation.Preview(v.Question),
		}
		if v.Answer != nil {
			hit.Answer = lo.ToPtr(conversation.Preview(*v.Answer))
		}
		page.Items = append(page.Items, hit)
	}
	return page, nil
}

// qaViews loads messages for pairs in batches and projects each pair,
// preserving the order of pairs.
func qaViews(dbc dbctx.Context, r repos.Set, pairs []*types.QAPair) ([]*types.QAPairView, error) {
	msgs, err := messagesByPair(dbc, r, lo.Map(pairs, func(p *types.QAPair, _ int) uuid.UUID { return p.ID }))
	if err != nil {
		return nil, err
	}
	out := make([]*types.QAPairView, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, conversation.NewQAPairView(p, msgs[p.ID]))
	}
	return out, nil
}

func messagesByPair(dbc dbctx.Context, r repos.Set, ids []uuid.UUID) (map[uuid.UUID][]*types.Message, error) {
	msgs := make(map[uuid.UUID][]*types.Message, len(ids))
	for _, chunk := range lo.Chunk(ids, idBatchSize) {
		batch, err := r.Message.ListByQAPairIDs(dbc, chunk)
		if err != nil {
			return nil, err
		}
		for k, v := range batch {
			msgs[k] = v
		}
	}
	return msgs, nil
}

// listInBatches keeps IN lists under driver bind-variable limits. Rows are
// concatenated batch by batch, so ordering holds within a batch only.
func listInBatches[T any](ids []uuid.UUID, list func(ids []uuid.UUID) ([]T, error)) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, chunk := range lo.Chunk(ids, idBatchSize) {
		rows, err := list(chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}
