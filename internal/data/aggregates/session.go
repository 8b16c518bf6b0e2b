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
	"github.com/yungbote/syncraft-backend/internal/pkg/pointers"
)

type SessionAggregateDeps struct {
	Base         BaseDeps
	Sessions     repos.SessionRepo
	Nodes        repos.NodeRepo
	Edges        repos.EdgeRepo
	Contexts     repos.ContextRepo
	ContextNodes repos.ContextNodeRepo
	QAPairs      repos.QAPairRepo
	Messages     repos.MessageRepo
}

type sessionAggregate struct {
	deps SessionAggregateDeps
}

func NewSessionAggregate(deps SessionAggregateDeps) domainagg.SessionAggregate {
	return &sessionAggregate{deps: deps}
}

func (a *sessionAggregate) Contract() domainagg.Contract {
	return domainagg.SessionAggregateContract
}

func (a *sessionAggregate) CreateSession(ctx context.Context, in domainagg.CreateSessionInput) (*types.SessionBundle, error) {
	const op = "session.create"
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}

	var out *types.SessionBundle
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		session := &types.Session{ID: uuid.New(), Name: strings.TrimSpace(in.Name), UserID: userID}
		if _, err := a.deps.Sessions.Create(dbc, []*types.Session{session}); err != nil {
			return err
		}

		root := &types.Node{
			ID:          uuid.New(),
			SessionID:   session.ID,
			TemplateKey: pointers.String(types.RootTemplateKey),
			Ext:         emptyObject(),
		}
		if _, err := a.deps.Nodes.Create(dbc, []*types.Node{root}); err != nil {
			return err
		}

		if err := a.deps.Sessions.UpdateFields(dbc, session.ID, map[string]interface{}{"root_node_id": root.ID}); err != nil {
			return err
		}

		chat, err := insertContextWithRoot(dbc, a.deps.Contexts, a.deps.ContextNodes, types.ModeChat, session.ID, root.ID, nil)
		if err != nil {
			return err
		}

		stored, err := a.deps.Sessions.GetByID(dbc, session.ID)
		if err != nil {
			return err
		}
		if stored == nil || stored.RootNodeID == nil || *stored.RootNodeID != root.ID {
			return InvariantError("session root_node_id was not persisted")
		}
		out = &types.SessionBundle{Session: stored, RootNode: root, ChatContext: chat}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *sessionAggregate) DeleteSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	const op = "session.delete"
	if sessionID == uuid.Nil {
		return false, nil
	}
	deleted := false
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		session, err := a.deps.Sessions.GetByID(dbc, sessionID)
		if err != nil || session == nil {
			return err
		}

		contexts, err := a.deps.Contexts.ListBySession(dbc, session.ID)
		if err != nil {
			return err
		}
		contextIDs := lo.Map(contexts, func(c *types.Context, _ int) uuid.UUID { return c.ID })
		if err := inChunks(contextIDs, func(ids []uuid.UUID) error {
			return a.deps.ContextNodes.DeleteByContextIDs(dbc, ids)
		}); err != nil {
			return err
		}
		if err := a.deps.Contexts.DeleteBySession(dbc, session.ID); err != nil {
			return err
		}

		qaIDs, err := a.deps.QAPairs.IDsBySession(dbc, session.ID)
		if err != nil {
			return err
		}
		if err := inChunks(qaIDs, func(ids []uuid.UUID) error {
			if err := a.deps.Messages.DeleteByQAPairIDs(dbc, ids); err != nil {
				return err
			}
			_, err := a.deps.QAPairs.DeleteByIDs(dbc, ids)
			return err
		}); err != nil {
			return err
		}

		if err := a.deps.Edges.DeleteBySession(dbc, session.ID); err != nil {
			return err
		}
		if err := a.deps.Nodes.DeleteBySession(dbc, session.ID); err != nil {
			return err
		}
		deleted, err = a.deps.Sessions.Delete(dbc, session.ID)
		return err
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// inChunks keeps IN lists under driver bind-variable limits.
func inChunks(ids []uuid.UUID, fn func(ids []uuid.UUID) error) error {
	for _, chunk := range lo.Chunk(ids, 500) {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}
