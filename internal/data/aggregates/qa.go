package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/syncraft-backend/internal/data/repos"
	types "github.com/yungbote/syncraft-backend/internal/domain"
	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
	"github.com/yungbote/syncraft-backend/internal/domain/conversation"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
)

type QAAggregateDeps struct {
	Base     BaseDeps
	Nodes    repos.NodeRepo
	QAPairs  repos.QAPairRepo
	Messages repos.MessageRepo
}

type qaAggregate struct {
	deps QAAggregateDeps
}

func NewQAAggregate(deps QAAggregateDeps) domainagg.QAAggregate {
	return &qaAggregate{deps: deps}
}

func (a *qaAggregate) Contract() domainagg.Contract {
	return domainagg.QAAggregateContract
}

func validRole(role string) bool {
	switch role {
	case types.RoleUser, types.RoleAssistant, types.RoleSystem:
		return true
	default:
		return false
	}
}

func (a *qaAggregate) CreateQAPair(ctx context.Context, in domainagg.CreateQAPairInput) (*types.QAPairView, error) {
	const op = "qa.create"
	if err := requireID(in.NodeID, "node_id"); err != nil {
		return nil, MapError(op, err)
	}
	if strings.TrimSpace(in.Question) == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing question", nil)
	}
	tags, err := jsonStrings(in.Tags)
	if err != nil {
		return nil, MapError(op, err)
	}

	var out *types.QAPairView
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		node, err := a.deps.Nodes.GetByID(dbc, in.NodeID)
		if err != nil {
			return err
		}
		if node == nil {
			return notFoundf("node %s not found", in.NodeID)
		}
		pair := &types.QAPair{
			ID:        uuid.New(),
			NodeID:    node.ID,
			SessionID: node.SessionID,
			Tags:      tags,
			Ext:       emptyObject(),
		}
		if _, err := a.deps.QAPairs.Create(dbc, []*types.QAPair{pair}); err != nil {
			return err
		}

		msgs := []*types.Message{{
			QAPairID: pair.ID,
			Seq:      1,
			Role:     types.RoleUser,
			Content:  in.Question,
			Metadata: emptyObject(),
		}}
		if in.Answer != nil && strings.TrimSpace(*in.Answer) != "" {
			msgs = append(msgs, &types.Message{
				QAPairID: pair.ID,
				Seq:      2,
				Role:     types.RoleAssistant,
				Content:  *in.Answer,
				Metadata: emptyObject(),
			})
		}
		// One row at a time so created_at follows seq.
		for _, m := range msgs {
			if _, err := a.deps.Messages.Create(dbc, []*types.Message{m}); err != nil {
				return err
			}
		}
		out = conversation.NewQAPairView(pair, msgs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *qaAggregate) AddMessage(ctx context.Context, in domainagg.AddMessageInput) (*types.Message, error) {
	const op = "qa.add_message"
	if err := requireID(in.QAPairID, "qa_pair_id"); err != nil {
		return nil, MapError(op, err)
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if !validRole(role) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "role must be user, assistant or system", nil)
	}
	meta, err := jsonObject(in.Metadata)
	if err != nil {
		return nil, MapError(op, err)
	}

	var out *types.Message
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		out, err = a.appendMessage(dbc, in.QAPairID, role, in.Content, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// appendMessage locks the pair, writes seq = max+1 and bumps the pair's
// updated_at. Callers own the transaction.
func (a *qaAggregate) appendMessage(dbc dbctx.Context, qaPairID uuid.UUID, role, content string, meta datatypes.JSON) (*types.Message, error) {
	pair, err := a.deps.QAPairs.LockByID(dbc, qaPairID)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, notFoundf("qa pair %s not found", qaPairID)
	}
	max, err := a.deps.Messages.MaxSeq(dbc, pair.ID)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = emptyObject()
	}
	msg := &types.Message{
		QAPairID: pair.ID,
		Seq:      max + 1,
		Role:     role,
		Content:  content,
		Metadata: meta,
	}
	if _, err := a.deps.Messages.Create(dbc, []*types.Message{msg}); err != nil {
		return nil, err
	}
	if err := a.deps.QAPairs.Touch(dbc, pair.ID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (a *qaAggregate) UpdateQAPair(ctx context.Context, in domainagg.UpdateQAPairInput) (*types.QAPairView, error) {
	const op = "qa.update"
	if err := requireID(in.QAPairID, "qa_pair_id"); err != nil {
		return nil, MapError(op, err)
	}
	updates := map[string]interface{}{}
	if in.Status != nil {
		updates["status"] = strings.TrimSpace(*in.Status)
	}
	if in.Rating != nil {
		updates["rating"] = *in.Rating
	}
	if in.IsFavorite != nil {
		updates["is_favorite"] = *in.IsFavorite
	}
	if in.Tags != nil {
		tags, err := jsonStrings(*in.Tags)
		if err != nil {
			return nil, MapError(op, err)
		}
		updates["tags"] = tags
	}

	var out *types.QAPairView
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		pair, err := a.deps.QAPairs.LockByID(dbc, in.QAPairID)
		if err != nil || pair == nil {
			return err
		}
		if len(updates) > 0 {
			if err := a.deps.QAPairs.UpdateFields(dbc, pair.ID, updates); err != nil {
				return err
			}
		}
		if in.Answer != nil && strings.TrimSpace(*in.Answer) != "" {
			if _, err := a.appendMessage(dbc, pair.ID, types.RoleAssistant, *in.Answer, nil); err != nil {
				return err
			}
		}
		fresh, err := a.deps.QAPairs.GetByID(dbc, pair.ID)
		if err != nil {
			return err
		}
		msgs, err := a.deps.Messages.ListByQAPair(dbc, pair.ID)
		if err != nil {
			return err
		}
		out = conversation.NewQAPairView(fresh, msgs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *qaAggregate) DeleteQAPair(ctx context.Context, qaPairID uuid.UUID) (bool, error) {
	const op = "qa.delete"
	if qaPairID == uuid.Nil {
		return false, nil
	}
	deleted := false
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		pair, err := a.deps.QAPairs.GetByID(dbc, qaPairID)
		if err != nil || pair == nil {
			return err
		}
		if err := a.deps.Messages.DeleteByQAPairIDs(dbc, []uuid.UUID{pair.ID}); err != nil {
			return err
		}
		n, err := a.deps.QAPairs.DeleteByIDs(dbc, []uuid.UUID{pair.ID})
		deleted = n > 0
		return err
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
