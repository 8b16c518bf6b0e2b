package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/syncraft-backend/internal/domain/conversation"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
)

var (
	SessionAggregateContract = Contract{
		Name:             "Conversation.SessionAggregate",
		WriteTxOwnership: WriteTxOwnedByAggregate,
		ReadPolicy:       ReadPolicyInvariantScoped,
		Notes:            "Creates {session, root node, chat context, root membership} as one unit and cascades session deletes.",
	}
	TreeAggregateContract = Contract{
		Name:             "Conversation.TreeAggregate",
		WriteTxOwnership: WriteTxOwnedByAggregate,
		ReadPolicy:       ReadPolicyInvariantScoped,
		Notes:            "Owns parent/edge consistency, node patches, node+active-pointer moves and subtree deletion with context repair.",
	}
	ContextAggregateContract = Contract{
		Name:             "Conversation.ContextAggregate",
		WriteTxOwnership: WriteTxJoinable,
		ReadPolicy:       ReadPolicyInvariantScoped,
		Notes:            "Owns context root/active consistency and membership upserts.",
	}
	QAAggregateContract = Contract{
		Name:             "Conversation.QAAggregate",
		WriteTxOwnership: WriteTxOwnedByAggregate,
		ReadPolicy:       ReadPolicyInvariantScoped,
		Notes:            "Owns QA pair + ordered message writes and the monotonic updated_at bump.",
	}
)

// SessionAggregate owns session lifecycle writes.
type SessionAggregate interface {
	Aggregate

	// CreateSession inserts the session, its root node, the chat context and
	// the root membership in one transaction.
	CreateSession(ctx context.Context, in CreateSessionInput) (*conversation.SessionBundle, error)

	// DeleteSession removes every row owned by the session. Returns false when absent.
	DeleteSession(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

type CreateSessionInput struct {
	Name   string
	UserID string
}

// TreeAggregate owns node tree writes.
type TreeAggregate interface {
	Aggregate

	// CreateNode attaches a node under ParentID (or as a parentless node) and,
	// when ContextID is set, moves that context's active pointer to it in the
	// same transaction.
	CreateNode(ctx context.Context, in CreateNodeInput) (*conversation.Node, error)

	// UpdateNode patches a node under a row lock. A blank TemplateKey clears
	// it. Returns nil when the node does not exist.
	UpdateNode(ctx context.Context, in UpdateNodeInput) (*conversation.Node, error)

	// DeleteNode removes the node's subtree and repairs contexts that pointed
	// into it. Returns false when the node does not exist.
	DeleteNode(ctx context.Context, nodeID uuid.UUID) (DeleteNodeResult, error)
}

type CreateNodeInput struct {
	SessionID   uuid.UUID
	ParentID    *uuid.UUID
	TemplateKey *string
	Ext         map[string]any
	ContextID   *uuid.UUID
}

// UpdateNodeInput leaves nil fields untouched. ExtPatch is merged into the
// stored ext object; a nil value removes its key.
type UpdateNodeInput struct {
	NodeID          uuid.UUID
	TemplateKey     *string
	SummaryUpToHere *string
	ExtPatch        map[string]any
}

type DeleteNodeResult struct {
	Deleted          bool
	RemovedNodeIDs   []uuid.UUID
	DeletedContexts  []uuid.UUID
	RepairedContexts []uuid.UUID
}

// ContextAggregate owns context and membership writes.
type ContextAggregate interface {
	Aggregate

	// CreateContext is idempotent on the derived context id.
	CreateContext(ctx context.Context, in CreateContextInput) (*conversation.Context, error)

	// UpdateActiveNode commits on its own. Returns nil when the context is missing.
	UpdateActiveNode(ctx context.Context, contextID, nodeID uuid.UUID) (*conversation.Context, error)

	// UpdateActiveNodeInTx runs inside dbc.Tx and never commits.
	UpdateActiveNodeInTx(dbc dbctx.Context, contextID, nodeID uuid.UUID) (*conversation.Context, error)

	// AddNode upserts a membership in place.
	AddNode(ctx context.Context, in AddContextNodeInput) (*conversation.ContextNode, error)

	AddNodeInTx(dbc dbctx.Context, in AddContextNodeInput) (*conversation.ContextNode, error)

	// RemoveNode returns false when no membership exists; root memberships are rejected.
	RemoveNode(ctx context.Context, contextID, nodeID uuid.UUID) (bool, error)

	DeleteContext(ctx context.Context, contextID uuid.UUID) (bool, error)
}

type CreateContextInput struct {
	SessionID  uuid.UUID
	RootNodeID uuid.UUID
	Mode       string
	Source     *string
}

type AddContextNodeInput struct {
	ContextID    uuid.UUID
	NodeID       uuid.UUID
	RelationType string
	Metadata     map[string]any
}

// QAAggregate owns QA pair and message writes.
type QAAggregate interface {
	Aggregate

	CreateQAPair(ctx context.Context, in CreateQAPairInput) (*conversation.QAPairView, error)

	// AddMessage appends a message and moves the pair's updated_at strictly forward.
	AddMessage(ctx context.Context, in AddMessageInput) (*conversation.Message, error)

	// UpdateQAPair patches flags/tags and, when Answer is set, appends an
	// assistant message. Returns nil when the pair does not exist.
	UpdateQAPair(ctx context.Context, in UpdateQAPairInput) (*conversation.QAPairView, error)

	DeleteQAPair(ctx context.Context, qaPairID uuid.UUID) (bool, error)
}

type CreateQAPairInput struct {
	NodeID   uuid.UUID
	Question string
	Answer   *string
	Tags     []string
}

type AddMessageInput struct {
	QAPairID uuid.UUID
	Role     string
	Content  string
	Metadata map[string]any
}

type UpdateQAPairInput struct {
	QAPairID   uuid.UUID
	Status     *string
	Rating     *int
	IsFavorite *bool
	Tags       *[]string
	Answer     *string
}
