package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/syncraft-backend/internal/domain"
	"github.com/yungbote/syncraft-backend/internal/domain/conversation"
	"github.com/yungbote/syncraft-backend/internal/pkg/pointers"
)

// SeedSession writes a session with a root node directly, bypassing the
// aggregates. It does not create the chat context.
func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, userID string) (*types.Session, *types.Node) {
	tb.Helper()
	s := &types.Session{ID: uuid.New(), Name: "seeded", UserID: userID}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	root := SeedNode(tb, ctx, tx, s.ID, nil)
	if err := tx.WithContext(ctx).Model(s).Update("root_node_id", root.ID).Error; err != nil {
		tb.Fatalf("seed session root: %v", err)
	}
	s.RootNodeID = pointers.UUID(root.ID)
	return s, root
}

// SeedNode writes a node and, when parentID is given, its edge.
func SeedNode(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, parentID *uuid.UUID) *types.Node {
	tb.Helper()
	n := &types.Node{ID: uuid.New(), SessionID: sessionID, ParentID: parentID, Ext: datatypes.JSON([]byte("{}"))}
	if parentID == nil {
		n.TemplateKey = pointers.String(conversation.RootTemplateKey)
	}
	if err := tx.WithContext(ctx).Create(n).Error; err != nil {
		tb.Fatalf("seed node: %v", err)
	}
	if parentID != nil {
		e := &types.Edge{SessionID: sessionID, SourceID: *parentID, TargetID: n.ID}
		if err := tx.WithContext(ctx).Create(e).Error; err != nil {
			tb.Fatalf("seed edge: %v", err)
		}
	}
	return n
}

// SeedContext writes a context rooted at root plus its root membership.
func SeedContext(tb testing.TB, ctx context.Context, tx *gorm.DB, mode string, root *types.Node) *types.Context {
	tb.Helper()
	c := &types.Context{
		ID:                uuid.New(),
		ContextID:         conversation.DeriveContextID(mode, root.SessionID, root.ID),
		Mode:              conversation.NormalizeMode(mode),
		SessionID:         root.SessionID,
		ContextRootNodeID: root.ID,
		ActiveNodeID:      root.ID,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed context: %v", err)
	}
	m := &types.ContextNode{ContextID: c.ID, NodeID: root.ID, RelationType: types.RelationRoot, Metadata: datatypes.JSON([]byte("{}"))}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed root membership: %v", err)
	}
	return c
}

// SeedQAPair writes a QA pair on node with a user message and, if answer is
// non-empty, an assistant message.
func SeedQAPair(tb testing.TB, ctx context.Context, tx *gorm.DB, node *types.Node, question, answer string) *types.QAPair {
	tb.Helper()
	p := &types.QAPair{ID: uuid.New(), NodeID: node.ID, SessionID: node.SessionID, Tags: datatypes.JSON([]byte("[]")), Ext: datatypes.JSON([]byte("{}"))}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed qa pair: %v", err)
	}
	msgs := []*types.Message{{QAPairID: p.ID, Seq: 1, Role: types.RoleUser, Content: question, Metadata: datatypes.JSON([]byte("{}"))}}
	if answer != "" {
		msgs = append(msgs, &types.Message{QAPairID: p.ID, Seq: 2, Role: types.RoleAssistant, Content: answer, Metadata: datatypes.JSON([]byte("{}"))})
	}
	if err := tx.WithContext(ctx).Create(&msgs).Error; err != nil {
		tb.Fatalf("seed messages: %v", err)
	}
	return p
}
