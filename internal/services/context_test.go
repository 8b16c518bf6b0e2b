package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/syncraft-backend/internal/domain"
	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
)

func TestContextCreateIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	b := f.mustSession(t, "s")
	a := f.mustChild(t, b.Session.ID, b.RootNode.ID)

	in := CreateContextInput{SessionID: b.Session.ID, RootNodeID: a.ID, Mode: " DeepDive "}
	first, err := f.contexts.Create(f.ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Mode != types.ModeDeepDive || first.ActiveNodeID != a.ID {
		t.Fatalf("context: %+v", first)
	}
	if want := "deepdive-" + a.ID.String() + "-" + b.Session.ID.String(); first.ContextID != want {
		t.Fatalf("context_id: want=%q got=%q", want, first.ContextID)
	}
	second, err := f.contexts.Create(f.ctx, in)
	if err != nil || second.ID != first.ID {
		t.Fatalf("second Create: got=%v err=%v", second, err)
	}

	all, err := f.contexts.ListSessionContexts(f.ctx, b.Session.ID)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListSessionContexts: len=%d err=%v", len(all), err)
	}
	if all[0].Mode != types.ModeChat {
		t.Fatalf("chat context should list first: %+v", all[0])
	}

	byKey, err := f.contexts.GetByContextID(f.ctx, first.ContextID)
	if err != nil || byKey == nil || byKey.ID != first.ID {
		t.Fatalf("GetByContextID: got=%v err=%v", byKey, err)
	}
	if miss, _ := f.contexts.GetByContextID(f.ctx, "deepdive-nope"); miss != nil {
		t.Fatalf("unknown context_id returned %+v", miss)
	}
}

func TestContextCreateRejections(t *testing.T) {
	f := newFixture(t, nil)
	b := f.mustSession(t, "s")

	_, err := f.contexts.Create(f.ctx, CreateContextInput{SessionID: b.Session.ID, RootNodeID: b.RootNode.ID, Mode: "  "})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("blank mode: want validation got %v", err)
	}
	_, err = f.contexts.Create(f.ctx, CreateContextInput{SessionID: b.Session.ID, RootNodeID: uuid.New(), Mode: "deepdive"})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing root: want not_found got %v", err)
	}

	other := f.mustSession(t, "other")
	_, err = f.contexts.Create(f.ctx, CreateContextInput{SessionID: b.Session.ID, RootNodeID: other.RootNode.ID, Mode: "deepdive"})
	if !domainagg.IsCode(err, domainagg.CodeInvalidRelation) {
		t.Fatalf("cross-session root: want invalid_relation got %v", err)
	}

	stranger := asUser(context.Background(), "u2")
	_, err = f.contexts.Create(stranger, CreateContextInput{SessionID: b.Session.ID, RootNodeID: b.RootNode.ID, Mode: "deepdive"})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("stranger: want not_found got %v", err)
	}
}

func TestContextMembership(t *testing.T) {
	f := newFixture(t, nil)
	b := f.mustSession(t, "s")
	a := f.mustChild(t, b.Session.ID, b.RootNode.ID)
	chat := b.ChatContext

	m, err := f.contexts.AddNode(f.ctx, AddContextNodeInput{ContextID: chat.ID, NodeID: a.ID, Metadata: map[string]any{"pinned": true}})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if m.RelationType != types.RelationMember {
		t.Fatalf("default relation: got=%q", m.RelationType)
	}

	views, err := f.contexts.ListNodes(f.ctx, chat.ID)
	if err != nil || len(views) != 2 {
		t.Fatalf("ListNodes: len=%d err=%v", len(views), err)
	}
	if views[0].Node.ID != b.RootNode.ID || views[0].RelationType != types.RelationRoot {
		t.Fatalf("first member: %+v", views[0])
	}
	if views[1].Node.ID != a.ID {
		t.Fatalf("second member: %+v", views[1])
	}

	nodeCtx, err := f.contexts.ListNodeContexts(f.ctx, a.ID)
	if err != nil || len(nodeCtx) != 1 || nodeCtx[0].Context.ID != chat.ID {
		t.Fatalf("ListNodeContexts: got=%+v err=%v", nodeCtx, err)
	}

	if _, err := f.contexts.RemoveNode(f.ctx, chat.ID, b.RootNode.ID); !domainagg.IsCode(err, domainagg.CodeInvalidOperation) {
		t.Fatalf("remove root: want invalid_operation got %v", err)
	}
	ok, err := f.contexts.RemoveNode(f.ctx, chat.ID, a.ID)
	if err != nil || !ok {
		t.Fatalf("RemoveNode: ok=%v err=%v", ok, err)
	}
	ok, err = f.contexts.RemoveNode(f.ctx, chat.ID, a.ID)
	if err != nil || ok {
		t.Fatalf("second RemoveNode: ok=%v err=%v", ok, err)
	}

	if _, err := f.contexts.AddNode(f.ctx, AddContextNodeInput{ContextID: uuid.New(), NodeID: a.ID}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing context: want not_found got %v", err)
	}
}

func TestContextActiveNodeAndDelete(t *testing.T) {
	f := newFixture(t, nil)
	b := f.mustSession(t, "s")
	a := f.mustChild(t, b.Session.ID, b.RootNode.ID)

	if _, err := f.contexts.UpdateActiveNode(f.ctx, b.ChatContext.ID, uuid.Nil); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("nil node: want validation got %v", err)
	}
	c, err := f.contexts.UpdateActiveNode(f.ctx, b.ChatContext.ID, a.ID)
	if err != nil || c.ActiveNodeID != a.ID {
		t.Fatalf("UpdateActiveNode: got=%v err=%v", c, err)
	}
	if miss, err := f.contexts.UpdateActiveNode(f.ctx, uuid.New(), a.ID); err != nil || miss != nil {
		t.Fatalf("missing context: got=%v err=%v", miss, err)
	}

	dd, err := f.contexts.Create(f.ctx, CreateContextInput{SessionID: b.Session.ID, RootNodeID: a.ID, Mode: types.ModeDeepDive})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ok, err := f.contexts.Delete(f.ctx, dd.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	if got, _ := f.contexts.Get(f.ctx, dd.ID); got != nil {
		t.Fatalf("deleted context still readable")
	}
	if n, _ := f.nodes.Get(f.ctx, a.ID); n == nil {
		t.Fatalf("context delete removed its root node")
	}
}
