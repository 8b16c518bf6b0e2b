package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/syncraft-backend/internal/domain"
	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
	"github.com/yungbote/syncraft-backend/internal/pkg/pointers"
	"github.com/yungbote/syncraft-backend/internal/platform/llm"
)

type recorder struct {
	prompts []string
	answer  string
	err     error
}

func (r *recorder) gen() llm.Generator {
	return llm.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		r.prompts = append(r.prompts, prompt)
		return r.answer, r.err
	})
}

func (r *recorder) last(t *testing.T) string {
	t.Helper()
	if len(r.prompts) == 0 {
		t.Fatalf("generator was not called")
	}
	return r.prompts[len(r.prompts)-1]
}

func TestBuildPrompt(t *testing.T) {
	ans := "Paris"
	blank := "   "
	cases := []struct {
		name   string
		prevQ  string
		prevA  *string
		want   string
		framed bool
	}{
		{name: "no previous", want: "why?"},
		{name: "no answer", prevQ: "capital?", want: "why?"},
		{name: "blank answer", prevQ: "capital?", prevA: &blank, want: "why?"},
		{name: "blank question", prevQ: " ", prevA: &ans, want: "why?"},
		{name: "full exchange", prevQ: "capital?", prevA: &ans, framed: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := buildPrompt(tc.prevQ, tc.prevA, "why?")
			if !tc.framed {
				if got != tc.want {
					t.Fatalf("want %q got %q", tc.want, got)
				}
				return
			}
			for _, part := range []string{"[Previous Q&A]", "Q: capital?", "A: Paris", "[New question]\nwhy?"} {
				if !strings.Contains(got, part) {
					t.Fatalf("prompt missing %q:\n%s", part, got)
				}
			}
		})
	}
}

func TestAskOnRootUsesBarePrompt(t *testing.T) {
	rec := &recorder{answer: "forty-two"}
	f := newFixture(t, rec.gen())
	b := f.mustSession(t, "s")

	v, err := f.qa.Ask(f.ctx, b.RootNode.ID, AskInput{Question: "meaning of life?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got := rec.last(t); got != "meaning of life?" {
		t.Fatalf("prompt: want bare question got %q", got)
	}
	if v.Question != "meaning of life?" || v.Answer == nil || *v.Answer != "forty-two" {
		t.Fatalf("stored pair: %+v", v)
	}
	if len(v.Messages) != 2 || v.Messages[0].Role != types.RoleUser || v.Messages[1].Role != types.RoleAssistant {
		t.Fatalf("messages: %+v", v.Messages)
	}
}

func TestAskUsesParentLatestExchange(t *testing.T) {
	rec := &recorder{answer: "ok"}
	f := newFixture(t, rec.gen())
	b := f.mustSession(t, "s")
	f.mustQA(t, b.RootNode, "old question", "old answer")
	f.mustQA(t, b.RootNode, "what is Go?", "A language.")
	child := f.mustChild(t, b.Session.ID, b.RootNode.ID)

	if _, err := f.qa.Ask(f.ctx, child.ID, AskInput{Question: "who made it?"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	want := buildPrompt("what is Go?", pointers.String("A language."), "who made it?")
	if got := rec.last(t); got != want {
		t.Fatalf("prompt:\nwant %q\ngot  %q", want, got)
	}
}

func TestAskParentWithoutAnswerUsesBarePrompt(t *testing.T) {
	rec := &recorder{answer: "ok"}
	f := newFixture(t, rec.gen())
	b := f.mustSession(t, "s")
	f.mustQA(t, b.RootNode, "unanswered", "")
	child := f.mustChild(t, b.Session.ID, b.RootNode.ID)

	if _, err := f.qa.Ask(f.ctx, child.ID, AskInput{Question: "next"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got := rec.last(t); got != "next" {
		t.Fatalf("prompt: want bare question got %q", got)
	}
}

func TestAskFallsBack(t *testing.T) {
	cases := map[string]*recorder{
		"generator error": {err: errors.New("upstream 500")},
		"blank output":    {answer: " \n "},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, rec.gen())
			b := f.mustSession(t, "s")
			v, err := f.qa.Ask(f.ctx, b.RootNode.ID, AskInput{Question: "q"})
			if err != nil {
				t.Fatalf("Ask must not fail on generation problems: %v", err)
			}
			if v.Answer == nil || *v.Answer != FallbackAnswer {
				t.Fatalf("answer: want fallback got %v", v.Answer)
			}
			stored, _ := f.qa.ListByNode(f.ctx, b.RootNode.ID)
			if len(stored) != 1 {
				t.Fatalf("stored pairs: %d", len(stored))
			}
		})
	}
}

func TestAskRejections(t *testing.T) {
	rec := &recorder{answer: "x"}
	f := newFixture(t, rec.gen())
	b := f.mustSession(t, "s")

	if _, err := f.qa.Ask(f.ctx, b.RootNode.ID, AskInput{Question: "  "}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("blank question: want validation got %v", err)
	}
	if _, err := f.qa.Ask(f.ctx, uuid.New(), AskInput{Question: "q"}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("missing node: want not_found got %v", err)
	}
	stranger := asUser(context.Background(), "u2")
	if _, err := f.qa.Ask(stranger, b.RootNode.ID, AskInput{Question: "q"}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("stranger: want not_found got %v", err)
	}
	if len(rec.prompts) != 0 {
		t.Fatalf("generator called on rejected input")
	}
}

func TestSearchPagesMatches(t *testing.T) {
	f := newFixture(t, nil)
	b := f.mustSession(t, "s")
	var matching []uuid.UUID
	for i := 0; i < 10; i++ {
		q := fmt.Sprintf("unrelated %d", i)
		if i < 7 {
			q = fmt.Sprintf("About GOLANG %d", i)
		}
		v := f.mustQA(t, b.RootNode, q, "")
		if i < 7 {
			matching = append(matching, v.ID)
		}
	}

	page, err := f.qa.Search(f.ctx, SearchInput{Query: "golang", Limit: 3, Offset: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 7 || len(page.Items) != 3 {
		t.Fatalf("page: total=%d len=%d", page.Total, len(page.Items))
	}
	// Newest first: matches 6..0, so offset 3 starts at match 3.
	for i, hit := range page.Items {
		want := matching[3-i]
		if hit.ID != want {
			t.Fatalf("item %d: want=%s got=%s", i, want, hit.ID)
		}
	}

	tail, _ := f.qa.Search(f.ctx, SearchInput{Query: "golang", Limit: 3, Offset: 6})
	if tail.Total != 7 || len(tail.Items) != 1 {
		t.Fatalf("tail: total=%d len=%d", tail.Total, len(tail.Items))
	}
	past, _ := f.qa.Search(f.ctx, SearchInput{Query: "golang", Offset: 50})
	if past.Total != 7 || len(past.Items) != 0 {
		t.Fatalf("past end: total=%d len=%d", past.Total, len(past.Items))
	}
	if _, err := f.qa.Search(f.ctx, SearchInput{Offset: -1}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("negative offset: want validation got %v", err)
	}
}

func TestSearchMatchesAnswerAndTruncates(t *testing.T) {
	f := newFixture(t, nil)
	b := f.mustSession(t, "s")
	f.mustQA(t, b.RootNode, "plain", "the needle is "+strings.Repeat("x", 200))

	page, err := f.qa.Search(f.ctx, SearchInput{Query: "NEEDLE"})
	if err != nil || page.Total != 1 {
		t.Fatalf("Search: page=%+v err=%v", page, err)
	}
	hit := page.Items[0]
	if hit.Answer == nil || len([]rune(*hit.Answer)) != 103 || !strings.HasSuffix(*hit.Answer, "...") {
		t.Fatalf("answer preview: %v", hit.Answer)
	}
}

func TestSearchScopes(t *testing.T) {
	f := newFixture(t, nil)
	s1 := f.mustSession(t, "one")
	s2 := f.mustSession(t, "two")
	inCtx, err := f.nodes.Create(f.ctx, CreateNodeInput{SessionID: s1.Session.ID, ParentID: &s1.RootNode.ID, ContextID: &s1.ChatContext.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	outside := f.mustChild(t, s1.Session.ID, s1.RootNode.ID)
	f.mustQA(t, inCtx, "topic a", "")
	f.mustQA(t, outside, "topic b", "")
	f.mustQA(t, s2.RootNode, "topic c", "")

	all, _ := f.qa.Search(f.ctx, SearchInput{Query: "topic"})
	if all.Total != 3 {
		t.Fatalf("all: total=%d", all.Total)
	}
	bySession, _ := f.qa.Search(f.ctx, SearchInput{Query: "topic", SessionID: &s1.Session.ID})
	if bySession.Total != 2 {
		t.Fatalf("session scope: total=%d", bySession.Total)
	}
	byContext, _ := f.qa.Search(f.ctx, SearchInput{Query: "topic", ContextID: &s1.ChatContext.ID})
	if byContext.Total != 1 || byContext.Items[0].NodeID != inCtx.ID {
		t.Fatalf("context scope: %+v", byContext)
	}
	missing := uuid.New()
	none, err := f.qa.Search(f.ctx, SearchInput{Query: "topic", ContextID: &missing})
	if err != nil || none.Total != 0 || none.Items == nil {
		t.Fatalf("missing context: page=%+v err=%v", none, err)
	}
	stranger, _ := f.qa.Search(asUser(context.Background(), "u2"), SearchInput{Query: "topic"})
	if stranger.Total != 0 {
		t.Fatalf("stranger sees %d pairs", stranger.Total)
	}
}

func TestQAPairLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	b := f.mustSession(t, "s")
	v := f.mustQA(t, b.RootNode, "q?", "")

	if _, err := f.qa.AddMessage(f.ctx, AddMessageInput{QAPairID: v.ID, Role: "robot", Content: "x"}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("bad role: want validation got %v", err)
	}
	m, err := f.qa.AddMessage(f.ctx, AddMessageInput{QAPairID: v.ID, Role: " Assistant ", Content: "answered"})
	if err != nil || m.Role != types.RoleAssistant {
		t.Fatalf("AddMessage: got=%v err=%v", m, err)
	}
	got, _ := f.qa.Get(f.ctx, v.ID)
	if got.Answer == nil || *got.Answer != "answered" {
		t.Fatalf("answer after AddMessage: %v", got.Answer)
	}

	for i := 1; i <= 2; i++ {
		viewed, err := f.qa.IncrementViewCount(f.ctx, v.ID)
		if err != nil || viewed.ViewCount != i {
			t.Fatalf("IncrementViewCount #%d: got=%v err=%v", i, viewed, err)
		}
	}
	if miss, err := f.qa.IncrementViewCount(f.ctx, uuid.New()); err != nil || miss != nil {
		t.Fatalf("missing pair: got=%v err=%v", miss, err)
	}

	tags := []string{"go", "db"}
	updated, err := f.qa.Update(f.ctx, v.ID, UpdateQAPairInput{IsFavorite: pointers.Bool(true), Rating: pointers.Int(5), Tags: &tags})
	if err != nil || !updated.IsFavorite || updated.Rating == nil || *updated.Rating != 5 {
		t.Fatalf("Update: got=%+v err=%v", updated, err)
	}

	ok, err := f.qa.Delete(f.ctx, v.ID)
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	if gone, _ := f.qa.Get(f.ctx, v.ID); gone != nil {
		t.Fatalf("deleted pair still readable")
	}
}
