package conversation

import (
	"testing"

	"github.com/google/uuid"
)

func TestDeriveContextID(t *testing.T) {
	sid := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	root := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	cases := []struct {
		name string
		mode string
		want string
	}{
		{"chat", "chat", "chat-11111111-1111-1111-1111-111111111111"},
		{"chat normalized", "  Chat ", "chat-11111111-1111-1111-1111-111111111111"},
		{"deepdive", "deepdive", "deepdive-22222222-2222-2222-2222-222222222222-11111111-1111-1111-1111-111111111111"},
		{"custom", "Review", "review-22222222-2222-2222-2222-222222222222-11111111-1111-1111-1111-111111111111"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveContextID(tc.mode, sid, root); got != tc.want {
				t.Fatalf("DeriveContextID: want=%q got=%q", tc.want, got)
			}
		})
	}
}

func TestDeriveContextIDChatIgnoresRoot(t *testing.T) {
	sid := uuid.New()
	a := DeriveContextID(ModeChat, sid, uuid.New())
	b := DeriveContextID(ModeChat, sid, uuid.New())
	if a != b {
		t.Fatalf("chat ids must not depend on root: %q vs %q", a, b)
	}
}
