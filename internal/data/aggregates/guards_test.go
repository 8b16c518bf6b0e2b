package aggregates

import (
	"testing"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
)

func TestRequireSameSession(t *testing.T) {
	a := uuid.New()
	if err := requireSameSession(a, a, "node"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := requireSameSession(a, uuid.New(), "node")
	if !domainagg.IsCode(MapError("op", err), domainagg.CodeInvalidRelation) {
		t.Fatalf("expected invalid_relation, got %v", err)
	}
}

func TestRequireID(t *testing.T) {
	if err := requireID(uuid.New(), "node_id"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := requireID(uuid.Nil, "node_id"); !domainagg.IsCode(MapError("op", err), domainagg.CodeValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
}
