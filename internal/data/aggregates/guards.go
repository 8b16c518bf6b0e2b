package aggregates

import (
	"fmt"

	"github.com/google/uuid"
)

// requireSameSession rejects references that cross a session boundary.
func requireSameSession(want, got uuid.UUID, what string) error {
	if want != got {
		return InvalidRelationError(fmt.Sprintf("%s belongs to session %s, not %s", what, got, want))
	}
	return nil
}

func requireID(id uuid.UUID, field string) error {
	if id == uuid.Nil {
		return ValidationError("missing " + field)
	}
	return nil
}

func notFoundf(format string, args ...any) error {
	return NotFoundError(fmt.Sprintf(format, args...))
}
