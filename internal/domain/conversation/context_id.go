package conversation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NormalizeMode trims and lower-cases a context mode.
func NormalizeMode(mode string) string {
	return strings.ToLower(strings.TrimSpace(mode))
}

// DeriveContextID returns the stable key of a context.
//
//	chat      -> "chat-{sessionID}"              (one per session)
//	any other -> "{mode}-{rootNodeID}-{sessionID}" (one per mode and root)
func DeriveContextID(mode string, sessionID, rootNodeID uuid.UUID) string {
	mode = NormalizeMode(mode)
	if mode == ModeChat {
		return fmt.Sprintf("%s-%s", ModeChat, sessionID)
	}
	return fmt.Sprintf("%s-%s-%s", mode, rootNodeID, sessionID)
}
