package conversation

import (
	"time"

	"github.com/google/uuid"
)

const (
	ModeChat     = "chat"
	ModeDeepDive = "deepdive"
)

// Context is a named view over part of a session's tree. ContextID is the
// derived, human-readable key (see DeriveContextID) and is unique.
type Context struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContextID         string    `gorm:"column:context_id;not null;uniqueIndex" json:"context_id"`
	Mode              string    `gorm:"column:mode;not null;index" json:"mode"`
	SessionID         uuid.UUID `gorm:"type:uuid;column:session_id;not null;index" json:"session_id"`
	ContextRootNodeID uuid.UUID `gorm:"type:uuid;column:context_root_node_id;not null;index" json:"context_root_node_id"`
	ActiveNodeID      uuid.UUID `gorm:"type:uuid;column:active_node_id;not null;index" json:"active_node_id"`
	Source            *string   `gorm:"column:source" json:"source,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Context) TableName() string { return "context" }
