package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Edge mirrors Node.ParentID for traversal by query. It is written and
// removed together with the child node and never edited on its own.
type Edge struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;column:session_id;not null;index" json:"session_id"`
	SourceID  uuid.UUID `gorm:"type:uuid;column:source_id;not null;index" json:"source"`
	TargetID  uuid.UUID `gorm:"type:uuid;column:target_id;not null;uniqueIndex" json:"target"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Edge) TableName() string { return "edge" }
