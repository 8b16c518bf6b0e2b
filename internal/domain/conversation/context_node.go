package conversation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RelationRoot   = "root"
	RelationActive = "active"
	RelationMember = "member"
)

// ContextNode is a context membership row. Metadata is opaque to the core.
type ContextNode struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ContextID    uuid.UUID      `gorm:"type:uuid;column:context_id;not null;index;uniqueIndex:idx_context_node_pair,priority:1" json:"context_id"`
	NodeID       uuid.UUID      `gorm:"type:uuid;column:node_id;not null;index;uniqueIndex:idx_context_node_pair,priority:2" json:"node_id"`
	RelationType string         `gorm:"column:relation_type;not null;default:'member'" json:"relation_type"`
	Metadata     datatypes.JSON `gorm:"type:jsonb;column:metadata;not null;default:'{}'" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ContextNode) TableName() string { return "context_node" }
