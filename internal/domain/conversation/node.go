package conversation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const RootTemplateKey = "root"

type Node struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ParentID        *uuid.UUID     `gorm:"type:uuid;column:parent_id;index" json:"parent_id"`
	SessionID       uuid.UUID      `gorm:"type:uuid;column:session_id;not null;index" json:"session_id"`
	TemplateKey     *string        `gorm:"column:template_key" json:"template_key"`
	SummaryUpToHere *string        `gorm:"column:summary_up_to_here;type:text" json:"summary_up_to_here"`
	Ext             datatypes.JSON `gorm:"type:jsonb;column:ext;not null;default:'{}'" json:"ext,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Node) TableName() string { return "node" }

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n != nil && n.ParentID == nil }
