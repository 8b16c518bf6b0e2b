package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Session is one conversation tree. RootNodeID is set once, in the same
// transaction that creates the root node.
type Session struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string     `gorm:"column:name;not null;default:''" json:"name"`
	RootNodeID *uuid.UUID `gorm:"type:uuid;column:root_node_id;index" json:"root_node_id,omitempty"`
	UserID     string     `gorm:"column:user_id;not null;index" json:"user_id"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (Session) TableName() string { return "session" }
