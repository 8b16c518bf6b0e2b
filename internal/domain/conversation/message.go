package conversation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Message struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QAPairID uuid.UUID      `gorm:"type:uuid;column:qa_pair_id;not null;index;uniqueIndex:idx_message_qa_pair_seq,priority:1" json:"qa_pair_id"`
	Seq      int            `gorm:"column:seq;not null;uniqueIndex:idx_message_qa_pair_seq,priority:2" json:"seq"`
	Role     string         `gorm:"column:role;not null" json:"role"`
	Content  string         `gorm:"column:content;type:text;not null;default:''" json:"content"`
	Metadata datatypes.JSON `gorm:"type:jsonb;column:metadata;not null;default:'{}'" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"timestamp"`
}

func (Message) TableName() string { return "message" }
