package conversation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// QAPair groups the messages of one question/answer exchange on a node.
// Question and answer are never stored; see QAPairView.
type QAPair struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	NodeID     uuid.UUID      `gorm:"type:uuid;column:node_id;not null;index" json:"node_id"`
	SessionID  uuid.UUID      `gorm:"type:uuid;column:session_id;not null;index" json:"session_id"`
	Tags       datatypes.JSON `gorm:"type:jsonb;column:tags;not null;default:'[]'" json:"tags"`
	IsFavorite bool           `gorm:"column:is_favorite;not null;default:false" json:"is_favorite"`
	Status     *string        `gorm:"column:status" json:"status"`
	Rating     *int           `gorm:"column:rating" json:"rating"`
	ViewCount  int            `gorm:"column:view_count;not null;default:0" json:"view_count"`
	Ext        datatypes.JSON `gorm:"type:jsonb;column:ext;not null;default:'{}'" json:"ext,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (QAPair) TableName() string { return "qa_pair" }
