package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/syncraft-backend/internal/data/repos/conversation"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type SessionRepo = conversation.SessionRepo
type NodeRepo = conversation.NodeRepo
type EdgeRepo = conversation.EdgeRepo
type ContextRepo = conversation.ContextRepo
type ContextNodeRepo = conversation.ContextNodeRepo
type QAPairRepo = conversation.QAPairRepo
type MessageRepo = conversation.MessageRepo

type SessionListQuery = conversation.SessionListQuery
type QAPairScope = conversation.QAPairScope

// Set bundles every table repo over one database handle.
type Set struct {
	Session     SessionRepo
	Node        NodeRepo
	Edge        EdgeRepo
	Context     ContextRepo
	ContextNode ContextNodeRepo
	QAPair      QAPairRepo
	Message     MessageRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Session:     NewSessionRepo(db, log),
		Node:        NewNodeRepo(db, log),
		Edge:        NewEdgeRepo(db, log),
		Context:     NewContextRepo(db, log),
		ContextNode: NewContextNodeRepo(db, log),
		QAPair:      NewQAPairRepo(db, log),
		Message:     NewMessageRepo(db, log),
	}
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return conversation.NewSessionRepo(db, baseLog)
}
func NewNodeRepo(db *gorm.DB, baseLog *logger.Logger) NodeRepo {
	return conversation.NewNodeRepo(db, baseLog)
}
func NewEdgeRepo(db *gorm.DB, baseLog *logger.Logger) EdgeRepo {
	return conversation.NewEdgeRepo(db, baseLog)
}
func NewContextRepo(db *gorm.DB, baseLog *logger.Logger) ContextRepo {
	return conversation.NewContextRepo(db, baseLog)
}
func NewContextNodeRepo(db *gorm.DB, baseLog *logger.Logger) ContextNodeRepo {
	return conversation.NewContextNodeRepo(db, baseLog)
}
func NewQAPairRepo(db *gorm.DB, baseLog *logger.Logger) QAPairRepo {
	return conversation.NewQAPairRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return conversation.NewMessageRepo(db, baseLog)
}
