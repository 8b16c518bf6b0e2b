package domain

import "github.com/yungbote/syncraft-backend/internal/domain/conversation"

type (
	Session     = conversation.Session
	Node        = conversation.Node
	Edge        = conversation.Edge
	Context     = conversation.Context
	ContextNode = conversation.ContextNode
	QAPair      = conversation.QAPair
	Message     = conversation.Message

	QAPairView      = conversation.QAPairView
	SessionBundle   = conversation.SessionBundle
	SessionDetail   = conversation.SessionDetail
	SessionPage     = conversation.SessionPage
	ContextNodeView = conversation.ContextNodeView
	NodeContextView = conversation.NodeContextView
	NodeDetail      = conversation.NodeDetail
	QABrief         = conversation.QABrief
	QAPreview       = conversation.QAPreview
	TreeNode        = conversation.TreeNode
	SessionTree     = conversation.SessionTree
	SearchHit       = conversation.SearchHit
	SearchPage      = conversation.SearchPage
)

const (
	ModeChat     = conversation.ModeChat
	ModeDeepDive = conversation.ModeDeepDive

	RelationRoot   = conversation.RelationRoot
	RelationActive = conversation.RelationActive
	RelationMember = conversation.RelationMember

	RoleUser      = conversation.RoleUser
	RoleAssistant = conversation.RoleAssistant
	RoleSystem    = conversation.RoleSystem

	RootTemplateKey = conversation.RootTemplateKey
)
