package conversation

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const previewRunes = 100

// QAPairView is a QA pair with its ordered messages and the derived
// question/answer projection.
type QAPairView struct {
	QAPair
	Question string     `json:"question"`
	Answer   *string    `json:"answer"`
	Messages []*Message `json:"messages"`
}

// NewQAPairView projects question/answer from messages. messages must be in
// seq order.
func NewQAPairView(p *QAPair, messages []*Message) *QAPairView {
	if p == nil {
		return nil
	}
	if messages == nil {
		messages = []*Message{}
	}
	v := &QAPairView{QAPair: *p, Messages: messages}
	v.Question, v.Answer = DeriveQA(messages)
	return v
}

// DeriveQA returns the first user message and the last assistant message.
func DeriveQA(messages []*Message) (string, *string) {
	var (
		question    string
		gotQuestion bool
		answer      *string
	)
	for _, m := range messages {
		if m == nil {
			continue
		}
		switch m.Role {
		case RoleUser:
			if !gotQuestion {
				question = m.Content
				gotQuestion = true
			}
		case RoleAssistant:
			content := m.Content
			answer = &content
		}
	}
	return question, answer
}

// TagList decodes the tags column; malformed content yields an empty list.
func (p *QAPair) TagList() []string {
	out := []string{}
	if p == nil || len(p.Tags) == 0 {
		return out
	}
	_ = json.Unmarshal(p.Tags, &out)
	return out
}

// Preview truncates s to 100 runes and marks the cut with "...".
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:previewRunes]) + "..."
}

type SessionBundle struct {
	Session     *Session `json:"session"`
	RootNode    *Node    `json:"root_node"`
	ChatContext *Context `json:"chat_context"`
}

type SessionDetail struct {
	Session
	Contexts []*Context `json:"contexts"`
}

type SessionPage struct {
	Total int64      `json:"total"`
	Items []*Session `json:"items"`
}

type ContextNodeView struct {
	Node         *Node          `json:"node"`
	RelationType string         `json:"relation_type"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
}

type NodeContextView struct {
	Context      *Context `json:"context"`
	RelationType string   `json:"relation_type"`
}

type QABrief struct {
	ID        uuid.UUID `json:"id"`
	Question  string    `json:"question"`
	Answer    *string   `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

type NodeDetail struct {
	Node
	QAPairs  []QABrief         `json:"qa_pairs,omitempty"`
	Children []*NodeDetail     `json:"children,omitempty"`
	Contexts []NodeContextView `json:"contexts,omitempty"`
}

type QAPreview struct {
	Question string  `json:"question"`
	Answer   *string `json:"answer"`
}

type TreeNode struct {
	Node
	QAPreview *QAPreview `json:"qa_preview,omitempty"`
}

type SessionTree struct {
	SessionID uuid.UUID   `json:"session_id"`
	Nodes     []*TreeNode `json:"nodes"`
	Edges     []*Edge     `json:"edges"`
}

type SearchHit struct {
	ID        uuid.UUID `json:"id"`
	NodeID    uuid.UUID `json:"node_id"`
	SessionID uuid.UUID `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Question  string    `json:"question"`
	Answer    *string   `json:"answer"`
}

type SearchPage struct {
	Total int          `json:"total"`
	Items []*SearchHit `json:"items"`
}
