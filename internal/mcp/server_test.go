package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/syncraft-backend/internal/data/aggregates"
	"github.com/yungbote/syncraft-backend/internal/data/repos"
	repotest "github.com/yungbote/syncraft-backend/internal/data/repos/testutil"
	"github.com/yungbote/syncraft-backend/internal/platform/cache"
	"github.com/yungbote/syncraft-backend/internal/platform/llm"
	"github.com/yungbote/syncraft-backend/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db := repotest.DB(t)
	tx := repotest.Tx(t, db)
	log := repotest.Logger(t)

	c, err := cache.NewBadger("", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	auth, err := services.NewAuthService(log, services.AuthConfig{Disabled: true, LocalUser: "desk"})
	require.NoError(t, err)

	set := repos.NewSet(tx, log)
	aggs := aggregates.NewSet(aggregates.BaseDeps{DB: tx, Log: log, Runner: aggregates.NewGormTxRunner(tx)}, set)
	return NewServer(Deps{
		Log:      log,
		Auth:     auth,
		Sessions: services.NewSessionService(tx, log, set, aggs.Sessions, nil, c),
		Nodes:    services.NewNodeService(tx, log, set, aggs.Tree, nil, c),
		QA:       services.NewQAService(tx, log, set, aggs.QA, llm.Mock{}, c),
	})
}

func call(t *testing.T, h toolHandler, args map[string]any) (*mcpgo.CallToolResult, string) {
	t.Helper()
	req := mcpgo.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	return res, res.Content[0].(mcpgo.TextContent).Text
}

func decode(t *testing.T, text string, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(text), out), text)
}

func TestToolsBuildAndQueryATree(t *testing.T) {
	s := newTestServer(t)

	res, text := call(t, s.local(s.createSession), map[string]any{"name": "mcp"})
	require.False(t, res.IsError, text)
	var bundle struct {
		Session struct {
			ID     string `json:"id"`
			UserID string `json:"user_id"`
		} `json:"session"`
		RootNode struct {
			ID string `json:"id"`
		} `json:"root_node"`
		ChatContext struct {
			ID string `json:"id"`
		} `json:"chat_context"`
	}
	decode(t, text, &bundle)
	assert.Equal(t, "desk", bundle.Session.UserID)

	// parent_id omitted: the node hangs off the root.
	res, text = call(t, s.local(s.createNode), map[string]any{
		"session_id": bundle.Session.ID,
		"label":      "first",
		"context_id": bundle.ChatContext.ID,
	})
	require.False(t, res.IsError, text)
	var node struct {
		ID       string `json:"id"`
		ParentID string `json:"parent_id"`
	}
	decode(t, text, &node)
	assert.Equal(t, bundle.RootNode.ID, node.ParentID)

	res, text = call(t, s.local(s.askQuestion), map[string]any{"node_id": node.ID, "question": "what is golang?"})
	require.False(t, res.IsError, text)
	var qa struct {
		Question string  `json:"question"`
		Answer   *string `json:"answer"`
	}
	decode(t, text, &qa)
	require.NotNil(t, qa.Answer)
	assert.Equal(t, "This is a test answer for: what is golang?", *qa.Answer)

	res, text = call(t, s.local(s.searchQAPairs), map[string]any{"query": "golang", "session_id": bundle.Session.ID})
	require.False(t, res.IsError, text)
	var page struct {
		Total int `json:"total"`
	}
	decode(t, text, &page)
	assert.Equal(t, 1, page.Total)

	res, text = call(t, s.local(s.getSessionTree), map[string]any{"session_id": bundle.Session.ID})
	require.False(t, res.IsError, text)
	var tree struct {
		Nodes []struct {
			ID        string `json:"id"`
			QAPreview *struct {
				Question string `json:"question"`
			} `json:"qa_preview"`
		} `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	decode(t, text, &tree)
	assert.Len(t, tree.Nodes, 2)
	assert.Len(t, tree.Edges, 1)

	res, text = call(t, s.local(s.listSessions), map[string]any{"limit": float64(5)})
	require.False(t, res.IsError, text)
	var sessions struct {
		Total int64 `json:"total"`
	}
	decode(t, text, &sessions)
	assert.Equal(t, int64(1), sessions.Total)
}

func TestToolsReportBadArguments(t *testing.T) {
	s := newTestServer(t)

	res, text := call(t, s.local(s.createNode), map[string]any{})
	assert.True(t, res.IsError, text)

	res, text = call(t, s.local(s.askQuestion), map[string]any{"node_id": "not-a-uuid", "question": "q"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "invalid node_id")

	res, text = call(t, s.local(s.getSessionTree), map[string]any{"session_id": "00000000-0000-0000-0000-000000000001"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "session not found")

	res, _ = call(t, s.local(s.searchQAPairs), map[string]any{"query": "x", "context_id": "nope"})
	assert.True(t, res.IsError)
}
