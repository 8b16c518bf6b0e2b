// Package mcp exposes the conversation tree as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/services"
)

const (
	serverName    = "syncraft"
	serverVersion = "1.0.0"
)

type toolHandler = server.ToolHandlerFunc

type Server struct {
	log      *logger.Logger
	auth     services.AuthService
	sessions services.SessionService
	nodes    services.NodeService
	qa       services.QAService
	mcp      *server.MCPServer
}

type Deps struct {
	Log      *logger.Logger
	Auth     services.AuthService
	Sessions services.SessionService
	Nodes    services.NodeService
	QA       services.QAService
}

func NewServer(d Deps) *Server {
	s := &Server{
		log:      d.Log.With("component", "MCPServer"),
		auth:     d.Auth,
		sessions: d.Sessions,
		nodes:    d.Nodes,
		qa:       d.QA,
	}
	s.mcp = server.NewMCPServer(serverName, serverVersion)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcpgo.NewTool("create_session",
		mcpgo.WithDescription("Create a conversation session with its root node and chat context."),
		mcpgo.WithString("name", mcpgo.Description("Session name")),
	), s.local(s.createSession))

	s.mcp.AddTool(mcpgo.NewTool("list_sessions",
		mcpgo.WithDescription("List the local owner's sessions."),
		mcpgo.WithNumber("limit", mcpgo.Description("Page size (default 20)")),
		mcpgo.WithNumber("offset", mcpgo.Description("Rows to skip")),
		mcpgo.WithString("sort_by", mcpgo.Description("created_at, updated_at or name")),
		mcpgo.WithString("sort_order", mcpgo.Description("asc or desc")),
	), s.local(s.listSessions))

	s.mcp.AddTool(mcpgo.NewTool("create_node",
		mcpgo.WithDescription("Add a node under a parent in a session tree."),
		mcpgo.WithString("session_id", mcpgo.Required(), mcpgo.Description("Session id")),
		mcpgo.WithString("parent_id", mcpgo.Description("Parent node id (defaults to the session root)")),
		mcpgo.WithString("label", mcpgo.Description("Node label")),
		mcpgo.WithString("context_id", mcpgo.Description("Context whose active node moves to the new node")),
	), s.local(s.createNode))

	s.mcp.AddTool(mcpgo.NewTool("ask_question",
		mcpgo.WithDescription("Ask a question on a node and store the generated answer."),
		mcpgo.WithString("node_id", mcpgo.Required(), mcpgo.Description("Node id")),
		mcpgo.WithString("question", mcpgo.Required(), mcpgo.Description("Question text")),
	), s.local(s.askQuestion))

	s.mcp.AddTool(mcpgo.NewTool("search_qa_pairs",
		mcpgo.WithDescription("Substring search over questions and answers."),
		mcpgo.WithString("query", mcpgo.Required(), mcpgo.Description("Text to look for")),
		mcpgo.WithString("session_id", mcpgo.Description("Restrict to one session")),
		mcpgo.WithString("context_id", mcpgo.Description("Restrict to one context")),
		mcpgo.WithNumber("limit", mcpgo.Description("Page size (default 10)")),
		mcpgo.WithNumber("offset", mcpgo.Description("Rows to skip")),
	), s.local(s.searchQAPairs))

	s.mcp.AddTool(mcpgo.NewTool("get_session_tree",
		mcpgo.WithDescription("Return a session's nodes and parent-child edges."),
		mcpgo.WithString("session_id", mcpgo.Required(), mcpgo.Description("Session id")),
		mcpgo.WithBoolean("include_qa", mcpgo.Description("Attach the first QA preview per node (default true)")),
	), s.local(s.getSessionTree))
}

// local runs h as the configured local owner.
func (s *Server) local(h toolHandler) toolHandler {
	return func(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
		return h(s.auth.LocalContext(ctx), request)
	}
}

// ServeStdio blocks until stdin closes.
func (s *Server) ServeStdio() error {
	s.log.Info("MCP server listening on stdio", "tools", 6)
	return server.ServeStdio(s.mcp)
}

func (s *Server) createSession(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	b, err := s.sessions.Create(ctx, services.CreateSessionInput{Name: request.GetString("name", "")})
	if err != nil {
		return s.failed("create_session", err), nil
	}
	return jsonResult(b)
}

func (s *Server) listSessions(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	page, err := s.sessions.List(ctx, services.ListSessionsInput{
		Limit:     request.GetInt("limit", 0),
		Offset:    request.GetInt("offset", 0),
		SortBy:    request.GetString("sort_by", ""),
		SortOrder: request.GetString("sort_order", ""),
	})
	if err != nil {
		return s.failed("list_sessions", err), nil
	}
	return jsonResult(page)
}

func (s *Server) createNode(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	sessionID, errRes := requiredUUID(request, "session_id")
	if errRes != nil {
		return errRes, nil
	}
	parentID, errRes := optionalUUID(request, "parent_id")
	if errRes != nil {
		return errRes, nil
	}
	contextID, errRes := optionalUUID(request, "context_id")
	if errRes != nil {
		return errRes, nil
	}
	if parentID == nil {
		detail, err := s.sessions.Get(ctx, sessionID)
		if err != nil {
			return s.failed("create_node", err), nil
		}
		if detail == nil {
			return mcpgo.NewToolResultError("session not found"), nil
		}
		parentID = detail.RootNodeID
	}
	in := services.CreateNodeInput{SessionID: sessionID, ParentID: parentID, ContextID: contextID}
	if label := strings.TrimSpace(request.GetString("label", "")); label != "" {
		in.Label = &label
	}
	n, err := s.nodes.Create(ctx, in)
	if err != nil {
		return s.failed("create_node", err), nil
	}
	return jsonResult(n)
}

func (s *Server) askQuestion(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	nodeID, errRes := requiredUUID(request, "node_id")
	if errRes != nil {
		return errRes, nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	v, err := s.qa.Ask(ctx, nodeID, services.AskInput{Question: question})
	if err != nil {
		return s.failed("ask_question", err), nil
	}
	return jsonResult(v)
}

func (s *Server) searchQAPairs(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	sessionID, errRes := optionalUUID(request, "session_id")
	if errRes != nil {
		return errRes, nil
	}
	contextID, errRes := optionalUUID(request, "context_id")
	if errRes != nil {
		return errRes, nil
	}
	page, err := s.qa.Search(ctx, services.SearchInput{
		Query:     query,
		SessionID: sessionID,
		ContextID: contextID,
		Limit:     request.GetInt("limit", 0),
		Offset:    request.GetInt("offset", 0),
	})
	if err != nil {
		return s.failed("search_qa_pairs", err), nil
	}
	return jsonResult(page)
}

func (s *Server) getSessionTree(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	sessionID, errRes := requiredUUID(request, "session_id")
	if errRes != nil {
		return errRes, nil
	}
	tree, err := s.sessions.Tree(ctx, sessionID, request.GetBool("include_qa", true))
	if err != nil {
		return s.failed("get_session_tree", err), nil
	}
	if tree == nil {
		return mcpgo.NewToolResultError("session not found"), nil
	}
	return jsonResult(tree)
}

func (s *Server) failed(tool string, err error) *mcpgo.CallToolResult {
	s.log.Warn("MCP tool failed", "tool", tool, "error", err)
	return mcpgo.NewToolResultError(err.Error())
}

func requiredUUID(request mcpgo.CallToolRequest, key string) (uuid.UUID, *mcpgo.CallToolResult) {
	raw, err := request.RequireString(key)
	if err != nil {
		return uuid.Nil, mcpgo.NewToolResultError(err.Error())
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, mcpgo.NewToolResultError(fmt.Sprintf("invalid %s: %q", key, raw))
	}
	return id, nil
}

func optionalUUID(request mcpgo.CallToolRequest, key string) (*uuid.UUID, *mcpgo.CallToolResult) {
	raw := strings.TrimSpace(request.GetString(key, ""))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, mcpgo.NewToolResultError(fmt.Sprintf("invalid %s: %q", key, raw))
	}
	return &id, nil
}

func jsonResult(v any) (*mcpgo.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcpgo.NewToolResultText(string(data)), nil
}
