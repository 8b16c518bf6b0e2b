package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/syncraft-backend/internal/domain"
	"github.com/yungbote/syncraft-backend/internal/http/response"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/services"
)

type NodeHandler struct {
	log      *logger.Logger
	nodes    services.NodeService
	contexts services.ContextService
	qa       services.QAService
}

func NewNodeHandler(log *logger.Logger, nodes services.NodeService, contexts services.ContextService, qa services.QAService) *NodeHandler {
	return &NodeHandler{
		log:      log.With("handler", "NodeHandler"),
		nodes:    nodes,
		contexts: contexts,
		qa:       qa,
	}
}

// POST /api/nodes
// body: { "session_id", "parent_id", "template_key", "label", "type", "ext" }
func (h *NodeHandler) CreateNode(c *gin.Context) {
	var req services.CreateNodeInput
	if !bindJSON(c, &req) {
		return
	}
	req.ContextID = nil
	h.create(c, req)
}

// POST /api/nodes/with_context_update
// body: CreateNode body plus "context_id"; the node joins the context and
// becomes its active node in the same transaction.
func (h *NodeHandler) CreateNodeWithContext(c *gin.Context) {
	var req services.CreateNodeInput
	if !bindJSON(c, &req) {
		return
	}
	if req.ContextID == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("context_id is required"))
		return
	}
	h.create(c, req)
}

func (h *NodeHandler) create(c *gin.Context, req services.CreateNodeInput) {
	node, err := h.nodes.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondCreated(c, node)
}

// GET /api/nodes/:id?include_qa=&include_children=&children_depth=
func (h *NodeHandler) GetNode(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	depth, ok := queryInt(c, "children_depth", 1)
	if !ok {
		return
	}
	detail, err := h.nodes.Detail(c.Request.Context(), id, services.DetailOptions{
		IncludeQA:       queryBool(c, "include_qa", true),
		IncludeChildren: queryBool(c, "include_children", false),
		ChildrenDepth:   depth,
	})
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if detail == nil {
		response.RespondNotFound(c, "node")
		return
	}
	response.RespondOK(c, detail)
}

// PUT /api/nodes/:id
func (h *NodeHandler) UpdateNode(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateNodeInput
	if !bindJSON(c, &req) {
		return
	}
	node, err := h.nodes.Update(c.Request.Context(), id, req)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if node == nil {
		response.RespondNotFound(c, "node")
		return
	}
	response.RespondOK(c, node)
}

// DELETE /api/nodes/:id
func (h *NodeHandler) DeleteNode(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.nodes.Delete(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if !deleted {
		response.RespondNotFound(c, "node")
		return
	}
	response.RespondOK(c, successResponse{Success: true, Message: "node deleted"})
}

// GET /api/nodes/:id/children
func (h *NodeHandler) ListChildren(c *gin.Context) {
	h.list(c, h.nodes.Children)
}

// GET /api/nodes/:id/descendants
func (h *NodeHandler) ListDescendants(c *gin.Context) {
	h.list(c, h.nodes.Descendants)
}

// GET /api/nodes/:id/path
func (h *NodeHandler) GetPath(c *gin.Context) {
	h.list(c, h.nodes.Path)
}

func (h *NodeHandler) list(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) ([]*types.Node, error)) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	nodes, err := fn(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, items(nodes))
}

// GET /api/nodes/:id/contexts
func (h *NodeHandler) ListContexts(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	views, err := h.contexts.ListNodeContexts(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, items(views))
}

// GET /api/nodes/:id/qa_pairs
func (h *NodeHandler) ListQAPairs(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	pairs, err := h.qa.ListByNode(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if pairs == nil {
		pairs = []*types.QAPairView{}
	}
	response.RespondOK(c, gin.H{"total": len(pairs), "items": pairs})
}

// POST /api/nodes/:id/ask
// body: { "question": "..." }
func (h *NodeHandler) Ask(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.AskInput
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.qa.Ask(c.Request.Context(), id, req)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, view)
}
