package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/syncraft-backend/internal/http/response"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/services"
)

type ContextHandler struct {
	log      *logger.Logger
	contexts services.ContextService
}

func NewContextHandler(log *logger.Logger, contexts services.ContextService) *ContextHandler {
	return &ContextHandler{log: log.With("handler", "ContextHandler"), contexts: contexts}
}

// POST /api/contexts
// body: { "session_id", "context_root_node_id", "mode", "source" }
func (h *ContextHandler) CreateContext(c *gin.Context) {
	var req services.CreateContextInput
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.contexts.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondCreated(c, row)
}

// GET /api/contexts/:id
func (h *ContextHandler) GetContext(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	row, err := h.contexts.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if row == nil {
		response.RespondNotFound(c, "context")
		return
	}
	response.RespondOK(c, row)
}

// GET /api/contexts/by-context-id/:context_id
func (h *ContextHandler) GetByContextID(c *gin.Context) {
	key := strings.TrimSpace(c.Param("context_id"))
	row, err := h.contexts.GetByContextID(c.Request.Context(), key)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if row == nil {
		response.RespondNotFound(c, "context")
		return
	}
	response.RespondOK(c, row)
}

// PUT /api/contexts/:id
// body: { "active_node_id": "..." }
func (h *ContextHandler) UpdateContext(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ActiveNodeID uuid.UUID `json:"active_node_id"`
	}
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.contexts.UpdateActiveNode(c.Request.Context(), id, req.ActiveNodeID)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if row == nil {
		response.RespondNotFound(c, "context")
		return
	}
	response.RespondOK(c, row)
}

// DELETE /api/contexts/:id
func (h *ContextHandler) DeleteContext(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.contexts.Delete(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if !deleted {
		response.RespondNotFound(c, "context")
		return
	}
	response.RespondOK(c, successResponse{Success: true, Message: "context deleted"})
}

// GET /api/contexts/:id/nodes
func (h *ContextHandler) ListNodes(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	views, err := h.contexts.ListNodes(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, items(views))
}

// POST /api/contexts/:id/nodes/:node_id
// body (optional): { "relation_type", "metadata" }
func (h *ContextHandler) AddNode(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	nodeID, ok := pathUUID(c, "node_id")
	if !ok {
		return
	}
	var req services.AddContextNodeInput
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	req.ContextID = id
	req.NodeID = nodeID
	m, err := h.contexts.AddNode(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, m)
}

// DELETE /api/contexts/:id/nodes/:node_id
func (h *ContextHandler) RemoveNode(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	nodeID, ok := pathUUID(c, "node_id")
	if !ok {
		return
	}
	removed, err := h.contexts.RemoveNode(c.Request.Context(), id, nodeID)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if !removed {
		response.RespondNotFound(c, "context membership")
		return
	}
	response.RespondOK(c, successResponse{Success: true, Message: "node removed from context"})
}
