package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/syncraft-backend/internal/http/response"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/services"
)

type QAHandler struct {
	log *logger.Logger
	qa  services.QAService
}

func NewQAHandler(log *logger.Logger, qa services.QAService) *QAHandler {
	return &QAHandler{log: log.With("handler", "QAHandler"), qa: qa}
}

// POST /api/qa_pairs
// body: { "node_id", "question", "answer", "tags" }
func (h *QAHandler) CreateQAPair(c *gin.Context) {
	var req services.CreateQAPairInput
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.qa.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondCreated(c, view)
}

// GET /api/qa_pairs/:id
func (h *QAHandler) GetQAPair(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := h.qa.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if view == nil {
		response.RespondNotFound(c, "qa pair")
		return
	}
	response.RespondOK(c, view)
}

// PUT /api/qa_pairs/:id
// body: { "status", "rating", "is_favorite", "tags", "answer" }
func (h *QAHandler) UpdateQAPair(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateQAPairInput
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.qa.Update(c.Request.Context(), id, req)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if view == nil {
		response.RespondNotFound(c, "qa pair")
		return
	}
	response.RespondOK(c, view)
}

// DELETE /api/qa_pairs/:id
func (h *QAHandler) DeleteQAPair(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.qa.Delete(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if !deleted {
		response.RespondNotFound(c, "qa pair")
		return
	}
	response.RespondOK(c, successResponse{Success: true, Message: "qa pair deleted"})
}

// POST /api/qa_pairs/:id/messages
// body: { "role", "content", "metadata" }
func (h *QAHandler) AddMessage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.AddMessageInput
	if !bindJSON(c, &req) {
		return
	}
	req.QAPairID = id
	msg, err := h.qa.AddMessage(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondCreated(c, msg)
}

// POST /api/qa_pairs/:id/view
func (h *QAHandler) RecordView(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := h.qa.IncrementViewCount(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if view == nil {
		response.RespondNotFound(c, "qa pair")
		return
	}
	response.RespondOK(c, view)
}

// GET /api/search/qa_pairs?query=&session_id=&context_id=&limit=&offset=
func (h *QAHandler) Search(c *gin.Context) {
	sessionID, ok := queryUUID(c, "session_id")
	if !ok {
		return
	}
	contextID, ok := queryUUID(c, "context_id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	page, err := h.qa.Search(c.Request.Context(), services.SearchInput{
		Query:     c.Query("query"),
		SessionID: sessionID,
		ContextID: contextID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, page)
}
