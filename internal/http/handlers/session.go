package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/syncraft-backend/internal/http/response"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/services"
)

type SessionHandler struct {
	log      *logger.Logger
	sessions services.SessionService
	contexts services.ContextService
}

func NewSessionHandler(log *logger.Logger, sessions services.SessionService, contexts services.ContextService) *SessionHandler {
	return &SessionHandler{
		log:      log.With("handler", "SessionHandler"),
		sessions: sessions,
		contexts: contexts,
	}
}

// POST /api/sessions
// body: { "name": "..." }
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req services.CreateSessionInput
	if !bindJSON(c, &req) {
		return
	}
	bundle, err := h.sessions.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondCreated(c, bundle)
}

// GET /api/sessions?limit=&offset=&sort_by=&sort_order=
func (h *SessionHandler) ListSessions(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	page, err := h.sessions.List(c.Request.Context(), services.ListSessionsInput{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	})
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if detail == nil {
		response.RespondNotFound(c, "session")
		return
	}
	response.RespondOK(c, detail)
}

// PUT /api/sessions/:id
// body: { "name": "..." }
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateSessionInput
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.sessions.Update(c.Request.Context(), id, req)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if sess == nil {
		response.RespondNotFound(c, "session")
		return
	}
	response.RespondOK(c, sess)
}

// DELETE /api/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.sessions.Delete(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if !deleted {
		response.RespondNotFound(c, "session")
		return
	}
	response.RespondOK(c, successResponse{Success: true, Message: "session deleted"})
}

// GET /api/sessions/:id/main_context
func (h *SessionHandler) GetMainContext(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	row, err := h.sessions.PrimaryContext(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if row == nil {
		response.RespondNotFound(c, "main context")
		return
	}
	response.RespondOK(c, row)
}

// GET /api/sessions/:id/tree?include_qa=
func (h *SessionHandler) GetTree(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	tree, err := h.sessions.Tree(c.Request.Context(), id, queryBool(c, "include_qa", false))
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	if tree == nil {
		response.RespondNotFound(c, "session")
		return
	}
	response.RespondOK(c, tree)
}

// GET /api/sessions/:id/contexts
func (h *SessionHandler) ListContexts(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	contexts, err := h.contexts.ListSessionContexts(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, h.log, err)
		return
	}
	response.RespondOK(c, items(contexts))
}
