package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/syncraft-backend/internal/http/response"
	"github.com/yungbote/syncraft-backend/internal/pkg/ctxutil"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler { return &UserHandler{} }

// GET /me
func (uh *UserHandler) GetMe(c *gin.Context) {
	me, ok := ctxutil.CurrentUser(c.Request.Context())
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	response.RespondOK(c, me)
}
