package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/syncraft-backend/internal/domain/aggregates"
	"github.com/yungbote/syncraft-backend/internal/pkg/apierr"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondNotFound(c *gin.Context, what string) {
	RespondError(c, http.StatusNotFound, "not_found", errors.New(what+" not found"))
}

var statusByCode = map[domainagg.ErrorCode]int{
	domainagg.CodeValidation:         http.StatusBadRequest,
	domainagg.CodeNotFound:           http.StatusNotFound,
	domainagg.CodeInvalidRelation:    http.StatusUnprocessableEntity,
	domainagg.CodeInvalidOperation:   http.StatusConflict,
	domainagg.CodeConflict:           http.StatusConflict,
	domainagg.CodeInvariantViolation: http.StatusConflict,
	domainagg.CodePreconditionFailed: http.StatusPreconditionFailed,
	domainagg.CodeGeneration:         http.StatusBadGateway,
	domainagg.CodeRetryable:          http.StatusServiceUnavailable,
	domainagg.CodeInternal:           http.StatusInternalServerError,
}

// StatusFor maps err to an HTTP status and envelope code.
func StatusFor(err error) (int, string) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae.Status, ae.Code
	}
	if code := domainagg.CodeOf(err); code != "" {
		if status, ok := statusByCode[code]; ok {
			return status, string(code)
		}
	}
	return http.StatusInternalServerError, string(domainagg.CodeInternal)
}

// RespondServiceError writes err in the error envelope. Internal failures are
// logged and their message is not echoed to the client.
func RespondServiceError(c *gin.Context, log *logger.Logger, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("Request failed", "path", c.FullPath(), "code", code, "error", err)
		}
		if code == string(domainagg.CodeInternal) {
			err = errors.New("internal error")
		}
	}
	RespondError(c, status, code, err)
}
