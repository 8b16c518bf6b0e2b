package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/syncraft-backend/internal/pkg/ctxutil"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/services"
)

func newAuthRouter(t *testing.T, cfg services.AuthConfig) (*gin.Engine, services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	as, err := services.NewAuthService(logger.Nop(), cfg)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	r := gin.New()
	r.Use(NewAuthMiddleware(logger.Nop(), as).RequireAuth())
	r.GET("/me", func(c *gin.Context) {
		id, _ := ctxutil.CurrentUser(c.Request.Context())
		c.String(http.StatusOK, id.ID)
	})
	return r, as
}

func get(r *gin.Engine, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	r, as := newAuthRouter(t, services.AuthConfig{Secret: "k"})
	tok, err := as.IssueToken("u1", "one", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	if rec := get(r, "/me", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: want=401 got=%d", rec.Code)
	}
	if rec := get(r, "/me", map[string]string{"Authorization": "Bearer nope"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: want=401 got=%d", rec.Code)
	}
	rec := get(r, "/me", map[string]string{"Authorization": "bearer " + tok})
	if rec.Code != http.StatusOK || rec.Body.String() != "u1" {
		t.Fatalf("header token: code=%d body=%q", rec.Code, rec.Body.String())
	}
	rec = get(r, "/me?token="+tok, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "u1" {
		t.Fatalf("query token: code=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestRequireAuthDisabled(t *testing.T) {
	r, _ := newAuthRouter(t, services.AuthConfig{Disabled: true})
	rec := get(r, "/me", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != services.LocalUserID {
		t.Fatalf("disabled auth: code=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestTraceContextEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceContext())
	r.GET("/x", func(c *gin.Context) {
		td := ctxutil.GetTraceData(c.Request.Context())
		c.String(http.StatusOK, td.RequestID)
	})

	rec := get(r, "/x", map[string]string{HeaderRequestID: "req-1", HeaderTraceID: "trace-1"})
	if rec.Body.String() != "req-1" || rec.Header().Get(HeaderRequestID) != "req-1" {
		t.Fatalf("request id: body=%q header=%q", rec.Body.String(), rec.Header().Get(HeaderRequestID))
	}
	if got := rec.Header().Get(HeaderTraceID); got != "trace-1" {
		t.Fatalf("trace id: want=%q got=%q", "trace-1", got)
	}

	rec = get(r, "/x", nil)
	if rec.Header().Get(HeaderRequestID) == "" || rec.Header().Get(HeaderTraceID) != rec.Header().Get(HeaderRequestID) {
		t.Fatalf("generated ids: request=%q trace=%q", rec.Header().Get(HeaderRequestID), rec.Header().Get(HeaderTraceID))
	}
}
