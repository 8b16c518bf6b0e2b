package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/syncraft-backend/internal/data/repos"
	types "github.com/yungbote/syncraft-backend/internal/domain"
	"github.com/yungbote/syncraft-backend/internal/pkg/ctxutil"
	"github.com/yungbote/syncraft-backend/internal/pkg/dbctx"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/platform/cache"
)

const (
	sessionCacheTTL        = 60 * time.Second
	sessionListCacheTTL    = 60 * time.Second
	primaryContextCacheTTL = 300 * time.Second
)

func sessionCacheKey(id uuid.UUID) string        { return "session:" + id.String() }
func primaryContextCacheKey(id uuid.UUID) string { return "primary_context:" + id.String() }
func sessionListCachePrefix(userID string) string {
	return "sessions:" + userID + ":"
}

func sessionListCacheKey(q repos.SessionListQuery) string {
	return fmt.Sprintf("%s%d:%d:%s:%s",
		sessionListCachePrefix(q.UserID),
		q.Limit,
		q.Offset,
		strings.ToLower(q.SortBy),
		strings.ToLower(q.SortOrder),
	)
}

// sessionScope is shared by every service that reads through a session: it
// hides sessions owned by someone else and drops cached reads after writes.
type sessionScope struct {
	sessions repos.SessionRepo
	cache    cache.Cache
	log      *logger.Logger
}

func newSessionScope(sessions repos.SessionRepo, c cache.Cache, log *logger.Logger) sessionScope {
	if c == nil {
		c = cache.Noop{}
	}
	return sessionScope{sessions: sessions, cache: c, log: log}
}

// visibleTo reports whether the caller may see a session owned by owner.
// Calls without an identity come from inside the process and see everything.
func visibleTo(ctx context.Context, owner string) bool {
	id, ok := ctxutil.CurrentUser(ctx)
	return !ok || id.ID == owner
}

// owned returns the session, or nil when it is missing or not the caller's.
func (s sessionScope) owned(ctx context.Context, sessionID uuid.UUID) (*types.Session, error) {
	sess, err := s.sessions.GetByID(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil || sess == nil {
		return nil, err
	}
	if !visibleTo(ctx, sess.UserID) {
		return nil, nil
	}
	return sess, nil
}

// invalidate drops the session's detail and primary-context entries and
// every cached list page of its owner. Cache failures are logged only.
func (s sessionScope) invalidate(ctx context.Context, sessionID uuid.UUID, owner string) {
	if err := s.cache.Delete(ctx, sessionCacheKey(sessionID), primaryContextCacheKey(sessionID)); err != nil {
		s.log.Warn("Cache invalidation failed", "session_id", sessionID, "error", err)
	}
	if strings.TrimSpace(owner) == "" {
		return
	}
	if err := s.cache.DeletePrefix(ctx, sessionListCachePrefix(owner)); err != nil {
		s.log.Warn("Cache list invalidation failed", "user_id", owner, "error", err)
	}
}

// invalidateByID looks the owner up before invalidating.
func (s sessionScope) invalidateByID(ctx context.Context, sessionID uuid.UUID) {
	owner := ""
	if sess, err := s.sessions.GetByID(dbctx.Context{Ctx: ctx}, sessionID); err == nil && sess != nil {
		owner = sess.UserID
	}
	s.invalidate(ctx, sessionID, owner)
}
