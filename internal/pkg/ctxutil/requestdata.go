package ctxutil

import (
	"context"
	"strings"
)

type requestDataKey struct{}

// RequestData carries the authenticated caller through a request.
type RequestData struct {
	TokenString string
	UserID      string
	Username    string
}

// Identity is the caller as exposed to API consumers.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(Default(ctx), requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// CurrentUser returns the caller identity, or false when the request is anonymous.
func CurrentUser(ctx context.Context) (Identity, bool) {
	rd := GetRequestData(ctx)
	if rd == nil || strings.TrimSpace(rd.UserID) == "" {
		return Identity{}, false
	}
	return Identity{ID: rd.UserID, Username: rd.Username}, true
}
