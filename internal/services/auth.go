package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/syncraft-backend/internal/pkg/ctxutil"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
)

const LocalUserID = "local"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type JWTClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	Secret    string
	Issuer    string
	AccessTTL time.Duration
	Disabled  bool
	LocalUser string
	LocalName string
}

// AuthService verifies bearer tokens and puts the caller on the context.
// IssueToken backs the token command; there is no user store.
type AuthService interface {
	IssueToken(userID, username string, ttl time.Duration) (string, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// LocalContext marks ctx as the configured local owner.
	LocalContext(ctx context.Context) context.Context
	Disabled() bool
	GetAccessTTL() time.Duration
}

type authService struct {
	log *logger.Logger
	cfg AuthConfig
}

func NewAuthService(log *logger.Logger, cfg AuthConfig) (AuthService, error) {
	serviceLog := log.With("service", "AuthService")
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 24 * time.Hour
	}
	if strings.TrimSpace(cfg.LocalUser) == "" {
		cfg.LocalUser = LocalUserID
	}
	if strings.TrimSpace(cfg.LocalName) == "" {
		cfg.LocalName = cfg.LocalUser
	}
	if !cfg.Disabled && strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is required unless AUTH_DISABLED=true")
	}
	if cfg.Disabled {
		serviceLog.Warn("Authentication disabled; every request acts as the local user", "user_id", cfg.LocalUser)
	}
	return &authService{log: serviceLog, cfg: cfg}, nil
}

func (as *authService) Disabled() bool              { return as.cfg.Disabled }
func (as *authService) GetAccessTTL() time.Duration { return as.cfg.AccessTTL }

func (as *authService) IssueToken(userID, username string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("missing user id")
	}
	if strings.TrimSpace(as.cfg.Secret) == "" {
		return "", fmt.Errorf("JWT_SECRET is not configured")
	}
	if ttl <= 0 {
		ttl = as.cfg.AccessTTL
	}
	now := time.Now()
	claims := JWTClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    as.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.cfg.Secret))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		if as.cfg.Disabled {
			return as.LocalContext(ctx), nil
		}
		return ctx, ErrMissingToken
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if as.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(as.cfg.Issuer))
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.cfg.Secret), nil
	}, opts...)
	if err != nil {
		if as.cfg.Disabled {
			return as.LocalContext(ctx), nil
		}
		return ctx, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid || strings.TrimSpace(claims.Subject) == "" {
		return ctx, ErrInvalidToken
	}
	rd := &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      claims.Subject,
		Username:    claims.Username,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) LocalContext(ctx context.Context) context.Context {
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		UserID:   as.cfg.LocalUser,
		Username: as.cfg.LocalName,
	})
}
