package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	zlog "github.com/rs/zerolog/log"

	appCtx "github.com/baechuer/real-time-ressys/services/ewm-service/internal/pkg/context"
	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/response"
)

const RoleAdmin = "admin"

type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Ver    int64  `json:"ver"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller.
type Actor struct {
	UserID int64
	Role   string
}

type actorKey struct{}

type AuthMiddleware struct {
	secret []byte
	issuer string
}

func NewAuth(secret, issuer string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), issuer: issuer}
}

// Require rejects requests without a valid HS256 bearer token.
func (a *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.parse(r)
		if err != nil {
			zlog.Debug().Err(err).Str("request_id", appCtx.GetRequestID(r.Context())).Msg("auth rejected")
			response.Fail(w, http.StatusUnauthorized, "unauthorized", "unauthorized",
				map[string]string{"reason": err.Error()}, appCtx.GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// AdminOnly must run after Require.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok || actor.Role != RoleAdmin {
			response.Fail(w, http.StatusForbidden, "forbidden", "admin role required", nil,
				appCtx.GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *AuthMiddleware) parse(r *http.Request) (Actor, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(h, "Bearer ") {
		return Actor{}, errors.New("missing bearer token")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithLeeway(30*time.Second))
	if err != nil {
		return Actor{}, err
	}
	if !tok.Valid {
		return Actor{}, errors.New("invalid token")
	}
	if a.issuer != "" && claims.Issuer != a.issuer {
		return Actor{}, errors.New("invalid issuer")
	}

	uid, err := strconv.ParseInt(strings.TrimSpace(claims.UserID), 10, 64)
	if err != nil || uid <= 0 {
		return Actor{}, errors.New("invalid uid")
	}
	role := strings.TrimSpace(claims.Role)
	if role == "" {
		role = "user"
	}
	return Actor{UserID: uid, Role: role}, nil
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// UserID returns the authenticated user id, or 0 outside Require.
func UserID(r *http.Request) int64 {
	a, _ := ActorFrom(r.Context())
	return a.UserID
}
