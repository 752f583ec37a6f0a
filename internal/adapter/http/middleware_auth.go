package http

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/benefitnav/benefitnav/internal/domain"
	"github.com/benefitnav/benefitnav/internal/service/logger"
	"github.com/benefitnav/benefitnav/internal/service/session"
	"github.com/benefitnav/benefitnav/internal/service/token"
	"github.com/benefitnav/benefitnav/pkg/response"
)

type contextKey string

const authClaimsKey contextKey = "auth_claims"

// AuthMiddleware validates bearer tokens and enforces the sliding session
// inactivity timeout. Every authenticated request counts as activity.
type AuthMiddleware struct {
	tokens   *token.JWTService
	sessions *session.ActivityStore
	logger   logger.Logger
}

// NewAuthMiddleware creates the authentication middleware. The session store
// may be nil, in which case only token validation applies.
func NewAuthMiddleware(tokens *token.JWTService, sessions *session.ActivityStore, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		sessions: sessions,
		logger:   log,
	}
}

// RequireAuth rejects the request unless it carries a valid access token and
// the owner's session has not idled out.
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		if m.sessions != nil {
			expired, err := m.sessions.Touch(r.Context(), claims.UserID)
			if err != nil {
				// Session tracking is advisory; a Redis fault must not lock
				// users out of their own drafts.
				m.logger.Warn(r.Context(), "session activity check failed", map[string]interface{}{
					"user_id": claims.UserID,
					"error":   err.Error(),
				})
			} else if expired {
				response.Unauthorized(w, "Session expired due to inactivity")
				return
			}
		}

		ctx := context.WithValue(r.Context(), authClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// ClaimsFrom retrieves validated token claims from the request context.
func ClaimsFrom(ctx context.Context) *token.Claims {
	if claims, ok := ctx.Value(authClaimsKey).(*token.Claims); ok {
		return claims
	}
	return nil
}

// ownerID returns the authenticated owner, or "" when unauthenticated.
func ownerID(ctx context.Context) string {
	if claims := ClaimsFrom(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

// requestMetadata captures the audit context of one request.
func requestMetadata(r *http.Request) domain.RequestMetadata {
	meta := domain.RequestMetadata{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		Endpoint:  r.URL.Path,
		Method:    r.Method,
	}
	if claims := ClaimsFrom(r.Context()); claims != nil {
		meta.SessionID = claims.SessionID
	}
	return meta
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	// RemoteAddr may be host:port, a bracketed IPv6 host:port, or a bare
	// address depending on the listener.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
