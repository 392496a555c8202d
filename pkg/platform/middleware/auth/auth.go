package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"regulus/pkg/requestcontext"
)

// SessionValidator validates bearer tokens issued by the identity provider.
type SessionValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// TokenRevocationChecker reports whether a token id was revoked before expiry.
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// SessionClaims are the claims the engine needs from a session token.
type SessionClaims struct {
	ActorID   string
	Role      string
	SessionID string
	JTI       string
}

type contextKeyActorID struct{}
type contextKeyRole struct{}
type contextKeySessionID struct{}

var (
	ContextKeyActorID   = contextKeyActorID{}
	ContextKeyRole      = contextKeyRole{}
	ContextKeySessionID = contextKeySessionID{}
)

// GetActorID retrieves the authenticated actor from the context.
func GetActorID(ctx context.Context) string {
	actorID, ok := ctx.Value(ContextKeyActorID).(string)
	if !ok {
		return ""
	}
	return actorID
}

// GetRole retrieves the actor's role from the context.
func GetRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyRole).(string)
	if !ok {
		return ""
	}
	return role
}

// GetSessionID retrieves the session ID from the context.
func GetSessionID(ctx context.Context) string {
	sessionID, ok := ctx.Value(ContextKeySessionID).(string)
	if !ok {
		return ""
	}
	return sessionID
}

// WithSession injects session claims into a context, as RequireAuth does.
func WithSession(ctx context.Context, claims SessionClaims) context.Context {
	ctx = context.WithValue(ctx, ContextKeyActorID, claims.ActorID)
	ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
	return context.WithValue(ctx, ContextKeySessionID, claims.SessionID)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth rejects requests without a valid, unrevoked bearer token and
// stores the session claims in the context. revocationChecker may be nil.
func RequireAuth(validator SessionValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}
			if claims.ActorID == "" || claims.Role == "" || claims.SessionID == "" {
				logger.WarnContext(ctx, "unauthorized access - incomplete session claims",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			if revocationChecker != nil {
				if claims.JTI == "" {
					logger.WarnContext(ctx, "unauthorized access - missing token jti",
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
					return
				}
				revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to validate token")
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"jti", claims.JTI,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Token has been revoked")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithSession(ctx, *claims)))
		})
	}
}
