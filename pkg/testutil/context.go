package testutil

import (
	"net/http"

	"regulus/pkg/platform/middleware/auth"
)

// WithSession attaches an authenticated session to req, as RequireAuth does
// after validating a bearer token.
func WithSession(req *http.Request, actorID, role, sessionID string) *http.Request {
	return req.WithContext(auth.WithSession(req.Context(), auth.SessionClaims{
		ActorID:   actorID,
		Role:      role,
		SessionID: sessionID,
	}))
}
