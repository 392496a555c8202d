package device

import (
	"context"
	"net/http"
	"strings"
)

// HeaderFingerprint carries the client-computed device fingerprint.
const HeaderFingerprint = "X-Device-Fingerprint"

const maxFingerprintLen = 256

type contextKeyDeviceFingerprint struct{}

// Fingerprint copies the device fingerprint header into the context.
// Oversized values are dropped, leaving the device unknown.
func Fingerprint(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp := strings.TrimSpace(r.Header.Get(HeaderFingerprint))
		if len(fp) > maxFingerprintLen {
			fp = ""
		}
		next.ServeHTTP(w, r.WithContext(WithDeviceFingerprint(r.Context(), fp)))
	})
}

// GetDeviceFingerprint retrieves the device fingerprint from the context.
func GetDeviceFingerprint(ctx context.Context) string {
	if fp, ok := ctx.Value(contextKeyDeviceFingerprint{}).(string); ok {
		return fp
	}
	return ""
}

// WithDeviceFingerprint injects a device fingerprint into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithDeviceFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, contextKeyDeviceFingerprint{}, fingerprint)
}
