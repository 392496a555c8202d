package admin

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"regulus/pkg/testutil"
)

func TestRequireOpsToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	testutil.Given(t, "a metrics endpoint guarded by an ops token", func(t *testing.T) {
		h := RequireOpsToken("s3cret", logger)(next)

		testutil.When(t, "the caller presents the token", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil)
			req.Header.Set(HeaderOpsToken, "s3cret")

			testutil.Then(t, "the request passes through", func(t *testing.T) {
				assert.Equal(t, http.StatusNoContent, testutil.DoRequest(h, req).Code)
			})
		})

		for name, token := range map[string]string{"a wrong token": "guess", "no token": ""} {
			testutil.When(t, "the caller presents "+name, func(t *testing.T) {
				req := testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil)
				if token != "" {
					req.Header.Set(HeaderOpsToken, token)
				}

				testutil.Then(t, "the request is rejected as unauthorized", func(t *testing.T) {
					testutil.AssertStatusAndError(t, testutil.DoRequest(h, req), http.StatusUnauthorized, "unauthorized")
				})
			})
		}
	})
}
