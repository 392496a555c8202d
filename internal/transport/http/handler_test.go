package httptransport

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	challengeModels "regulus/internal/challenge/models"
	"regulus/internal/engine"
	policyModels "regulus/internal/policy/models"
	"regulus/internal/transport/http/mocks"
	"regulus/internal/workflow"
	wfModels "regulus/internal/workflow/models"
	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
	"regulus/pkg/platform/middleware/auth"
	"regulus/pkg/testutil"
)

// =============================================================================
// Handler Test Suite
// =============================================================================
// Justification for unit tests: requests go through the real router so the
// security context assembled from middleware, the status mapping of
// decisions and the optional advance body are checked together.

type staticSessions map[string]auth.SessionClaims

func (s staticSessions) ValidateToken(token string) (*auth.SessionClaims, error) {
	claims, ok := s[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &claims, nil
}

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
	dbErr   error
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = NewRouter(New(s.service, logger), RouterConfig{
		Sessions: staticSessions{
			"registrar-token": {ActorID: "registrar-1", Role: "registrar", SessionID: "sess-1"},
			"admin-token":     {ActorID: "admin-1", Role: policyModels.RoleAdmin, SessionID: "sess-2"},
		},
		Metrics:  http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
		OpsToken: "ops",
		Checks: map[string]HealthCheck{
			"database": func(context.Context) error { return s.dbErr },
		},
		Logger: logger,
	})
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	return *testutil.UnmarshalResponse[map[string]any](s.T(), w)
}

func (s *HandlerSuite) TestEvaluate() {
	s.Run("security context comes from the session and request metadata", func() {
		s.service.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req policyModels.AccessRequest, sc policyModels.SecurityContext) (*policyModels.Decision, error) {
				s.Equal("registrar-1", req.ActorID)
				s.Equal("registrar", req.ActorRole)
				s.Equal("203.0.113.9", req.OriginIP)
				s.Equal(policyModels.ActionExport, req.Action)
				s.False(req.Timestamp.IsZero())
				s.Equal("sess-1", sc.SessionID)
				s.Equal("fp-123", sc.DeviceFingerprint)
				s.Equal("proof-abc", sc.StepUpProof)
				s.NotEmpty(sc.RequestID)
				return &policyModels.Decision{Allowed: true, Reason: policyModels.ReasonAllowed, Obligations: []string{policyModels.ObligationWatermark}}, nil
			})

		w := s.do(http.MethodPost, "/v1/access/evaluate", "registrar-token",
			EvaluateRequest{ResourceType: "license_record", ResourceID: "LIC-1", Action: "export", Justification: "board review"},
			"X-Forwarded-For", "203.0.113.9, 10.0.0.1",
			"X-Device-Fingerprint", "fp-123",
			HeaderStepUpProof, "proof-abc",
		)
		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.Equal(true, body["allowed"])
		s.Equal([]any{"watermark"}, body["obligations"])
	})

	s.Run("denial is a 403 carrying the decision", func() {
		s.service.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&policyModels.Decision{Violations: []string{policyModels.ViolationHourlyViews}, Reason: policyModels.ViolationHourlyViews}, nil)

		w := s.do(http.MethodPost, "/v1/access/evaluate", "registrar-token",
			EvaluateRequest{ResourceType: "license_record", ResourceID: "LIC-1", Action: "view"})
		s.Equal(http.StatusForbidden, w.Code)
		body := s.decode(w)
		s.Equal(false, body["allowed"])
		s.Equal([]any{policyModels.ViolationHourlyViews}, body["violations"])
	})

	s.Run("missing bearer token never reaches the service", func() {
		w := s.do(http.MethodPost, "/v1/access/evaluate", "",
			EvaluateRequest{ResourceType: "license_record", ResourceID: "LIC-1", Action: "view"})
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("unknown action is rejected", func() {
		w := s.do(http.MethodPost, "/v1/access/evaluate", "registrar-token",
			EvaluateRequest{ResourceType: "license_record", ResourceID: "LIC-1", Action: "delete"})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal(string(dErrors.CodeValidation), s.decode(w)["error"])
	})

	s.Run("workflow operations are not evaluated directly", func() {
		w := s.do(http.MethodPost, "/v1/access/evaluate", "registrar-token",
			EvaluateRequest{ResourceType: "workflow:investigation", ResourceID: "wf-1", Action: "advance"})
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestChallenges() {
	s.Run("initiate returns the challenge without the code", func() {
		s.service.EXPECT().InitiateChallenge(gomock.Any(), gomock.Any(), challengeModels.MethodTOTP).
			Return(&challengeModels.Challenge{ID: "ch-1", Method: challengeModels.MethodTOTP, CodeHash: "$2a$secret", MaxAttempts: 3}, nil)

		w := s.do(http.MethodPost, "/v1/challenges", "registrar-token", InitiateChallengeRequest{Method: "totp"})
		s.Equal(http.StatusCreated, w.Code)
		s.NotContains(w.Body.String(), "secret")
		s.Equal("ch-1", s.decode(w)["challenge_id"])
	})

	s.Run("wrong code is a 401 with remaining attempts", func() {
		s.service.EXPECT().VerifyChallenge(gomock.Any(), "ch-1", "000000").
			Return(&challengeModels.VerifyResult{Reason: challengeModels.ReasonInvalidOrExpired, RemainingAttempts: 2}, nil)

		w := s.do(http.MethodPost, "/v1/challenges/ch-1/verify", "registrar-token", VerifyChallengeRequest{Code: "000000"})
		s.Equal(http.StatusUnauthorized, w.Code)
		s.Equal(float64(2), s.decode(w)["remaining_attempts"])
	})

	s.Run("device trust change surfaces forbidden", func() {
		s.service.EXPECT().TrustDevice(gomock.Any(), gomock.Any(), "nurse-1", "fp-9").
			Return(nil, dErrors.New(dErrors.CodeForbidden, "device trust changes require the admin role"))

		w := s.do(http.MethodPost, "/v1/devices/trust", "registrar-token", DeviceTrustRequest{ActorID: "nurse-1", Fingerprint: "fp-9"})
		s.Equal(http.StatusForbidden, w.Code)
	})
}

func (s *HandlerSuite) TestAdvanceWorkflow() {
	s.Run("empty body advances without input", func() {
		s.service.EXPECT().AdvanceWorkflow(gomock.Any(), "wf-1", wfModels.Metadata(nil), gomock.Any()).
			Return(&wfModels.Instance{ID: "wf-1", Type: wfModels.TypeRenewal, Status: wfModels.StatusInProgress, CurrentStepIndex: 1, TotalSteps: 4}, nil)

		w := s.do(http.MethodPost, "/v1/workflows/wf-1/advance", "registrar-token", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Equal(float64(1), s.decode(w)["current_step_index"])
	})

	s.Run("input is passed through", func() {
		s.service.EXPECT().AdvanceWorkflow(gomock.Any(), "wf-1", wfModels.Metadata{"decision": "approved"}, gomock.Any()).
			Return(&wfModels.Instance{ID: "wf-1", Status: wfModels.StatusInProgress}, nil)

		w := s.do(http.MethodPost, "/v1/workflows/wf-1/advance", "registrar-token",
			AdvanceWorkflowRequest{Input: wfModels.Metadata{"decision": "approved"}})
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("failed step returns the instance with its failure reason", func() {
		failed := &wfModels.Instance{ID: "wf-1", Status: wfModels.StatusFailed, Metadata: wfModels.Metadata{wfModels.MetaFailureReason: "payment declined: card expired"}}
		s.service.EXPECT().AdvanceWorkflow(gomock.Any(), "wf-1", gomock.Any(), gomock.Any()).
			Return(failed, dErrors.New(dErrors.CodeStepFailed, "payment declined: card expired"))

		w := s.do(http.MethodPost, "/v1/workflows/wf-1/advance", "registrar-token", nil)
		s.Equal(http.StatusUnprocessableEntity, w.Code)
		body := s.decode(w)
		s.Equal(string(dErrors.CodeStepFailed), body["error"])
		s.Equal("failed", body["workflow"].(map[string]any)["status"])
	})
}

func (s *HandlerSuite) TestWorkflowLifecycleRoutes() {
	s.Run("start", func() {
		s.service.EXPECT().StartWorkflow(gomock.Any(), wfModels.TypeRenewal, wfModels.Metadata{"registrationNumber": "MD-12345"}, gomock.Any()).
			Return(&wfModels.Instance{ID: "wf-2", Type: wfModels.TypeRenewal, Status: wfModels.StatusInitiated}, nil)

		w := s.do(http.MethodPost, "/v1/workflows", "registrar-token",
			StartWorkflowRequest{Type: "renewal", Payload: wfModels.Metadata{"registrationNumber": "MD-12345"}})
		s.Equal(http.StatusCreated, w.Code)
		s.Equal("wf-2", s.decode(w)["workflow_id"])
	})

	s.Run("retry forwards the repeat-charge acknowledgement", func() {
		s.service.EXPECT().RetryWorkflow(gomock.Any(), "wf-2", workflow.RetryOptions{AllowRepeatCharge: true, Reason: "new card"}, gomock.Any()).
			Return(&wfModels.Instance{ID: "wf-2", Status: wfModels.StatusInProgress}, nil)

		w := s.do(http.MethodPost, "/v1/workflows/wf-2/retry", "registrar-token",
			RetryWorkflowRequest{AllowRepeatCharge: true, Reason: "new card"})
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("cancel requires a reason", func() {
		w := s.do(http.MethodPost, "/v1/workflows/wf-2/cancel", "registrar-token", CancelWorkflowRequest{})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("list parses filters", func() {
		s.service.EXPECT().ListWorkflows(gomock.Any(), wfModels.ListFilter{Status: wfModels.StatusFailed, Limit: 10}, gomock.Any()).
			Return([]*wfModels.Instance{{ID: "wf-2"}}, nil)

		w := s.do(http.MethodGet, "/v1/workflows?status=failed&limit=10", "registrar-token", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Equal(float64(1), s.decode(w)["count"])
	})

	s.Run("list rejects a bad limit", func() {
		w := s.do(http.MethodGet, "/v1/workflows?limit=9999", "registrar-token", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("unknown workflow is a 404", func() {
		s.service.EXPECT().GetWorkflow(gomock.Any(), "nope", gomock.Any()).Return(nil, dErrors.New(dErrors.CodeNotFound, "workflow not found"))

		w := s.do(http.MethodGet, "/v1/workflows/nope", "registrar-token", nil)
		s.Equal(http.StatusNotFound, w.Code)
	})
}

func (s *HandlerSuite) TestAudit() {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	s.Run("denied export carries the decision", func() {
		s.service.EXPECT().ExportAudit(gomock.Any(), gomock.Any(), gomock.Any()).Return(
			&engine.ExportResult{Decision: &policyModels.Decision{Reason: policyModels.ViolationDailyExports, Violations: []string{policyModels.ViolationDailyExports}}},
			dErrors.New(dErrors.CodeForbidden, policyModels.ViolationDailyExports),
		)

		w := s.do(http.MethodPost, "/v1/audit/export", "admin-token", ExportAuditRequest{Start: start, Justification: "review"})
		s.Equal(http.StatusForbidden, w.Code)
		body := s.decode(w)
		s.Equal(string(dErrors.CodeForbidden), body["error"])
		s.Equal(policyModels.ViolationDailyExports, body["decision"].(map[string]any)["reason"])
	})

	s.Run("allowed export returns entries", func() {
		s.service.EXPECT().ExportAudit(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req engine.ExportRequest, _ policyModels.SecurityContext) (*engine.ExportResult, error) {
				s.Equal("registrar-1", req.Filter.ActorID)
				return &engine.ExportResult{
					Entries:  []audit.Entry{{Sequence: 1}, {Sequence: 2}},
					Decision: &policyModels.Decision{Allowed: true},
				}, nil
			})

		w := s.do(http.MethodPost, "/v1/audit/export", "admin-token",
			ExportAuditRequest{Start: start, Justification: "review", ActorID: "registrar-1"})
		s.Equal(http.StatusOK, w.Code)
		s.Equal(float64(2), s.decode(w)["count"])
	})

	s.Run("end before start is rejected", func() {
		w := s.do(http.MethodPost, "/v1/audit/export", "admin-token",
			ExportAuditRequest{Start: start, End: start.Add(-time.Hour)})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("broken chain is a 409", func() {
		s.service.EXPECT().VerifyAudit(gomock.Any(), gomock.Any()).
			Return(12, dErrors.Wrap(fmt.Errorf("%w: entry 12", audit.ErrChainBroken), dErrors.CodeIntegrity, "audit chain verification failed"))

		w := s.do(http.MethodGet, "/v1/audit/verify", "admin-token", nil)
		s.Equal(http.StatusConflict, w.Code)
		body := s.decode(w)
		s.Equal(false, body["valid"])
		s.Equal(audit.ErrChainBroken.Error(), body["error"])
	})
}

func (s *HandlerSuite) TestOperationalRoutes() {
	w := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("ok", s.decode(w)["status"])

	s.dbErr = errors.New("dial tcp 10.0.0.3:5432: connection refused")
	w = s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
	body := s.decode(w)
	s.Equal("degraded", body["status"])
	s.Equal(map[string]any{"database": "unavailable"}, body["failed"])
	s.NotContains(w.Body.String(), "10.0.0.3")
	s.dbErr = nil

	w = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/metrics", "", nil, "X-Ops-Token", "ops")
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestHandlersOutsideTheRouter() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(s.service, logger).Register(r)

	s.Run("session attached by an outer layer is honoured", func() {
		s.service.EXPECT().Evaluate(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req policyModels.AccessRequest, sc policyModels.SecurityContext) (*policyModels.Decision, error) {
				s.Equal("inspector-4", sc.ActorID)
				s.Equal("inspector", req.ActorRole)
				s.Empty(sc.DeviceFingerprint)
				return &policyModels.Decision{Allowed: true, Reason: policyModels.ReasonAllowed}, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/access/evaluate",
			EvaluateRequest{ResourceType: "case_file", ResourceID: "CASE-9", Action: "view"})
		w := testutil.DoRequest(r, testutil.WithSession(req, "inspector-4", "inspector", "sess-9"))
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("no session is unauthorized", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/challenges", InitiateChallengeRequest{})
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(r, req), http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}
