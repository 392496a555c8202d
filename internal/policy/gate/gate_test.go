package gate_test

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks CounterStore,DeviceTrust,StepUpProofs,ChallengeIssuer,RiskScorer,AuditAppender

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"regulus/internal/policy/dlp"
	"regulus/internal/policy/gate"
	"regulus/internal/policy/gate/mocks"
	"regulus/internal/policy/metrics"
	"regulus/internal/policy/models"
	"regulus/internal/policy/store/counter"
	"regulus/pkg/domain"
	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
	"regulus/pkg/platform/audit/store/memory"
)

// =============================================================================
// Policy Gate Test Suite
// =============================================================================
// Justification for unit tests: the gate combines independent checks whose
// interaction (ordering, precedence of hard denies over step-up, when quota
// is spent) is only observable with controllable collaborators.

type GateSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	mockDevice *mocks.MockDeviceTrust
	mockProofs *mocks.MockStepUpProofs
	mockIssuer *mocks.MockChallengeIssuer
	mockRisk   *mocks.MockRiskScorer

	registry *dlp.Registry
	counters *counter.InMemoryCounterStore
	store    *memory.InMemoryStore
	trail    *audit.Trail
	logger   *slog.Logger
	t0       time.Time
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockDevice = mocks.NewMockDeviceTrust(s.ctrl)
	s.mockProofs = mocks.NewMockStepUpProofs(s.ctrl)
	s.mockIssuer = mocks.NewMockChallengeIssuer(s.ctrl)
	s.mockRisk = mocks.NewMockRiskScorer(s.ctrl)

	s.registry = dlp.NewRegistry(dlp.Default())
	s.counters = counter.New()
	s.store = memory.NewInMemoryStore()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	var err error
	s.trail, err = audit.New(context.Background(), s.store, audit.WithFlushInterval(time.Hour))
	s.Require().NoError(err)

	// Monday 10:00 UTC, inside every configured time window.
	s.t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
}

func (s *GateSuite) TearDownTest() {
	s.NoError(s.trail.Close(context.Background()))
	s.ctrl.Finish()
}

func (s *GateSuite) newGate(opts ...gate.Option) *gate.Gate {
	opts = append([]gate.Option{
		gate.WithLogger(s.logger),
		gate.WithMetrics(metrics.New(prometheus.NewRegistry())),
	}, opts...)
	g, err := gate.New(s.registry, s.counters, s.trail, opts...)
	s.Require().NoError(err)
	return g
}

func (s *GateSuite) request(actor, role, resource string, action models.Action) models.AccessRequest {
	return models.AccessRequest{
		ActorID:      actor,
		ActorRole:    role,
		ResourceType: resource,
		ResourceID:   "res-1",
		Action:       action,
		OriginIP:     "10.0.0.5",
		Timestamp:    s.t0,
	}
}

func sessionFor(req models.AccessRequest) models.SecurityContext {
	return models.SecurityContext{
		ActorID:   req.ActorID,
		ActorRole: req.ActorRole,
		SessionID: "sess-1",
		OriginIP:  req.OriginIP,
	}
}

func (s *GateSuite) auditEntries() []audit.Entry {
	ctx := context.Background()
	s.Require().NoError(s.trail.Flush(ctx))
	entries, err := s.store.Range(ctx, audit.Query{})
	s.Require().NoError(err)
	return entries
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *GateSuite) TestNew() {
	s.Run("nil policy source returns error", func() {
		_, err := gate.New(nil, s.counters, s.trail)
		s.Error(err)
		s.Contains(err.Error(), "policy source is required")
	})

	s.Run("nil counter store returns error", func() {
		_, err := gate.New(s.registry, nil, s.trail)
		s.Error(err)
		s.Contains(err.Error(), "counter store is required")
	})

	s.Run("nil audit trail returns error", func() {
		_, err := gate.New(s.registry, s.counters, nil)
		s.Error(err)
		s.Contains(err.Error(), "audit trail is required")
	})
}

// =============================================================================
// Role and Context Tests
// =============================================================================

func (s *GateSuite) TestInsufficientRole() {
	g := s.newGate()
	req := s.request("nurse-1", "nurse", "investigation", models.ActionExport)
	req.Justification = "follow-up"

	decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
	s.Require().NoError(err)

	s.False(decision.Allowed)
	s.False(decision.RequiresStepUp, "a hard deny is never offered step-up")
	s.Equal([]string{models.ViolationInsufficientRole}, decision.Violations)
	s.Equal(models.ViolationInsufficientRole, decision.Reason)

	entries := s.auditEntries()
	s.Require().Len(entries, 1)
	s.False(entries[0].Success)
	s.Equal(models.ViolationInsufficientRole, entries[0].Reason)
	s.Equal("nurse-1", entries[0].ActorID)
	s.Equal(audit.ActionAccessExport, entries[0].Action)
	s.Equal("investigation", entries[0].Resource)
}

func (s *GateSuite) TestViolationsAccumulate() {
	g := s.newGate()
	req := s.request("reg-1", "registrar", "investigation", models.ActionView)

	decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
	s.Require().NoError(err)

	s.False(decision.Allowed)
	s.ElementsMatch([]string{models.ViolationInsufficientRole, models.ViolationJustification}, decision.Violations)
	s.Contains(decision.Reason, models.ViolationInsufficientRole)
	s.Contains(decision.Reason, models.ViolationJustification)

	res, err := s.counters.Peek(context.Background(),
		models.CounterKey("reg-1", "investigation", models.CounterViews), 30, time.Hour, s.t0)
	s.Require().NoError(err)
	s.Zero(res.Count, "a denied request must not spend quota")
}

func (s *GateSuite) TestSecurityContext() {
	g := s.newGate()
	ctx := context.Background()

	s.Run("missing session denies", func() {
		req := s.request("reg-1", "registrar", "license", models.ActionView)
		decision, err := g.Evaluate(ctx, req, models.SecurityContext{})
		s.Require().NoError(err)
		s.False(decision.Allowed)
		s.Contains(decision.Violations, models.ViolationContextMismatch)
	})

	s.Run("session for another actor denies", func() {
		req := s.request("reg-1", "registrar", "license", models.ActionView)
		sc := sessionFor(req)
		sc.ActorID = "reg-2"
		decision, err := g.Evaluate(ctx, req, sc)
		s.Require().NoError(err)
		s.Contains(decision.Violations, models.ViolationContextMismatch)
	})

	s.Run("claimed role differing from session role denies", func() {
		req := s.request("reg-1", "admin", "license", models.ActionView)
		sc := sessionFor(req)
		sc.ActorRole = "registrar"
		decision, err := g.Evaluate(ctx, req, sc)
		s.Require().NoError(err)
		s.Contains(decision.Violations, models.ViolationContextMismatch)
	})
}

func (s *GateSuite) TestUnknownResourceTypeDenied() {
	g := s.newGate()
	req := s.request("reg-1", "registrar", "unknown_thing", models.ActionView)

	decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
	s.Require().NoError(err)
	s.False(decision.Allowed)
	s.Equal([]string{models.ViolationNoPolicy}, decision.Violations)
}

func (s *GateSuite) TestMalformedRequestIsNotAudited() {
	g := s.newGate()
	req := s.request("", "registrar", "license", models.ActionView)

	decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
	s.Nil(decision)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Empty(s.auditEntries())
}

// =============================================================================
// DLP Tests
// =============================================================================

func (s *GateSuite) TestHourlyViewLimit() {
	g := s.newGate()
	ctx := context.Background()
	req := s.request("reg-1", "registrar", "practitioner", models.ActionView)
	sc := sessionFor(req)

	for i := 0; i < 50; i++ {
		req.Timestamp = s.t0.Add(time.Duration(i) * time.Second)
		decision, err := g.Evaluate(ctx, req, sc)
		s.Require().NoError(err)
		s.Require().True(decision.Allowed, "view %d", i+1)
		s.Equal([]string{models.ObligationWatermark}, decision.Obligations)
	}

	req.Timestamp = s.t0.Add(50 * time.Second)
	decision, err := g.Evaluate(ctx, req, sc)
	s.Require().NoError(err)
	s.False(decision.Allowed)
	s.Equal([]string{models.ViolationHourlyViews}, decision.Violations)

	req.Timestamp = s.t0.Add(time.Hour + time.Second)
	decision, err = g.Evaluate(ctx, req, sc)
	s.Require().NoError(err)
	s.True(decision.Allowed, "the window rolls from the counter's own start")

	s.Len(s.auditEntries(), 52)
}

func (s *GateSuite) TestPrintSharesViewQuotaAndDownloadSharesExportQuota() {
	g := s.newGate()
	ctx := context.Background()
	req := s.request("reg-1", "registrar", "bulk_report", models.ActionExport)
	sc := sessionFor(req)

	for i := 0; i < 3; i++ {
		decision, err := g.Evaluate(ctx, req, sc)
		s.Require().NoError(err)
		s.Require().True(decision.Allowed)
	}
	req.Action = models.ActionDownload
	decision, err := g.Evaluate(ctx, req, sc)
	s.Require().NoError(err)
	s.Equal([]string{models.ViolationDailyExports}, decision.Violations)

	req.Action = models.ActionPrint
	decision, err = g.Evaluate(ctx, req, sc)
	s.Require().NoError(err)
	s.True(decision.Allowed)
}

func (s *GateSuite) TestJustificationRequired() {
	g := s.newGate()
	req := s.request("insp-1", "inspector", "investigation", models.ActionView)
	req.Justification = "   "

	decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
	s.Require().NoError(err)
	s.Equal([]string{models.ViolationJustification}, decision.Violations)

	req.Justification = "case 2026-114"
	decision, err = g.Evaluate(context.Background(), req, sessionFor(req))
	s.Require().NoError(err)
	s.True(decision.Allowed)
}

func (s *GateSuite) TestTimeWindow() {
	g := s.newGate()
	req := s.request("reg-1", "registrar", "bulk_report", models.ActionView)

	s.Run("saturday is outside the window", func() {
		req.Timestamp = time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
		decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
		s.Require().NoError(err)
		s.Equal([]string{models.ViolationOutsideTimeWindow}, decision.Violations)
	})

	s.Run("weekday night is outside the window", func() {
		req.Timestamp = time.Date(2026, 3, 3, 23, 30, 0, 0, time.UTC)
		decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
		s.Require().NoError(err)
		s.Equal([]string{models.ViolationOutsideTimeWindow}, decision.Violations)
	})

	s.Run("weekday office hours allowed", func() {
		req.Timestamp = s.t0
		decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})
}

func (s *GateSuite) TestPolicyIPRanges() {
	set, err := models.NewPolicySet(2, []models.DLPPolicy{{
		ResourceType:    "license",
		MaxViewsPerHour: 10,
		AllowedIPRanges: []string{"203.0.113.0/24"},
	}}, nil, nil)
	s.Require().NoError(err)
	s.registry.Swap(set)
	g := s.newGate()

	req := s.request("reg-1", "registrar", "license", models.ActionView)
	req.OriginIP = "198.51.100.7"
	decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
	s.Require().NoError(err)
	s.Equal([]string{models.ViolationIPOutsidePolicy}, decision.Violations)

	req.OriginIP = "203.0.113.9"
	decision, err = g.Evaluate(context.Background(), req, sessionFor(req))
	s.Require().NoError(err)
	s.True(decision.Allowed)
}

func (s *GateSuite) TestCounterOutageDenies() {
	mockCounters := mocks.NewMockCounterStore(s.ctrl)
	g, err := gate.New(s.registry, mockCounters, s.trail, gate.WithLogger(s.logger))
	s.Require().NoError(err)

	mockCounters.EXPECT().
		Consume(gomock.Any(), gomock.Any(), 100, time.Hour, s.t0).
		Return(nil, errors.New("redis: connection refused"))

	req := s.request("reg-1", "registrar", "license", models.ActionView)
	decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
	s.Require().NoError(err)
	s.False(decision.Allowed)
	s.Equal([]string{models.ViolationCounterUnavailable}, decision.Violations)
}

// =============================================================================
// IP Allow-list Tests
// =============================================================================

func (s *GateSuite) TestSensitiveRoleNetworks() {
	g := s.newGate()

	s.Run("admin inside its network allowed", func() {
		req := s.request("admin-1", "admin", "license", models.ActionView)
		decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})

	s.Run("inspector outside its network denied", func() {
		req := s.request("insp-1", "inspector", "license", models.ActionView)
		req.OriginIP = "192.168.1.10"
		decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
		s.Require().NoError(err)
		s.Contains(decision.Violations, models.ViolationIPNotAllowed)
	})

	s.Run("unparseable origin denied", func() {
		req := s.request("admin-1", "admin", "license", models.ActionView)
		req.OriginIP = "not-an-ip"
		decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
		s.Require().NoError(err)
		s.Contains(decision.Violations, models.ViolationInvalidOriginIP)
	})

	s.Run("non-sensitive role is not location bound", func() {
		req := s.request("reg-1", "registrar", "license", models.ActionView)
		req.OriginIP = "8.8.8.8"
		decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})
}

func (s *GateSuite) TestSensitiveRoleWithoutNetworksDenied() {
	set, err := models.NewPolicySet(2, []models.DLPPolicy{{ResourceType: "license"}}, []string{"auditor"}, nil)
	s.Require().NoError(err)
	s.registry.Swap(set)
	g := s.newGate()

	req := s.request("aud-1", "auditor", "license", models.ActionView)
	decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
	s.Require().NoError(err)
	s.Equal([]string{models.ViolationIPNotAllowed}, decision.Violations)
}

// =============================================================================
// Step-up Tests
// =============================================================================

func (s *GateSuite) investigationExport() (models.AccessRequest, models.SecurityContext) {
	req := s.request("admin-1", "admin", "investigation", models.ActionExport)
	req.Justification = "court order 17"
	sc := sessionFor(req)
	sc.DeviceFingerprint = "fp-1"
	return req, sc
}

func (s *GateSuite) TestStepUp() {
	ctx := context.Background()
	exportKey := models.CounterKey("admin-1", "investigation", models.CounterExports)

	s.Run("untrusted device requires step-up and issues a challenge", func() {
		g := s.newGate(gate.WithDeviceTrust(s.mockDevice), gate.WithChallengeIssuer(s.mockIssuer))
		req, sc := s.investigationExport()

		s.mockDevice.EXPECT().ValidateFingerprint(gomock.Any(), "admin-1", "fp-1").
			Return(gate.DeviceAssessment{Trusted: false, RequiresMFA: true}, nil)
		s.mockIssuer.EXPECT().IssueStepUp(gomock.Any(), "admin-1").Return("ch-1", nil)

		decision, err := g.Evaluate(ctx, req, sc)
		s.Require().NoError(err)
		s.False(decision.Allowed)
		s.True(decision.RequiresStepUp)
		s.Empty(decision.Violations)
		s.Equal("ch-1", decision.ChallengeID)
		s.Equal(models.ReasonStepUpRequired, decision.Reason)

		res, err := s.counters.Peek(ctx, exportKey, 2, 24*time.Hour, s.t0)
		s.Require().NoError(err)
		s.Zero(res.Count, "step-up does not spend quota")
	})

	s.Run("trusted low-risk device passes without proof", func() {
		g := s.newGate(gate.WithDeviceTrust(s.mockDevice))
		req, sc := s.investigationExport()

		s.mockDevice.EXPECT().ValidateFingerprint(gomock.Any(), "admin-1", "fp-1").
			Return(gate.DeviceAssessment{Trusted: true, RiskScore: 2}, nil)

		decision, err := g.Evaluate(ctx, req, sc)
		s.Require().NoError(err)
		s.True(decision.Allowed)
		s.Equal([]string{models.ObligationWatermark}, decision.Obligations)
	})

	s.Run("trusted device above risk threshold requires step-up", func() {
		g := s.newGate(gate.WithDeviceTrust(s.mockDevice))
		req, sc := s.investigationExport()

		s.mockDevice.EXPECT().ValidateFingerprint(gomock.Any(), "admin-1", "fp-1").
			Return(gate.DeviceAssessment{Trusted: true, RiskScore: 7}, nil)

		decision, err := g.Evaluate(ctx, req, sc)
		s.Require().NoError(err)
		s.True(decision.RequiresStepUp)
	})

	s.Run("valid proof is redeemed and allows", func() {
		g := s.newGate(gate.WithDeviceTrust(s.mockDevice), gate.WithStepUpProofs(s.mockProofs))
		req, sc := s.investigationExport()
		sc.StepUpProof = "proof-token"
		claims := &gate.StepUpClaims{ID: "p-1", ActorID: "admin-1", ExpiresAt: s.t0.Add(time.Minute)}

		gomock.InOrder(
			s.mockDevice.EXPECT().ValidateFingerprint(gomock.Any(), "admin-1", "fp-1").
				Return(gate.DeviceAssessment{}, nil),
			s.mockProofs.EXPECT().ValidateProof(gomock.Any(), "proof-token", "admin-1").Return(claims, nil),
			s.mockProofs.EXPECT().RedeemProof(gomock.Any(), claims).Return(nil),
		)

		decision, err := g.Evaluate(ctx, req, sc)
		s.Require().NoError(err)
		s.True(decision.Allowed)
		s.False(decision.RequiresStepUp)
	})

	s.Run("replayed proof requires step-up again", func() {
		g := s.newGate(gate.WithStepUpProofs(s.mockProofs))
		req, sc := s.investigationExport()
		sc.StepUpProof = "proof-token"
		claims := &gate.StepUpClaims{ID: "p-1", ActorID: "admin-1"}

		s.mockProofs.EXPECT().ValidateProof(gomock.Any(), "proof-token", "admin-1").Return(claims, nil)
		s.mockProofs.EXPECT().RedeemProof(gomock.Any(), claims).Return(errors.New("proof already used"))

		decision, err := g.Evaluate(ctx, req, sc)
		s.Require().NoError(err)
		s.False(decision.Allowed)
		s.True(decision.RequiresStepUp)
	})

	s.Run("hard deny wins over step-up and keeps the proof", func() {
		g := s.newGate(gate.WithStepUpProofs(s.mockProofs), gate.WithChallengeIssuer(s.mockIssuer))
		req, sc := s.investigationExport()
		req.OriginIP = "8.8.8.8"
		sc.OriginIP = "8.8.8.8"

		decision, err := g.Evaluate(ctx, req, sc)
		s.Require().NoError(err)
		s.False(decision.Allowed)
		s.False(decision.RequiresStepUp)
		s.Equal([]string{models.ViolationIPNotAllowed}, decision.Violations)
	})

	s.Run("view on the same resource needs no step-up", func() {
		g := s.newGate()
		req, sc := s.investigationExport()
		req.Action = models.ActionView

		decision, err := g.Evaluate(ctx, req, sc)
		s.Require().NoError(err)
		s.True(decision.Allowed)
	})
}

// =============================================================================
// Throttle Tests
// =============================================================================

func (s *GateSuite) TestThrottle() {
	g := s.newGate(gate.WithRiskScorer(s.mockRisk))
	ctx := context.Background()
	req := s.request("reg-1", "registrar", "license", models.ActionView)

	s.Run("score scales to milliseconds on allow", func() {
		s.mockRisk.EXPECT().Score(gomock.Any(), "reg-1", gomock.Any()).
			Return(domain.RiskAssessment{Score: 3.5}, nil)
		decision, err := g.Evaluate(ctx, req, sessionFor(req))
		s.Require().NoError(err)
		s.True(decision.Allowed)
		s.Equal(3500, decision.ThrottleMillis)
		s.Equal(3500*time.Millisecond, decision.Throttle())
	})

	s.Run("throttle is capped", func() {
		s.mockRisk.EXPECT().Score(gomock.Any(), "reg-1", gomock.Any()).
			Return(domain.RiskAssessment{Score: 42, Suspicious: true}, nil)
		decision, err := g.Evaluate(ctx, req, sessionFor(req))
		s.Require().NoError(err)
		s.Equal(10000, decision.ThrottleMillis)
	})

	s.Run("throttle applies to denials too", func() {
		denied := s.request("nurse-1", "nurse", "license", models.ActionView)
		s.mockRisk.EXPECT().Score(gomock.Any(), "nurse-1", gomock.Any()).
			Return(domain.RiskAssessment{Score: 1}, nil)
		decision, err := g.Evaluate(ctx, denied, sessionFor(denied))
		s.Require().NoError(err)
		s.False(decision.Allowed)
		s.Equal(1000, decision.ThrottleMillis)
	})

	s.Run("scorer outage means no throttle", func() {
		s.mockRisk.EXPECT().Score(gomock.Any(), "reg-1", gomock.Any()).
			Return(domain.RiskAssessment{}, errors.New("timeout"))
		decision, err := g.Evaluate(ctx, req, sessionFor(req))
		s.Require().NoError(err)
		s.True(decision.Allowed)
		s.Zero(decision.ThrottleMillis)
	})
}

// =============================================================================
// Audit Tests
// =============================================================================

func (s *GateSuite) TestCriticalAuditFailureFailsClosed() {
	mockAudit := mocks.NewMockAuditAppender(s.ctrl)
	g, err := gate.New(s.registry, s.counters, mockAudit, gate.WithLogger(s.logger))
	s.Require().NoError(err)

	mockAudit.EXPECT().Append(gomock.Any(), gomock.Any()).
		Return(audit.Entry{}, dErrors.New(dErrors.CodeUnavailable, "audit persistence failed"))

	req := s.request("reg-1", "registrar", "license", models.ActionExport)
	decision, err := g.Evaluate(context.Background(), req, sessionFor(req))
	s.Nil(decision)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *GateSuite) TestOneAuditEntryPerEvaluation() {
	g := s.newGate()
	ctx := context.Background()

	allowed := s.request("reg-1", "registrar", "license", models.ActionView)
	denied := s.request("nurse-1", "nurse", "license", models.ActionExport)
	for _, req := range []models.AccessRequest{allowed, denied, allowed} {
		_, err := g.Evaluate(ctx, req, sessionFor(req))
		s.Require().NoError(err)
	}

	entries := s.auditEntries()
	s.Require().Len(entries, 3)
	s.True(entries[0].Success)
	s.False(entries[1].Success)
	s.True(entries[2].Success)
	s.NoError(audit.VerifyAnchored(audit.GenesisHash, entries))
}

func (s *GateSuite) TestWorkflowOperations() {
	g := s.newGate()
	ctx := context.Background()

	start := s.request("reg-1", "registrar", "workflow:investigation", models.ActionStart)
	decision, err := g.Evaluate(ctx, start, sessionFor(start))
	s.Require().NoError(err)
	s.True(decision.Allowed)

	advance := s.request("nurse-1", "practitioner", "workflow:investigation", models.ActionAdvance)
	decision, err = g.Evaluate(ctx, advance, sessionFor(advance))
	s.Require().NoError(err)
	s.False(decision.Allowed)
	s.Equal([]string{models.ViolationInsufficientRole}, decision.Violations)

	entries := s.auditEntries()
	s.Require().Len(entries, 2)
	s.Equal(audit.ActionAccessStart, entries[0].Action)
	s.Equal(audit.ActionAccessAdvance, entries[1].Action)
	s.Equal("workflow:investigation", entries[1].Resource)
	s.False(entries[1].Success)
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func (s *GateSuite) TestConcurrentViewsNeverExceedQuota() {
	g := s.newGate()
	ctx := context.Background()
	req := s.request("reg-1", "registrar", "practitioner", models.ActionView)
	sc := sessionFor(req)

	const workers = 200
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := g.Evaluate(ctx, req, sc)
			s.NoError(err)
			if err == nil && decision.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(50, allowed)
	s.Len(s.auditEntries(), workers)
}
