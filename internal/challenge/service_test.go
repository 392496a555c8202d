package challenge

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks CodeSender,FactorDirectory,RiskScorer,AuditAppender

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"regulus/internal/challenge/metrics"
	"regulus/internal/challenge/mocks"
	"regulus/internal/challenge/models"
	"regulus/internal/challenge/store/memory"
	"regulus/pkg/domain"
	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
	"regulus/pkg/requestcontext"
)

// =============================================================================
// Challenge Service Test Suite
// =============================================================================
// Justification for unit tests: the challenge state machine (attempt
// counting, expiry, single-use success) and proof redemption are invariants
// that must hold regardless of transport.

type ChallengeServiceSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockSender  *mocks.MockCodeSender
	mockFactors *mocks.MockFactorDirectory
	mockScorer  *mocks.MockRiskScorer
	mockAudit   *mocks.MockAuditAppender

	challenges *memory.ChallengeStore
	devices    *memory.DeviceStore
	proofs     *memory.ProofStore
	service    *Service

	mu    sync.Mutex
	codes map[string]string
	t0    time.Time
}

func TestChallengeServiceSuite(t *testing.T) {
	suite.Run(t, new(ChallengeServiceSuite))
}

func (s *ChallengeServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockSender = mocks.NewMockCodeSender(s.ctrl)
	s.mockFactors = mocks.NewMockFactorDirectory(s.ctrl)
	s.mockScorer = mocks.NewMockRiskScorer(s.ctrl)
	s.mockAudit = mocks.NewMockAuditAppender(s.ctrl)

	s.challenges = memory.NewChallengeStore()
	s.devices = memory.NewDeviceStore()
	s.proofs = memory.NewProofStore()
	s.codes = make(map[string]string)
	s.t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	signer, err := NewProofSigner("test-signing-key", 5*time.Minute)
	s.Require().NoError(err)

	s.service, err = New(s.challenges, s.devices, s.proofs, signer,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithCodeSender(s.mockSender),
		WithAuditor(s.mockAudit),
		WithCodeCost(bcrypt.MinCost),
	)
	s.Require().NoError(err)

	// Codes are captured per actor as they are "delivered".
	s.mockSender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, actorID string, _ models.Method, code string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.codes[actorID] = code
			return nil
		}).AnyTimes()
}

func (s *ChallengeServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ChallengeServiceSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.t0.Add(d))
}

func (s *ChallengeServiceSuite) codeFor(actorID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[actorID]
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

// expectAudit records every appended entry into the returned slice.
func (s *ChallengeServiceSuite) expectAudit() *[]audit.Entry {
	var (
		mu      sync.Mutex
		entries []audit.Entry
	)
	s.mockAudit.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e audit.Entry) (audit.Entry, error) {
			mu.Lock()
			defer mu.Unlock()
			entries = append(entries, e)
			return e, nil
		}).AnyTimes()
	return &entries
}

func actions(entries []audit.Entry) []audit.Action {
	out := make([]audit.Action, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *ChallengeServiceSuite) TestNew() {
	signer, _ := NewProofSigner("k", time.Minute)

	s.Run("nil challenge store returns error", func() {
		_, err := New(nil, s.devices, s.proofs, signer)
		s.ErrorContains(err, "challenge store is required")
	})

	s.Run("nil device store returns error", func() {
		_, err := New(s.challenges, nil, s.proofs, signer)
		s.ErrorContains(err, "device store is required")
	})

	s.Run("nil proof store returns error", func() {
		_, err := New(s.challenges, s.devices, nil, signer)
		s.ErrorContains(err, "proof store is required")
	})

	s.Run("nil signer returns error", func() {
		_, err := New(s.challenges, s.devices, s.proofs, nil)
		s.ErrorContains(err, "proof signer is required")
	})

	s.Run("signer requires a key", func() {
		_, err := NewProofSigner("", time.Minute)
		s.Error(err)
	})
}

// =============================================================================
// Initiate Tests
// =============================================================================

func (s *ChallengeServiceSuite) TestInitiate() {
	entries := s.expectAudit()

	s.Run("issues a five minute, three attempt challenge", func() {
		c, err := s.service.Initiate(s.at(0), "u1", "")
		s.Require().NoError(err)
		s.Equal(models.MethodHardwareToken, c.Method)
		s.True(c.IssuedAt.Equal(s.t0))
		s.True(c.ExpiresAt.Equal(s.t0.Add(5 * time.Minute)))
		s.Equal(3, c.MaxAttempts)
		s.Zero(c.Attempts)
		s.Len(s.codeFor("u1"), 6)
		s.NotContains(c.CodeHash, s.codeFor("u1"), "codes are stored hashed")
		s.Contains(actions(*entries), audit.ActionMFAInitiated)
	})

	s.Run("unknown preferred method rejected", func() {
		_, err := s.service.Initiate(s.at(0), "u1", "carrier_pigeon")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing actor rejected", func() {
		_, err := s.service.Initiate(s.at(0), "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("new challenge supersedes the actor's live one", func() {
		first, err := s.service.Initiate(s.at(0), "u2", "")
		s.Require().NoError(err)
		second, err := s.service.Initiate(s.at(time.Second), "u2", "")
		s.Require().NoError(err)

		_, err = s.challenges.Get(context.Background(), first.ID)
		s.Error(err)
		_, err = s.challenges.Get(context.Background(), second.ID)
		s.NoError(err)
	})
}

func (s *ChallengeServiceSuite) TestMethodSelection() {
	s.expectAudit()
	s.service.factors = s.mockFactors

	s.Run("strongest enrolled method wins", func() {
		s.mockFactors.EXPECT().EnrolledMethods(gomock.Any(), "u1").
			Return([]models.Method{models.MethodEmail, models.MethodTOTP, models.MethodSMS}, nil)
		c, err := s.service.Initiate(s.at(0), "u1", "")
		s.Require().NoError(err)
		s.Equal(models.MethodTOTP, c.Method)
	})

	s.Run("enrolled preference is honoured", func() {
		s.mockFactors.EXPECT().EnrolledMethods(gomock.Any(), "u1").
			Return([]models.Method{models.MethodEmail, models.MethodTOTP}, nil)
		c, err := s.service.Initiate(s.at(0), "u1", models.MethodEmail)
		s.Require().NoError(err)
		s.Equal(models.MethodEmail, c.Method)
	})

	s.Run("preference that is not enrolled falls back to priority", func() {
		s.mockFactors.EXPECT().EnrolledMethods(gomock.Any(), "u1").
			Return([]models.Method{models.MethodSMS}, nil)
		c, err := s.service.Initiate(s.at(0), "u1", models.MethodHardwareToken)
		s.Require().NoError(err)
		s.Equal(models.MethodSMS, c.Method)
	})

	s.Run("no enrolled factor is an invalid state", func() {
		s.mockFactors.EXPECT().EnrolledMethods(gomock.Any(), "u1").Return(nil, nil)
		_, err := s.service.Initiate(s.at(0), "u1", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("directory outage is unavailable", func() {
		s.mockFactors.EXPECT().EnrolledMethods(gomock.Any(), "u1").Return(nil, errors.New("timeout"))
		_, err := s.service.Initiate(s.at(0), "u1", "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

// =============================================================================
// Verify Tests
// =============================================================================

func (s *ChallengeServiceSuite) TestVerifySuccess() {
	entries := s.expectAudit()
	c, err := s.service.Initiate(s.at(0), "u1", "")
	s.Require().NoError(err)

	res, err := s.service.Verify(s.at(time.Minute), c.ID, s.codeFor("u1"))
	s.Require().NoError(err)
	s.True(res.Success)
	s.NotEmpty(res.Proof)
	s.True(res.ProofExpiresAt.Equal(s.t0.Add(6 * time.Minute)))
	s.Contains(actions(*entries), audit.ActionMFASuccess)

	s.Run("success is one-shot", func() {
		again, err := s.service.Verify(s.at(time.Minute), c.ID, s.codeFor("u1"))
		s.Require().NoError(err)
		s.False(again.Success)
		s.Equal(models.ReasonInvalidOrExpired, again.Reason)
	})

	s.Run("proof validates for its actor only", func() {
		claims, err := s.service.ValidateProof(s.at(2*time.Minute), res.Proof, "u1")
		s.Require().NoError(err)
		s.Equal(c.ID, claims.ChallengeID)

		_, err = s.service.ValidateProof(s.at(2*time.Minute), res.Proof, "u2")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("proof expires", func() {
		_, err := s.service.ValidateProof(s.at(time.Hour), res.Proof, "u1")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("proof redeems once", func() {
		claims, err := s.service.ValidateProof(s.at(2*time.Minute), res.Proof, "u1")
		s.Require().NoError(err)
		s.Require().NoError(s.service.RedeemProof(s.at(2*time.Minute), claims))
		err = s.service.RedeemProof(s.at(2*time.Minute), claims)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("tampered proof rejected", func() {
		_, err := s.service.ValidateProof(s.at(2*time.Minute), res.Proof+"x", "u1")
		s.Error(err)
	})
}

func (s *ChallengeServiceSuite) TestThreeFailuresExhaust() {
	entries := s.expectAudit()
	c, err := s.service.Initiate(s.at(0), "u1", "")
	s.Require().NoError(err)
	good := s.codeFor("u1")
	bad := wrongCode(good)

	first, err := s.service.Verify(s.at(time.Second), c.ID, bad)
	s.Require().NoError(err)
	s.False(first.Success)
	s.Equal(models.ReasonInvalidCode, first.Reason)
	s.Equal(2, first.RemainingAttempts)

	second, err := s.service.Verify(s.at(2*time.Second), c.ID, bad)
	s.Require().NoError(err)
	s.Equal(1, second.RemainingAttempts)

	third, err := s.service.Verify(s.at(3*time.Second), c.ID, bad)
	s.Require().NoError(err)
	s.False(third.Success)
	s.Equal(models.ReasonInvalidOrExpired, third.Reason)

	fourth, err := s.service.Verify(s.at(4*time.Second), c.ID, good)
	s.Require().NoError(err)
	s.False(fourth.Success, "the correct code cannot revive an exhausted challenge")
	s.Equal(models.ReasonInvalidOrExpired, fourth.Reason)

	var failures int
	for _, e := range *entries {
		if e.Action == audit.ActionMFAFailure {
			failures++
			s.False(e.Success)
		}
	}
	s.Equal(1, failures)
}

func (s *ChallengeServiceSuite) TestVerifyFailsClosed() {
	entries := s.expectAudit()

	s.Run("unknown challenge", func() {
		res, err := s.service.Verify(s.at(0), "does-not-exist", "123456")
		s.Require().NoError(err)
		s.False(res.Success)
		s.Equal(models.ReasonInvalidOrExpired, res.Reason)
	})

	s.Run("expired challenge is removed and audited", func() {
		c, err := s.service.Initiate(s.at(0), "u1", "")
		s.Require().NoError(err)

		res, err := s.service.Verify(s.at(5*time.Minute+time.Second), c.ID, s.codeFor("u1"))
		s.Require().NoError(err)
		s.False(res.Success)
		s.Equal(models.ReasonInvalidOrExpired, res.Reason)

		_, err = s.challenges.Get(context.Background(), c.ID)
		s.Error(err)
		last := (*entries)[len(*entries)-1]
		s.Equal(audit.ActionMFAFailure, last.Action)
		s.Equal("challenge expired", last.Reason)
	})

	s.Run("answer exactly at expiry is accepted", func() {
		c, err := s.service.Initiate(s.at(0), "u3", "")
		s.Require().NoError(err)
		res, err := s.service.Verify(s.at(5*time.Minute), c.ID, s.codeFor("u3"))
		s.Require().NoError(err)
		s.True(res.Success)
	})
}

func (s *ChallengeServiceSuite) TestConcurrentCorrectAnswersSucceedOnce() {
	s.expectAudit()
	c, err := s.service.Initiate(s.at(0), "u1", "")
	s.Require().NoError(err)
	code := s.codeFor("u1")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.service.Verify(s.at(time.Second), c.ID, code)
			if err == nil && res.Success {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}

// lockstepStore holds every Get until all callers have read the challenge, so
// each concurrent Verify starts from the same attempt count.
type lockstepStore struct {
	*memory.ChallengeStore
	arrived  sync.WaitGroup
	reserved atomic.Int32
}

func (l *lockstepStore) Get(ctx context.Context, id string) (*models.Challenge, error) {
	c, err := l.ChallengeStore.Get(ctx, id)
	l.arrived.Done()
	l.arrived.Wait()
	return c, err
}

func (l *lockstepStore) IncrementAttempts(ctx context.Context, id string) (*models.Challenge, error) {
	c, err := l.ChallengeStore.IncrementAttempts(ctx, id)
	if err == nil {
		l.reserved.Add(1)
	}
	return c, err
}

func (s *ChallengeServiceSuite) TestConcurrentGuessesStayWithinAttemptLimit() {
	s.expectAudit()
	c, err := s.service.Initiate(s.at(0), "u1", "")
	s.Require().NoError(err)
	good := s.codeFor("u1")
	bad := wrongCode(good)

	const guesses = 11
	store := &lockstepStore{ChallengeStore: s.challenges}
	store.arrived.Add(guesses)
	signer, err := NewProofSigner("test-signing-key", 5*time.Minute)
	s.Require().NoError(err)
	service, err := New(store, s.devices, s.proofs, signer,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithAuditor(s.mockAudit),
		WithCodeCost(bcrypt.MinCost),
	)
	s.Require().NoError(err)

	var invalidCode, succeeded atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < guesses; i++ {
		code := bad
		if i == guesses-1 {
			code = good
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := service.Verify(s.at(time.Second), c.ID, code)
			if err != nil {
				return
			}
			if res.Success {
				succeeded.Add(1)
			}
			if res.Reason == models.ReasonInvalidCode {
				invalidCode.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(3), store.reserved.Load(), "only three codes may be compared")
	s.LessOrEqual(invalidCode.Load()+succeeded.Load(), int32(3))
	s.LessOrEqual(succeeded.Load(), int32(1))

	res, err := s.service.Verify(s.at(2*time.Second), c.ID, good)
	s.Require().NoError(err)
	s.False(res.Success, "no attempt is left after the limit")
}

// =============================================================================
// Device Trust Tests
// =============================================================================

func (s *ChallengeServiceSuite) TestDeviceTrust() {
	entries := s.expectAudit()
	s.service.scorer = s.mockScorer
	s.mockScorer.EXPECT().Score(gomock.Any(), "u1", gomock.Any()).
		Return(domain.RiskAssessment{Score: 2}, nil).AnyTimes()

	s.Run("unseen device is untrusted and needs mfa", func() {
		a, err := s.service.ValidateFingerprint(s.at(0), "u1", "fp-laptop")
		s.Require().NoError(err)
		s.True(a.FirstSeen)
		s.False(a.Trusted)
		s.True(a.RequiresMFA)
		s.Equal(2.0, a.RiskScore)
	})

	s.Run("repeat observation is idempotent and still untrusted", func() {
		a, err := s.service.ValidateFingerprint(s.at(time.Minute), "u1", "fp-laptop")
		s.Require().NoError(err)
		s.False(a.FirstSeen)
		s.False(a.Trusted)
	})

	s.Run("explicit trust elevation is audited as critical", func() {
		d, err := s.service.TrustDevice(s.at(2*time.Minute), "u1", "fp-laptop", "admin-1")
		s.Require().NoError(err)
		s.True(d.Trusted)

		last := (*entries)[len(*entries)-1]
		s.Equal(audit.ActionDeviceTrust, last.Action)
		s.True(last.Action.IsCritical())
		s.Equal("admin-1", last.ActorID)
	})

	s.Run("trusted low-risk device skips mfa", func() {
		a, err := s.service.ValidateFingerprint(s.at(3*time.Minute), "u1", "fp-laptop")
		s.Require().NoError(err)
		s.True(a.Trusted)
		s.False(a.RequiresMFA)
	})

	s.Run("revocation restores mfa", func() {
		_, err := s.service.RevokeDevice(s.at(4*time.Minute), "u1", "fp-laptop", "admin-1")
		s.Require().NoError(err)
		a, err := s.service.ValidateFingerprint(s.at(5*time.Minute), "u1", "fp-laptop")
		s.Require().NoError(err)
		s.True(a.RequiresMFA)
	})

	s.Run("trusting an unseen device is not found", func() {
		_, err := s.service.TrustDevice(s.at(0), "u1", "fp-unknown", "admin-1")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("fingerprints are stored hashed", func() {
		_, err := s.devices.Get(context.Background(), "u1", "fp-laptop")
		s.Error(err)
		_, err = s.devices.Get(context.Background(), "u1", models.HashFingerprint("fp-laptop"))
		s.NoError(err)
	})
}

func (s *ChallengeServiceSuite) TestRiskyTrustedDeviceNeedsMFA() {
	s.expectAudit()
	s.service.scorer = s.mockScorer

	s.mockScorer.EXPECT().Score(gomock.Any(), "u1", gomock.Any()).Return(domain.RiskAssessment{Score: 1}, nil)
	_, err := s.service.ValidateFingerprint(s.at(0), "u1", "fp")
	s.Require().NoError(err)
	_, err = s.service.TrustDevice(s.at(0), "u1", "fp", "admin-1")
	s.Require().NoError(err)

	s.mockScorer.EXPECT().Score(gomock.Any(), "u1", gomock.Any()).Return(domain.RiskAssessment{}, errors.New("down"))
	a, err := s.service.ValidateFingerprint(s.at(time.Minute), "u1", "fp")
	s.Require().NoError(err)
	s.True(a.Trusted)
	s.Equal(float64(domain.MaxRiskScore), a.RiskScore)
	s.True(a.RequiresMFA, "a scorer outage must not lower the bar")
}

func (s *ChallengeServiceSuite) TestTrustChangeFailsWhenAuditFails() {
	s.mockAudit.EXPECT().Append(gomock.Any(), gomock.Any()).
		Return(audit.Entry{}, errors.New("audit store down"))

	_, err := s.service.ValidateFingerprint(s.at(0), "u1", "fp")
	s.Require().NoError(err)
	_, err = s.service.TrustDevice(s.at(0), "u1", "fp", "admin-1")
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

// =============================================================================
// Sweep Tests
// =============================================================================

func (s *ChallengeServiceSuite) TestSweep() {
	s.expectAudit()
	_, err := s.service.Initiate(s.at(0), "u1", "")
	s.Require().NoError(err)
	_, err = s.service.Initiate(s.at(4*time.Minute), "u2", "")
	s.Require().NoError(err)

	n, err := s.service.Sweep(s.at(6 * time.Minute))
	s.Require().NoError(err)
	s.Equal(1, n)
}
