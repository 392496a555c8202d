// Package challenge issues and verifies step-up challenges and keeps device
// trust records.
//
// A challenge moves from issued to exactly one of verified, expired or
// exhausted, and is deleted from the live set at that point. A verified
// challenge yields a short-lived signed proof that the policy gate redeems
// once.
package challenge

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"regulus/internal/challenge/metrics"
	"regulus/internal/challenge/models"
	"regulus/pkg/domain"
	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
	"regulus/pkg/platform/sentinel"
	"regulus/pkg/requestcontext"
)

const (
	defaultChallengeTTL = 5 * time.Minute
	defaultMaxAttempts  = 3
	codeDigits          = 6
)

// Service is the challenge authenticator.
type Service struct {
	challenges ChallengeStore
	devices    DeviceStore
	proofs     ProofStore
	signer     *ProofSigner

	sender  CodeSender
	factors FactorDirectory
	scorer  RiskScorer
	auditor AuditAppender
	logger  *slog.Logger
	metrics *metrics.Metrics

	ttl         time.Duration
	maxAttempts int
	codeCost    int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditor(a AuditAppender) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithCodeSender(sender CodeSender) Option {
	return func(s *Service) {
		s.sender = sender
	}
}

// WithFactorDirectory restricts method selection to enrolled factors.
// Without it every method is considered enrolled.
func WithFactorDirectory(d FactorDirectory) Option {
	return func(s *Service) {
		s.factors = d
	}
}

func WithRiskScorer(r RiskScorer) Option {
	return func(s *Service) {
		s.scorer = r
	}
}

func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithCodeCost sets the bcrypt cost for stored codes.
func WithCodeCost(cost int) Option {
	return func(s *Service) {
		s.codeCost = cost
	}
}

func New(challenges ChallengeStore, devices DeviceStore, proofs ProofStore, signer *ProofSigner, opts ...Option) (*Service, error) {
	if challenges == nil {
		return nil, errors.New("challenge store is required")
	}
	if devices == nil {
		return nil, errors.New("device store is required")
	}
	if proofs == nil {
		return nil, errors.New("proof store is required")
	}
	if signer == nil {
		return nil, errors.New("proof signer is required")
	}

	s := &Service{
		challenges:  challenges,
		devices:     devices,
		proofs:      proofs,
		signer:      signer,
		logger:      slog.Default(),
		ttl:         defaultChallengeTTL,
		maxAttempts: defaultMaxAttempts,
		codeCost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initiate issues a challenge over the strongest enrolled method, or over
// preferred when the actor has it enrolled. Any live challenge of the actor
// is superseded.
func (s *Service) Initiate(ctx context.Context, actorID string, preferred models.Method) (*models.Challenge, error) {
	if actorID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "actor_id is required")
	}
	if preferred != "" && !preferred.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown challenge method")
	}

	method, err := s.selectMethod(ctx, actorID, preferred)
	if err != nil {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate challenge code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.codeCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash challenge code")
	}

	now := requestcontext.Now(ctx)
	c := &models.Challenge{
		ID:          uuid.NewString(),
		ActorID:     actorID,
		Method:      method,
		CodeHash:    string(hash),
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.ttl),
		MaxAttempts: s.maxAttempts,
	}
	if err := s.challenges.Save(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store challenge")
	}

	if s.sender != nil {
		if err := s.sender.Send(ctx, actorID, method, code); err != nil {
			_ = s.challenges.Delete(ctx, c.ID)
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to deliver challenge code")
		}
	}

	s.metrics.IncrementChallenge("issued")
	s.audit(ctx, audit.ActionMFAInitiated, actorID, c.ID, true, "challenge issued", map[string]string{
		"method":     string(method),
		"expires_at": c.ExpiresAt.UTC().Format(time.RFC3339),
	})
	s.logger.InfoContext(ctx, "step-up challenge issued",
		"actor_id", actorID,
		"challenge_id", c.ID,
		"method", method,
	)
	return c, nil
}

// IssueStepUp starts a challenge on behalf of the policy gate.
func (s *Service) IssueStepUp(ctx context.Context, actorID string) (string, error) {
	c, err := s.Initiate(ctx, actorID, "")
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (s *Service) selectMethod(ctx context.Context, actorID string, preferred models.Method) (models.Method, error) {
	enrolled := models.MethodPriority
	if s.factors != nil {
		var err error
		enrolled, err = s.factors.EnrolledMethods(ctx, actorID)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load enrolled factors")
		}
	}
	if preferred != "" && slices.Contains(enrolled, preferred) {
		return preferred, nil
	}
	for _, m := range models.MethodPriority {
		if slices.Contains(enrolled, m) {
			return m, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidState, "no second factor enrolled")
}

// Verify checks code against the live challenge. Unknown, expired and
// exhausted challenges fail closed with the same reason. Store failures are
// returned as errors; the result is then a failure too.
//
// An attempt is reserved in the store before the code is compared, so
// concurrent guesses never compare more than MaxAttempts codes.
func (s *Service) Verify(ctx context.Context, challengeID, code string) (*models.VerifyResult, error) {
	fail := &models.VerifyResult{Reason: models.ReasonInvalidOrExpired}

	c, err := s.challenges.Get(ctx, challengeID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.metrics.IncrementChallenge("failed")
		return fail, nil
	}
	if err != nil {
		return fail, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load challenge")
	}

	now := requestcontext.Now(ctx)
	if c.IsExpiredAt(now) {
		s.discard(ctx, c, "expired")
		return fail, nil
	}

	reserved, err := s.challenges.IncrementAttempts(ctx, c.ID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementChallenge("failed")
		return fail, nil
	case errors.Is(err, sentinel.ErrInvalidState):
		// Every attempt is taken; the holder of the last one removes it.
		s.metrics.IncrementChallenge("failed")
		return fail, nil
	case err != nil:
		return fail, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record challenge attempt")
	}

	if bcrypt.CompareHashAndPassword([]byte(reserved.CodeHash), []byte(code)) != nil {
		return s.recordFailure(ctx, reserved)
	}

	// Deleting first makes the success single-use under concurrent verifies.
	if err := s.challenges.Delete(ctx, c.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return fail, nil
		}
		return fail, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to consume challenge")
	}

	token, claims, err := s.signer.Issue(c.ActorID, c.ID, now)
	if err != nil {
		return fail, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign step-up proof")
	}

	s.metrics.IncrementChallenge("verified")
	s.audit(ctx, audit.ActionMFASuccess, c.ActorID, c.ID, true, "challenge verified", map[string]string{
		"method":   string(c.Method),
		"attempts": strconv.Itoa(reserved.Attempts),
		"proof_id": claims.ID,
	})
	s.logger.InfoContext(ctx, "step-up challenge verified",
		"actor_id", c.ActorID,
		"challenge_id", c.ID,
	)
	return &models.VerifyResult{
		Success:        true,
		Proof:          token,
		ProofExpiresAt: claims.ExpiresAt,
	}, nil
}

// recordFailure handles a wrong code whose attempt is already counted in c.
func (s *Service) recordFailure(ctx context.Context, c *models.Challenge) (*models.VerifyResult, error) {
	s.logger.WarnContext(ctx, "step-up challenge attempt failed",
		"actor_id", c.ActorID,
		"challenge_id", c.ID,
		"attempts", c.Attempts,
	)
	if c.IsExhausted() {
		s.discard(ctx, c, "exhausted")
		return &models.VerifyResult{Reason: models.ReasonInvalidOrExpired}, nil
	}
	s.metrics.IncrementChallenge("failed")
	return &models.VerifyResult{
		Reason:            models.ReasonInvalidCode,
		RemainingAttempts: c.RemainingAttempts(),
	}, nil
}

// discard removes a challenge that can no longer succeed and records why.
func (s *Service) discard(ctx context.Context, c *models.Challenge, why string) {
	if err := s.challenges.Delete(ctx, c.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "failed to delete dead challenge",
			"challenge_id", c.ID,
			"error", err,
		)
	}
	s.metrics.IncrementChallenge(why)
	s.audit(ctx, audit.ActionMFAFailure, c.ActorID, c.ID, false, "challenge "+why, map[string]string{
		"method":   string(c.Method),
		"attempts": strconv.Itoa(c.Attempts),
	})
}

// ValidateFingerprint records an observation of the device and reports its
// trust. Unseen devices are never trusted.
func (s *Service) ValidateFingerprint(ctx context.Context, actorID, fingerprint string) (*models.DeviceAssessment, error) {
	if actorID == "" || fingerprint == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "actor_id and fingerprint are required")
	}
	hash := models.HashFingerprint(fingerprint)
	risk := s.scoreDevice(ctx, actorID, hash)

	d, created, err := s.devices.Observe(ctx, actorID, hash, risk, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record device observation")
	}
	s.metrics.IncrementDeviceObservation(created)
	if created {
		s.logger.InfoContext(ctx, "new device observed",
			"actor_id", actorID,
			"risk_score", risk,
		)
	}

	return &models.DeviceAssessment{
		Trusted:     d.Trusted,
		RiskScore:   d.RiskScore,
		RequiresMFA: d.RequiresMFA(),
		FirstSeen:   created,
	}, nil
}

// scoreDevice falls back to the maximum score when the scorer fails so an
// outage cannot lower the bar.
func (s *Service) scoreDevice(ctx context.Context, actorID, hash string) float64 {
	if s.scorer == nil {
		return 0
	}
	r, err := s.scorer.Score(ctx, actorID, domain.RiskSignals{"device": hash})
	if err != nil {
		s.logger.WarnContext(ctx, "device risk scorer unavailable, assuming maximum risk",
			"actor_id", actorID,
			"error", err,
		)
		return domain.MaxRiskScore
	}
	return r.Clamp().Score
}

// TrustDevice is the explicit trust elevation. The device must have been
// observed before.
func (s *Service) TrustDevice(ctx context.Context, actorID, fingerprint, grantedBy string) (*models.Device, error) {
	return s.setTrust(ctx, actorID, fingerprint, grantedBy, true)
}

// RevokeDevice withdraws trust from a device.
func (s *Service) RevokeDevice(ctx context.Context, actorID, fingerprint, revokedBy string) (*models.Device, error) {
	return s.setTrust(ctx, actorID, fingerprint, revokedBy, false)
}

func (s *Service) setTrust(ctx context.Context, actorID, fingerprint, by string, trusted bool) (*models.Device, error) {
	if actorID == "" || fingerprint == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "actor_id and fingerprint are required")
	}
	hash := models.HashFingerprint(fingerprint)
	d, err := s.devices.SetTrusted(ctx, actorID, hash, trusted, requestcontext.Now(ctx))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "device has not been observed")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update device trust")
	}

	action, reason := audit.ActionDeviceTrust, "device trusted"
	if !trusted {
		action, reason = audit.ActionDeviceRevoke, "device trust revoked"
	}
	entry := audit.Entry{
		ActorID:    by,
		Action:     action,
		Resource:   "device",
		ResourceID: hash,
		Success:    true,
		Reason:     reason,
		Metadata:   map[string]string{"device_actor_id": actorID},
	}
	if s.auditor != nil {
		if _, err := s.auditor.Append(ctx, entry); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "device trust change could not be audited")
		}
	}
	s.logger.InfoContext(ctx, reason,
		"actor_id", actorID,
		"changed_by", by,
		"log_type", "audit",
	)
	return d, nil
}

// ValidateProof checks a step-up proof token for actorID without redeeming it.
func (s *Service) ValidateProof(ctx context.Context, token, actorID string) (*models.ProofClaims, error) {
	claims, err := s.signer.Parse(token, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if claims.ActorID != actorID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "step-up proof belongs to another actor")
	}
	return claims, nil
}

// RedeemProof marks the proof used. A second redemption fails.
func (s *Service) RedeemProof(ctx context.Context, claims *models.ProofClaims) error {
	err := s.proofs.MarkUsed(ctx, claims.ID, claims.ExpiresAt)
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		s.metrics.IncrementProofRedemption("replayed")
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "step-up proof already used")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to redeem step-up proof")
	}
	s.metrics.IncrementProofRedemption("redeemed")
	return nil
}

// Sweep removes expired challenges. Expiry is enforced at Verify regardless;
// this only reclaims storage.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	n, err := s.challenges.DeleteExpired(ctx, requestcontext.Now(ctx))
	if err != nil {
		return 0, fmt.Errorf("sweep challenges: %w", err)
	}
	s.metrics.AddSwept(n)
	return n, nil
}

func (s *Service) audit(ctx context.Context, action audit.Action, actorID, challengeID string, success bool, reason string, md map[string]string) {
	if s.auditor == nil {
		return
	}
	_, err := s.auditor.Append(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     action,
		Resource:   "challenge",
		ResourceID: challengeID,
		Success:    success,
		Reason:     reason,
		Metadata:   md,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to audit challenge event",
			"action", action,
			"challenge_id", challengeID,
			"error", err,
		)
	}
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
