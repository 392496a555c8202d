package gate

import (
	"context"
	"time"

	"regulus/internal/policy/models"
	"regulus/pkg/domain"
	audit "regulus/pkg/platform/audit"
)

// CounterStore performs atomic DLP counter operations.
type CounterStore interface {
	Consume(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (*models.CounterResult, error)
	Peek(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (*models.CounterResult, error)
}

// PolicySource returns the active DLP snapshot.
type PolicySource interface {
	Current() *models.PolicySet
}

// DeviceAssessment is the device-trust answer used by the step-up check.
type DeviceAssessment struct {
	Trusted     bool
	RiskScore   float64
	RequiresMFA bool
}

// DeviceTrust evaluates a device fingerprint for an actor.
type DeviceTrust interface {
	ValidateFingerprint(ctx context.Context, actorID, fingerprint string) (DeviceAssessment, error)
}

// StepUpClaims identify a validated step-up proof.
type StepUpClaims struct {
	ID        string
	ActorID   string
	ExpiresAt time.Time
}

// StepUpProofs validates and redeems proofs issued after a verified challenge.
// A proof is redeemed only by an allowed decision, so a denial does not burn it.
type StepUpProofs interface {
	ValidateProof(ctx context.Context, token, actorID string) (*StepUpClaims, error)
	RedeemProof(ctx context.Context, claims *StepUpClaims) error
}

// ChallengeIssuer starts a step-up challenge when a decision demands one.
type ChallengeIssuer interface {
	IssueStepUp(ctx context.Context, actorID string) (challengeID string, err error)
}

// RiskScorer is the behavioural risk collaborator.
type RiskScorer interface {
	Score(ctx context.Context, actorID string, signals domain.RiskSignals) (domain.RiskAssessment, error)
}

// AuditAppender records one entry per evaluation.
type AuditAppender interface {
	Append(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}
