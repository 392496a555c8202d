package challenge

import (
	"context"
	"time"

	"regulus/internal/challenge/models"
	"regulus/pkg/domain"
	audit "regulus/pkg/platform/audit"
)

// ChallengeStore keeps live challenges. Save supersedes any live challenge
// of the same actor. IncrementAttempts reserves one attempt atomically and
// reports sentinel.ErrInvalidState once MaxAttempts are taken. Delete reports
// sentinel.ErrNotFound when the challenge is already gone, which makes a
// successful verification single-use.
type ChallengeStore interface {
	Save(ctx context.Context, c *models.Challenge) error
	Get(ctx context.Context, id string) (*models.Challenge, error)
	IncrementAttempts(ctx context.Context, id string) (*models.Challenge, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// DeviceStore upserts device observations. Observe never changes Trusted.
type DeviceStore interface {
	Observe(ctx context.Context, actorID, fingerprintHash string, risk float64, now time.Time) (device *models.Device, created bool, err error)
	SetTrusted(ctx context.Context, actorID, fingerprintHash string, trusted bool, now time.Time) (*models.Device, error)
	Get(ctx context.Context, actorID, fingerprintHash string) (*models.Device, error)
}

// ProofStore records redeemed step-up proofs until they expire. MarkUsed
// returns sentinel.ErrAlreadyUsed on replay.
type ProofStore interface {
	MarkUsed(ctx context.Context, proofID string, expiresAt time.Time) error
}

// CodeSender delivers a one-time code over the chosen method.
type CodeSender interface {
	Send(ctx context.Context, actorID string, method models.Method, code string) error
}

// FactorDirectory lists the second factors an actor has enrolled.
type FactorDirectory interface {
	EnrolledMethods(ctx context.Context, actorID string) ([]models.Method, error)
}

// RiskScorer is the behavioural risk collaborator.
type RiskScorer interface {
	Score(ctx context.Context, actorID string, signals domain.RiskSignals) (domain.RiskAssessment, error)
}

// AuditAppender records challenge and device events.
type AuditAppender interface {
	Append(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}
