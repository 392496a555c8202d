package adapters

import (
	"context"

	"regulus/internal/challenge"
	challengeModels "regulus/internal/challenge/models"
	"regulus/internal/policy/gate"
)

// ChallengeAdapter lets the policy gate use the challenge service for device
// trust, step-up proofs and challenge issuance without importing it.
type ChallengeAdapter struct {
	challenges *challenge.Service
}

var (
	_ gate.DeviceTrust     = (*ChallengeAdapter)(nil)
	_ gate.StepUpProofs    = (*ChallengeAdapter)(nil)
	_ gate.ChallengeIssuer = (*ChallengeAdapter)(nil)
)

func NewChallengeAdapter(challenges *challenge.Service) *ChallengeAdapter {
	return &ChallengeAdapter{challenges: challenges}
}

func (a *ChallengeAdapter) ValidateFingerprint(ctx context.Context, actorID, fingerprint string) (gate.DeviceAssessment, error) {
	d, err := a.challenges.ValidateFingerprint(ctx, actorID, fingerprint)
	if err != nil {
		return gate.DeviceAssessment{}, err
	}
	return gate.DeviceAssessment{
		Trusted:     d.Trusted,
		RiskScore:   d.RiskScore,
		RequiresMFA: d.RequiresMFA,
	}, nil
}

func (a *ChallengeAdapter) ValidateProof(ctx context.Context, token, actorID string) (*gate.StepUpClaims, error) {
	claims, err := a.challenges.ValidateProof(ctx, token, actorID)
	if err != nil {
		return nil, err
	}
	return &gate.StepUpClaims{
		ID:        claims.ID,
		ActorID:   claims.ActorID,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func (a *ChallengeAdapter) RedeemProof(ctx context.Context, claims *gate.StepUpClaims) error {
	return a.challenges.RedeemProof(ctx, &challengeModels.ProofClaims{
		ID:        claims.ID,
		ActorID:   claims.ActorID,
		ExpiresAt: claims.ExpiresAt,
	})
}

func (a *ChallengeAdapter) IssueStepUp(ctx context.Context, actorID string) (string, error) {
	return a.challenges.IssueStepUp(ctx, actorID)
}
