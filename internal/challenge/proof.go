package challenge

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"regulus/internal/challenge/models"
	dErrors "regulus/pkg/domain-errors"
)

const (
	proofIssuer   = "regulus"
	proofAudience = "regulus-step-up"
)

// proofClaims are the JWT claims of a step-up proof.
type proofClaims struct {
	ActorID     string `json:"actor_id"`
	ChallengeID string `json:"challenge_id"`
	jwt.RegisteredClaims
}

// ProofSigner issues and validates HS256 step-up proofs.
type ProofSigner struct {
	signingKey []byte
	ttl        time.Duration
}

func NewProofSigner(signingKey string, ttl time.Duration) (*ProofSigner, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("proof signing key is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("proof ttl must be positive")
	}
	return &ProofSigner{signingKey: []byte(signingKey), ttl: ttl}, nil
}

// Issue signs a proof for actorID bound to the verified challenge.
func (s *ProofSigner) Issue(actorID, challengeID string, now time.Time) (string, *models.ProofClaims, error) {
	claims := proofClaims{
		ActorID:     actorID,
		ChallengeID: challengeID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    proofIssuer,
			Audience:  []string{proofAudience},
			Subject:   actorID,
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", nil, err
	}
	return signed, toProofClaims(&claims), nil
}

// Parse validates signature, issuer, audience and expiry at now.
func (s *ProofSigner) Parse(token string, now time.Time) (*models.ProofClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &proofClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(proofIssuer),
		jwt.WithAudience(proofAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "step-up proof has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid step-up proof")
	}

	claims, ok := parsed.Claims.(*proofClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid step-up proof")
	}
	return toProofClaims(claims), nil
}

func toProofClaims(c *proofClaims) *models.ProofClaims {
	out := &models.ProofClaims{
		ID:          c.ID,
		ActorID:     c.ActorID,
		ChallengeID: c.ChallengeID,
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
