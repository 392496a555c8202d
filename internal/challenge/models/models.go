// Package models holds the step-up challenge and device trust types.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Method is a second-factor delivery method.
type Method string

const (
	MethodHardwareToken Method = "hardware_token"
	MethodTOTP          Method = "totp"
	MethodSMS           Method = "sms"
	MethodEmail         Method = "email"
)

// MethodPriority lists methods strongest first.
var MethodPriority = []Method{MethodHardwareToken, MethodTOTP, MethodSMS, MethodEmail}

func (m Method) IsValid() bool {
	switch m {
	case MethodHardwareToken, MethodTOTP, MethodSMS, MethodEmail:
		return true
	}
	return false
}

// Challenge is one live step-up demand. It is removed from the store on
// success, expiry or exhaustion and never reused.
type Challenge struct {
	ID          string    `json:"challenge_id"`
	ActorID     string    `json:"actor_id"`
	Method      Method    `json:"method"`
	CodeHash    string    `json:"-"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	Verified    bool      `json:"verified"`
}

// IsExpiredAt reports whether the challenge can no longer be answered.
func (c *Challenge) IsExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsExhausted reports whether every attempt has been used.
func (c *Challenge) IsExhausted() bool {
	return c.Attempts >= c.MaxAttempts
}

// RemainingAttempts never goes below zero.
func (c *Challenge) RemainingAttempts() int {
	return max(c.MaxAttempts-c.Attempts, 0)
}

// Device is the trust record for one actor's device fingerprint.
type Device struct {
	ActorID         string    `json:"actor_id"`
	FingerprintHash string    `json:"fingerprint_hash"`
	Trusted         bool      `json:"trusted"`
	RiskScore       float64   `json:"risk_score"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
}

// DeviceRiskThreshold is the highest risk a trusted device may carry and
// still skip MFA.
const DeviceRiskThreshold = 5

// RequiresMFA reports whether an action from this device needs step-up.
func (d *Device) RequiresMFA() bool {
	return !d.Trusted || d.RiskScore > DeviceRiskThreshold
}

// DeviceAssessment is the answer of ValidateFingerprint.
type DeviceAssessment struct {
	Trusted     bool    `json:"trusted"`
	RiskScore   float64 `json:"risk_score"`
	RequiresMFA bool    `json:"requires_mfa"`
	FirstSeen   bool    `json:"first_seen"`
}

// HashFingerprint returns the stored form of a raw device fingerprint.
func HashFingerprint(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])
}

// VerifyResult is the outcome of one verification attempt. Reason is
// machine-readable and never says which check failed beyond what is safe.
type VerifyResult struct {
	Success           bool      `json:"success"`
	Reason            string    `json:"reason,omitempty"`
	RemainingAttempts int       `json:"remaining_attempts,omitempty"`
	Proof             string    `json:"proof,omitempty"`
	ProofExpiresAt    time.Time `json:"proof_expires_at,omitzero"`
}

const (
	ReasonInvalidOrExpired = "invalid or expired"
	ReasonInvalidCode      = "invalid code"
)

// ProofClaims identify a validated step-up proof.
type ProofClaims struct {
	ID          string
	ActorID     string
	ChallengeID string
	ExpiresAt   time.Time
}
