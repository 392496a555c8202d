package domain

// RiskAssessment is the answer of the pluggable behavioural risk scorer.
// Score ranges from 0 (benign) to 10 (certainly anomalous).
type RiskAssessment struct {
	Score      float64 `json:"risk_score"`
	Suspicious bool    `json:"suspicious"`
}

// MaxRiskScore bounds every score.
const MaxRiskScore = 10

// Clamp bounds the score to [0, MaxRiskScore].
func (r RiskAssessment) Clamp() RiskAssessment {
	switch {
	case r.Score < 0:
		r.Score = 0
	case r.Score > MaxRiskScore:
		r.Score = MaxRiskScore
	}
	return r
}

// RiskSignals carries the context a scorer may use (origin ip, action,
// resource type, device fingerprint).
type RiskSignals map[string]string
