package httptransport

import (
	"time"

	challengeModels "regulus/internal/challenge/models"
	policyModels "regulus/internal/policy/models"
	wfModels "regulus/internal/workflow/models"
	audit "regulus/pkg/platform/audit"
)

// DecisionResponse is the wire form of a policy decision.
type DecisionResponse struct {
	Allowed        bool     `json:"allowed"`
	RequiresStepUp bool     `json:"requires_step_up"`
	ThrottleMillis int      `json:"throttle_millis"`
	Violations     []string `json:"violations"`
	Reason         string   `json:"reason"`
	Obligations    []string `json:"obligations,omitempty"`
	ChallengeID    string   `json:"challenge_id,omitempty"`
}

func FromDecision(d *policyModels.Decision) *DecisionResponse {
	if d == nil {
		return nil
	}
	violations := d.Violations
	if violations == nil {
		violations = []string{}
	}
	return &DecisionResponse{
		Allowed:        d.Allowed,
		RequiresStepUp: d.RequiresStepUp,
		ThrottleMillis: d.ThrottleMillis,
		Violations:     violations,
		Reason:         d.Reason,
		Obligations:    d.Obligations,
		ChallengeID:    d.ChallengeID,
	}
}

// ChallengeResponse never carries the code or its hash.
type ChallengeResponse struct {
	ChallengeID string    `json:"challenge_id"`
	Method      string    `json:"method"`
	ExpiresAt   time.Time `json:"expires_at"`
	MaxAttempts int       `json:"max_attempts"`
}

func FromChallenge(c *challengeModels.Challenge) *ChallengeResponse {
	return &ChallengeResponse{
		ChallengeID: c.ID,
		Method:      string(c.Method),
		ExpiresAt:   c.ExpiresAt,
		MaxAttempts: c.MaxAttempts,
	}
}

// DeviceResponse reports a device's trust state.
type DeviceResponse struct {
	ActorID         string  `json:"actor_id"`
	FingerprintHash string  `json:"fingerprint_hash"`
	Trusted         bool    `json:"trusted"`
	RiskScore       float64 `json:"risk_score"`
}

func FromDevice(d *challengeModels.Device) *DeviceResponse {
	return &DeviceResponse{
		ActorID:         d.ActorID,
		FingerprintHash: d.FingerprintHash,
		Trusted:         d.Trusted,
		RiskScore:       d.RiskScore,
	}
}

// WorkflowResponse is the wire form of an instance. Sensitive payload
// fields were already replaced by the engine.
type WorkflowResponse struct {
	WorkflowID       string            `json:"workflow_id"`
	Type             string            `json:"type"`
	Status           string            `json:"status"`
	CurrentStep      string            `json:"current_step,omitempty"`
	CurrentStepIndex int               `json:"current_step_index"`
	TotalSteps       int               `json:"total_steps"`
	Metadata         wfModels.Metadata `json:"metadata"`
	CreatedBy        string            `json:"created_by"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func FromInstance(i *wfModels.Instance) *WorkflowResponse {
	return &WorkflowResponse{
		WorkflowID:       i.ID,
		Type:             string(i.Type),
		Status:           string(i.Status),
		CurrentStep:      i.CurrentStep(),
		CurrentStepIndex: i.CurrentStepIndex,
		TotalSteps:       i.TotalSteps,
		Metadata:         i.Metadata,
		CreatedBy:        i.CreatedBy,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}

type WorkflowListResponse struct {
	Workflows []*WorkflowResponse `json:"workflows"`
	Count     int                 `json:"count"`
}

func FromInstances(list []*wfModels.Instance) *WorkflowListResponse {
	out := make([]*WorkflowResponse, 0, len(list))
	for _, i := range list {
		out = append(out, FromInstance(i))
	}
	return &WorkflowListResponse{Workflows: out, Count: len(out)}
}

// ExportAuditResponse carries a verified range of the audit trail.
type ExportAuditResponse struct {
	Entries     []audit.Entry `json:"entries"`
	Count       int           `json:"count"`
	Obligations []string      `json:"obligations,omitempty"`
}

// DeniedResponse is written when a policy decision refuses an operation.
type DeniedResponse struct {
	Error    string            `json:"error"`
	Decision *DecisionResponse `json:"decision"`
}

type VerifyAuditResponse struct {
	Valid   bool   `json:"valid"`
	Checked int    `json:"checked"`
	Error   string `json:"error,omitempty"`
}
