package httptransport

import (
	"strings"
	"time"

	challengeModels "regulus/internal/challenge/models"
	policyModels "regulus/internal/policy/models"
	wfModels "regulus/internal/workflow/models"
	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
)

// EvaluateRequest is the body of POST /v1/access/evaluate. The actor and
// origin come from the session, never from the body.
type EvaluateRequest struct {
	ResourceType  string `json:"resource_type"`
	ResourceID    string `json:"resource_id"`
	Action        string `json:"action"`
	Justification string `json:"justification"`
}

func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Justification) > 1024 {
		return dErrors.New(dErrors.CodeValidation, "justification must be at most 1024 characters")
	}
	r.ResourceType = strings.TrimSpace(r.ResourceType)
	r.ResourceID = strings.TrimSpace(r.ResourceID)
	r.Justification = strings.TrimSpace(r.Justification)
	if r.ResourceType == "" {
		return dErrors.New(dErrors.CodeValidation, "resource_type is required")
	}
	if r.ResourceID == "" {
		return dErrors.New(dErrors.CodeValidation, "resource_id is required")
	}
	if !policyModels.Action(r.Action).IsDataAccess() {
		return dErrors.New(dErrors.CodeValidation, "action must be one of view, export, print, download")
	}
	return nil
}

// InitiateChallengeRequest is the body of POST /v1/challenges.
type InitiateChallengeRequest struct {
	Method string `json:"method"`
}

func (r *InitiateChallengeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Method = strings.TrimSpace(r.Method)
	if r.Method != "" && !challengeModels.Method(r.Method).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unsupported step-up method")
	}
	return nil
}

// VerifyChallengeRequest is the body of POST /v1/challenges/{id}/verify.
type VerifyChallengeRequest struct {
	Code string `json:"code"`
}

func (r *VerifyChallengeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Code = strings.TrimSpace(r.Code)
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	if len(r.Code) > 16 {
		return dErrors.New(dErrors.CodeValidation, "code must be at most 16 characters")
	}
	return nil
}

// DeviceTrustRequest is the body of POST and DELETE /v1/devices/trust.
type DeviceTrustRequest struct {
	ActorID     string `json:"actor_id"`
	Fingerprint string `json:"fingerprint"`
}

func (r *DeviceTrustRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.ActorID = strings.TrimSpace(r.ActorID)
	r.Fingerprint = strings.TrimSpace(r.Fingerprint)
	if r.ActorID == "" {
		return dErrors.New(dErrors.CodeValidation, "actor_id is required")
	}
	if r.Fingerprint == "" {
		return dErrors.New(dErrors.CodeValidation, "fingerprint is required")
	}
	return nil
}

// StartWorkflowRequest is the body of POST /v1/workflows. The payload is
// checked against the type's schema by the engine.
type StartWorkflowRequest struct {
	Type    string            `json:"type"`
	Payload wfModels.Metadata `json:"payload"`
}

func (r *StartWorkflowRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Type = strings.TrimSpace(r.Type)
	if !wfModels.Type(r.Type).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown workflow type")
	}
	if r.Payload == nil {
		return dErrors.New(dErrors.CodeValidation, "payload is required")
	}
	return nil
}

// AdvanceWorkflowRequest is the optional body of POST /v1/workflows/{id}/advance.
type AdvanceWorkflowRequest struct {
	Input wfModels.Metadata `json:"input"`
}

func (r *AdvanceWorkflowRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// CancelWorkflowRequest is the body of POST /v1/workflows/{id}/cancel.
type CancelWorkflowRequest struct {
	Reason string `json:"reason"`
}

func (r *CancelWorkflowRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > 512 {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 512 characters")
	}
	return nil
}

// RetryWorkflowRequest is the body of POST /v1/workflows/{id}/retry.
type RetryWorkflowRequest struct {
	Reason            string `json:"reason"`
	AllowRepeatCharge bool   `json:"allow_repeat_charge"`
}

func (r *RetryWorkflowRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.AllowRepeatCharge && r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required when repeating a charge")
	}
	return nil
}

// ExportAuditRequest is the body of POST /v1/audit/export.
type ExportAuditRequest struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Justification string    `json:"justification"`
	ActorID       string    `json:"actor_id"`
	Action        string    `json:"action"`
	ResourceID    string    `json:"resource_id"`
	Success       *bool     `json:"success"`
}

func (r *ExportAuditRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Start.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "start is required")
	}
	if !r.End.IsZero() && !r.End.After(r.Start) {
		return dErrors.New(dErrors.CodeValidation, "end must be after start")
	}
	r.Justification = strings.TrimSpace(r.Justification)
	r.ActorID = strings.TrimSpace(r.ActorID)
	r.ResourceID = strings.TrimSpace(r.ResourceID)
	return nil
}

// Filter returns the audit filter selected by the request.
func (r *ExportAuditRequest) Filter() audit.Filter {
	return audit.Filter{
		ActorID:    r.ActorID,
		Action:     audit.Action(strings.TrimSpace(r.Action)),
		ResourceID: r.ResourceID,
		Success:    r.Success,
	}
}
