package models

import (
	"encoding/json"
	"maps"
	"time"
)

// Type names a regulated process.
type Type string

const (
	TypeOnboarding          Type = "onboarding"
	TypeRenewal             Type = "renewal"
	TypeInvestigation       Type = "investigation"
	TypeBulkVerification    Type = "bulk_verification"
	TypeEmbassyVerification Type = "embassy_verification"
)

// Step names. Payment appears in two sequences and shares one handler.
const (
	StepCreateApplication  = "create-application"
	StepKYCCheck           = "kyc-check"
	StepDocumentVerify     = "document-verify"
	StepPayment            = "payment"
	StepHumanReview        = "human-review"
	StepLicenseIssue       = "license-issue"
	StepCPDCheck           = "cpd-check"
	StepCertificateIssue   = "certificate-issue"
	StepNotify             = "notify"
	StepCreateCase         = "create-case"
	StepAssignInspector    = "assign-inspector"
	StepCollectEvidence    = "collect-evidence"
	StepDecide             = "decide"
	StepValidateBatch      = "validate-batch"
	StepVerifyEach         = "verify-each"
	StepCompileResults     = "compile-results"
	StepEnableMonitoring   = "enable-monitoring"
	StepVerifyPractitioner = "verify-practitioner"
	StepGenerateLetter     = "generate-letter"
	StepLogAccess          = "log-access"
)

// Sequences are the fixed, ordered steps of each workflow type.
var Sequences = map[Type][]string{
	TypeOnboarding: {
		StepCreateApplication, StepKYCCheck, StepDocumentVerify,
		StepPayment, StepHumanReview, StepLicenseIssue,
	},
	TypeRenewal: {
		StepCPDCheck, StepPayment, StepCertificateIssue, StepNotify,
	},
	TypeInvestigation: {
		StepCreateCase, StepAssignInspector, StepCollectEvidence, StepDecide, StepNotify,
	},
	TypeBulkVerification: {
		StepValidateBatch, StepVerifyEach, StepCompileResults, StepEnableMonitoring,
	},
	TypeEmbassyVerification: {
		StepVerifyPractitioner, StepGenerateLetter, StepLogAccess,
	},
}

func (t Type) IsValid() bool {
	_, ok := Sequences[t]
	return ok
}

func (t Type) String() string {
	return string(t)
}

// Resource is the policy resource type that guards workflows of type t.
func (t Type) Resource() string {
	return "workflow:" + string(t)
}

// Status is the lifecycle state of an instance.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusInitiated, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no ordinary transition leaves this status.
// A failed instance is left only through an explicit Retry.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Metadata keys written by the engine.
const (
	MetaFailureReason = "failureReason"
	MetaFailedStep    = "failedStep"
	MetaPendingStep   = "pendingStep"
	MetaCancelReason  = "cancelReason"
	MetaCancelledBy   = "cancelledBy"
	MetaRetries       = "retries"
)

// Metadata is the JSON-compatible accumulator of payload and step outputs.
type Metadata map[string]any

// Clone returns a deep copy via a JSON round trip so handlers cannot mutate
// the stored instance through nested maps.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return maps.Clone(m)
	}
	out := Metadata{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return maps.Clone(m)
	}
	return out
}

// String returns the value at key when it is a string.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Int returns a numeric value at key. JSON numbers decode as float64.
func (m Metadata) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

// Bool returns the boolean at key, false when absent.
func (m Metadata) Bool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Strings returns a string list at key, skipping non-string elements.
func (m Metadata) Strings(key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Objects returns a list of objects at key, skipping other elements.
func (m Metadata) Objects(key string) []Metadata {
	switch v := m[key].(type) {
	case []Metadata:
		return v
	case []map[string]any:
		out := make([]Metadata, 0, len(v))
		for _, e := range v {
			out = append(out, Metadata(e))
		}
		return out
	case []any:
		out := make([]Metadata, 0, len(v))
		for _, e := range v {
			switch o := e.(type) {
			case map[string]any:
				out = append(out, Metadata(o))
			case Metadata:
				out = append(out, o)
			}
		}
		return out
	}
	return nil
}

// Instance is one run of a workflow type.
type Instance struct {
	ID               string    `json:"workflow_id"`
	Type             Type      `json:"type"`
	Status           Status    `json:"status"`
	CurrentStepIndex int       `json:"current_step_index"`
	TotalSteps       int       `json:"total_steps"`
	Metadata         Metadata  `json:"metadata"`
	CreatedBy        string    `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	// LastStep is the name of the most recently completed step.
	LastStep string `json:"last_step,omitempty"`
	// PendingStep is set while a handler runs. Finding it set on load means
	// the process stopped between the step's side effect and persistence.
	PendingStep string `json:"pending_step,omitempty"`
	Version     int64  `json:"version"`
}

// Clone returns a copy safe to hand outside the engine.
func (i *Instance) Clone() *Instance {
	out := *i
	out.Metadata = i.Metadata.Clone()
	return &out
}

// CurrentStep returns the name of the next step to run, or "" when past
// the end of the sequence.
func (i *Instance) CurrentStep() string {
	seq := Sequences[i.Type]
	if i.CurrentStepIndex < 0 || i.CurrentStepIndex >= len(seq) {
		return ""
	}
	return seq[i.CurrentStepIndex]
}

// StepResult is the outcome of one handler invocation, folded into the
// instance metadata.
type StepResult struct {
	StepName    string   `json:"step_name"`
	Succeeded   bool     `json:"succeeded"`
	Output      Metadata `json:"output,omitempty"`
	ErrorReason string   `json:"error_reason,omitempty"`
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Status    Status
	Type      Type
	CreatedBy string
	Limit     int
}

func (f ListFilter) Matches(i *Instance) bool {
	if f.Status != "" && i.Status != f.Status {
		return false
	}
	if f.CreatedBy != "" && i.CreatedBy != f.CreatedBy {
		return false
	}
	if f.Type != "" && i.Type != f.Type {
		return false
	}
	return true
}
