package models

import (
	"strings"
	"time"

	dErrors "regulus/pkg/domain-errors"
)

// Action is the operation an actor wants to perform on a resource.
type Action string

const (
	ActionView     Action = "view"
	ActionExport   Action = "export"
	ActionPrint    Action = "print"
	ActionDownload Action = "download"

	// Workflow operations, evaluated against workflow resources.
	ActionStart   Action = "start"
	ActionAdvance Action = "advance"
	ActionCancel  Action = "cancel"
	ActionRetry   Action = "retry"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionView, ActionExport, ActionPrint, ActionDownload,
		ActionStart, ActionAdvance, ActionCancel, ActionRetry:
		return true
	}
	return false
}

// IsDataAccess reports whether a is one of the data access actions as
// opposed to a workflow operation.
func (a Action) IsDataAccess() bool {
	switch a {
	case ActionView, ActionExport, ActionPrint, ActionDownload:
		return true
	}
	return false
}

// CounterKind returns the DLP counter an action draws from. Exports and
// downloads share the daily export counter; every other action, workflow
// operations included, draws from the hourly view counter.
func (a Action) CounterKind() CounterKind {
	switch a {
	case ActionExport, ActionDownload:
		return CounterExports
	default:
		return CounterViews
	}
}

// Roles whose origin IP must fall inside a configured range.
const (
	RoleAdmin       = "admin"
	RoleInspector   = "inspector"
	RoleEmbassyUser = "embassy_user"
)

// RoleRegistrar runs registry casework such as application reviews.
const RoleRegistrar = "registrar"

// DefaultSensitiveRoles applies when the policy file does not list any.
var DefaultSensitiveRoles = []string{RoleAdmin, RoleInspector, RoleEmbassyUser}

// AccessRequest is an immutable request to act on a resource.
type AccessRequest struct {
	ActorID       string    `json:"actor_id"`
	ActorRole     string    `json:"actor_role"`
	ResourceType  string    `json:"resource_type"`
	ResourceID    string    `json:"resource_id"`
	Action        Action    `json:"action"`
	Justification string    `json:"justification,omitempty"`
	OriginIP      string    `json:"origin_ip"`
	Timestamp     time.Time `json:"timestamp"`
}

// Validate checks structural completeness. Policy failures are decisions,
// not errors.
func (r AccessRequest) Validate() error {
	if strings.TrimSpace(r.ActorID) == "" {
		return dErrors.New(dErrors.CodeValidation, "actor_id is required")
	}
	if strings.TrimSpace(r.ResourceType) == "" {
		return dErrors.New(dErrors.CodeValidation, "resource_type is required")
	}
	if !r.Action.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "action must be one of view, export, print, download, start, advance, cancel, retry")
	}
	return nil
}

// SecurityContext is the authenticated session state passed explicitly into
// every decision. Nothing is read from ambient globals.
type SecurityContext struct {
	ActorID           string
	ActorRole         string
	SessionID         string
	OriginIP          string
	DeviceFingerprint string
	// StepUpProof is the token returned by a verified challenge, if any.
	StepUpProof string
	RequestID   string
}

// IsZero reports whether no session is attached.
func (sc SecurityContext) IsZero() bool {
	return sc.ActorID == ""
}

// Decision is the outcome of one evaluation. It is never persisted; only its
// audit projection is.
type Decision struct {
	Allowed        bool     `json:"allowed"`
	RequiresStepUp bool     `json:"requires_step_up"`
	ThrottleMillis int      `json:"throttle_millis"`
	Violations     []string `json:"violations"`
	Reason         string   `json:"reason"`
	// Obligations the caller must honour when acting on an allow, e.g. "watermark".
	Obligations []string `json:"obligations,omitempty"`
	// ChallengeID is set when a step-up challenge was issued for this decision.
	ChallengeID string `json:"challenge_id,omitempty"`
}

// Throttle returns the delay the caller applies before proceeding.
func (d Decision) Throttle() time.Duration {
	return time.Duration(d.ThrottleMillis) * time.Millisecond
}

const ObligationWatermark = "watermark"

// Violation messages. These are machine-readable reasons surfaced to callers
// and written to the audit trail.
const (
	ReasonAllowed               = "allowed"
	ReasonStepUpRequired        = "step-up authentication required"
	ViolationInsufficientRole   = "insufficient role"
	ViolationContextMismatch    = "security context does not match request"
	ViolationIPNotAllowed       = "origin ip not allowed for role"
	ViolationNoPolicy           = "no dlp policy for resource type"
	ViolationJustification      = "justification required"
	ViolationHourlyViews        = "Exceeded hourly view limit"
	ViolationDailyExports       = "Exceeded daily export limit"
	ViolationOutsideTimeWindow  = "outside allowed time window"
	ViolationIPOutsidePolicy    = "origin ip outside policy ranges"
	ViolationInvalidOriginIP    = "origin ip invalid"
	ViolationCounterUnavailable = "dlp counter unavailable"
)

// CounterKind names a per-actor DLP counter.
type CounterKind string

const (
	CounterViews   CounterKind = "views"
	CounterExports CounterKind = "exports"
)

// Window is the rolling reset period of the counter kind.
func (k CounterKind) Window() time.Duration {
	if k == CounterExports {
		return 24 * time.Hour
	}
	return time.Hour
}

// CounterKey identifies one actor's counter for one resource type.
func CounterKey(actorID, resourceType string, kind CounterKind) string {
	return "dlp:" + string(kind) + ":" + resourceType + ":" + actorID
}

// CounterResult is the state of a counter after a consume or peek.
type CounterResult struct {
	Allowed    bool
	Count      int
	Limit      int
	WindowFrom time.Time
	ResetAt    time.Time
}
