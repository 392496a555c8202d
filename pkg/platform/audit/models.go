package audit

import (
	"context"
	"time"
)

// Action names an audited operation. Critical actions bypass batching.
type Action string

const (
	// Access decisions, one per PolicyGate evaluation.
	ActionAccessView     Action = "access.view"
	ActionAccessExport   Action = "access.export"
	ActionAccessPrint    Action = "access.print"
	ActionAccessDownload Action = "access.download"
	ActionAccessStart    Action = "access.start"
	ActionAccessAdvance  Action = "access.advance"
	ActionAccessCancel   Action = "access.cancel"
	ActionAccessRetry    Action = "access.retry"

	// Step-up authentication.
	ActionMFAInitiated Action = "MFA_INITIATED"
	ActionMFASuccess   Action = "MFA_SUCCESS"
	ActionMFAFailure   Action = "MFA_FAILURE"
	ActionDeviceTrust  Action = "device.trusted"
	ActionDeviceRevoke Action = "device.revoked"

	// Workflow transitions.
	ActionWorkflowStarted   Action = "workflow.started"
	ActionWorkflowStep      Action = "workflow.step_completed"
	ActionWorkflowStepFail  Action = "workflow.step_failed"
	ActionWorkflowCompleted Action = "workflow.completed"
	ActionWorkflowCancelled Action = "workflow.cancelled"
	ActionWorkflowRetried   Action = "workflow.retried"
	ActionWorkflowDenied    Action = "workflow.denied"

	// License and administrative actions.
	ActionLicenseIssued    Action = "license.issued"
	ActionLicenseSuspended Action = "license.suspended"
	ActionLicenseRevoked   Action = "license.revoked"
	ActionDataDisclosed    Action = "data.disclosed"
	ActionAdminLogin       Action = "admin.login"
	ActionRoleChanged      Action = "role.changed"
	ActionConfigChanged    Action = "system.config_changed"
)

// criticalActions must be durable before Append returns.
// Data egress (export, download, third-party disclosure) counts as data
// export.
var criticalActions = map[Action]bool{
	ActionLicenseSuspended: true,
	ActionLicenseRevoked:   true,
	ActionAdminLogin:       true,
	ActionAccessExport:     true,
	ActionAccessDownload:   true,
	ActionDataDisclosed:    true,
	ActionConfigChanged:    true,
	ActionRoleChanged:      true,
	ActionDeviceTrust:      true,
	ActionDeviceRevoke:     true,
}

// IsCritical reports whether entries with this action skip the batch queue.
func (a Action) IsCritical() bool {
	return criticalActions[a]
}

// GenesisHash is the prevHash of the first entry in a log.
const GenesisHash = "genesis"

// Entry is a single hash-chained audit record.
//
// Sequence, Hash and PrevHash are assigned by the Trail; callers fill the rest.
// Hash covers ActorID, Action, Resource, ResourceID, Success, Timestamp and
// PrevHash. Metadata and Reason are stored but not chained.
type Entry struct {
	Sequence   uint64            `json:"sequence"`
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	ActorID    string            `json:"actor_id"`
	ActorRole  string            `json:"actor_role"`
	Action     Action            `json:"action"`
	Resource   string            `json:"resource"`
	ResourceID string            `json:"resource_id"`
	Success    bool              `json:"success"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Hash       string            `json:"hash"`
	PrevHash   string            `json:"prev_hash"`
}

// Query bounds a read over persisted entries. Zero values are open bounds.
type Query struct {
	FromSequence uint64
	ToSequence   uint64
	Start        time.Time
	End          time.Time
	Limit        int
}

// covers reports whether e falls inside the time bounds of q.
func (q Query) covers(e Entry) bool {
	if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
		return false
	}
	return q.End.IsZero() || !e.Timestamp.After(q.End)
}

// Filter narrows an export after the chain has been read.
type Filter struct {
	ActorID    string
	Action     Action
	Resource   string
	ResourceID string
	Success    *bool
}

// Matches reports whether e satisfies every set field of f.
func (f Filter) Matches(e Entry) bool {
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Resource != "" && e.Resource != f.Resource {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	return true
}

// Store persists chained entries keyed by sequence.
type Store interface {
	// AppendBatch persists entries in sequence order. It must be idempotent
	// for entries already stored with the same sequence.
	AppendBatch(ctx context.Context, entries []Entry) error

	// Range returns entries ordered by ascending sequence.
	Range(ctx context.Context, q Query) ([]Entry, error)

	// Get returns the entry with the given sequence or sentinel.ErrNotFound.
	Get(ctx context.Context, sequence uint64) (*Entry, error)

	// Head returns the last persisted entry, or nil for an empty log.
	Head(ctx context.Context) (*Entry, error)
}
