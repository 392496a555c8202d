// Package engine exposes the inbound operations of the access-policy and
// workflow engine independently of any transport.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	challengeModels "regulus/internal/challenge/models"
	policyModels "regulus/internal/policy/models"
	"regulus/internal/workflow"
	wfModels "regulus/internal/workflow/models"
	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
	"regulus/pkg/requestcontext"
)

// ResourceAuditLog is the DLP resource type guarding audit exports.
const ResourceAuditLog = "audit_log"

// Gate decides access requests.
type Gate interface {
	Evaluate(ctx context.Context, req policyModels.AccessRequest, sc policyModels.SecurityContext) (*policyModels.Decision, error)
}

// Challenges issues and verifies step-up challenges and manages device trust.
type Challenges interface {
	Initiate(ctx context.Context, actorID string, preferred challengeModels.Method) (*challengeModels.Challenge, error)
	Verify(ctx context.Context, challengeID, code string) (*challengeModels.VerifyResult, error)
	TrustDevice(ctx context.Context, actorID, fingerprint, grantedBy string) (*challengeModels.Device, error)
	RevokeDevice(ctx context.Context, actorID, fingerprint, revokedBy string) (*challengeModels.Device, error)
}

// Workflows drives workflow instances.
type Workflows interface {
	Start(ctx context.Context, t wfModels.Type, payload wfModels.Metadata, sc policyModels.SecurityContext) (*wfModels.Instance, error)
	Advance(ctx context.Context, id string, sc policyModels.SecurityContext, opts ...workflow.AdvanceOption) (*wfModels.Instance, error)
	Cancel(ctx context.Context, id, reason string, sc policyModels.SecurityContext) (*wfModels.Instance, error)
	Retry(ctx context.Context, id string, sc policyModels.SecurityContext, opts workflow.RetryOptions) (*wfModels.Instance, error)
	Get(ctx context.Context, id string, sc policyModels.SecurityContext) (*wfModels.Instance, error)
	List(ctx context.Context, filter wfModels.ListFilter, sc policyModels.SecurityContext) ([]*wfModels.Instance, error)
}

// AuditLog reads the verified audit trail.
type AuditLog interface {
	ExportVerified(ctx context.Context, start, end time.Time, f audit.Filter) ([]audit.Entry, error)
	VerifyLog(ctx context.Context) (int, error)
}

// Facade is the single entry point used by transports and tools.
type Facade struct {
	gate       Gate
	challenges Challenges
	workflows  Workflows
	auditLog   AuditLog
	logger     *slog.Logger
	wait       func(ctx context.Context, d time.Duration) error
}

type Option func(*Facade)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Facade) {
		f.logger = logger
	}
}

// WithThrottleWait replaces the function used to honour decision throttles.
func WithThrottleWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Facade) {
		f.wait = wait
	}
}

func New(gate Gate, challenges Challenges, workflows Workflows, auditLog AuditLog, opts ...Option) (*Facade, error) {
	if gate == nil {
		return nil, errors.New("policy gate is required")
	}
	if challenges == nil {
		return nil, errors.New("challenge authenticator is required")
	}
	if workflows == nil {
		return nil, errors.New("workflow engine is required")
	}
	if auditLog == nil {
		return nil, errors.New("audit log is required")
	}
	f := &Facade{
		gate:       gate,
		challenges: challenges,
		workflows:  workflows,
		auditLog:   auditLog,
		logger:     slog.Default(),
		wait:       sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Evaluate decides req under sc. The decision is returned as-is; honouring
// its throttle and obligations is the caller's job.
func (f *Facade) Evaluate(ctx context.Context, req policyModels.AccessRequest, sc policyModels.SecurityContext) (*policyModels.Decision, error) {
	return f.gate.Evaluate(ctx, req, sc)
}

// InitiateChallenge issues a step-up challenge to the session's actor.
func (f *Facade) InitiateChallenge(ctx context.Context, sc policyModels.SecurityContext, preferred challengeModels.Method) (*challengeModels.Challenge, error) {
	if sc.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "security context is required")
	}
	return f.challenges.Initiate(ctx, sc.ActorID, preferred)
}

func (f *Facade) VerifyChallenge(ctx context.Context, challengeID, code string) (*challengeModels.VerifyResult, error) {
	return f.challenges.Verify(ctx, challengeID, code)
}

// TrustDevice elevates a device of actorID. Only admins may change trust.
func (f *Facade) TrustDevice(ctx context.Context, sc policyModels.SecurityContext, actorID, fingerprint string) (*challengeModels.Device, error) {
	if err := requireAdmin(sc); err != nil {
		return nil, err
	}
	return f.challenges.TrustDevice(ctx, actorID, fingerprint, sc.ActorID)
}

func (f *Facade) RevokeDevice(ctx context.Context, sc policyModels.SecurityContext, actorID, fingerprint string) (*challengeModels.Device, error) {
	if err := requireAdmin(sc); err != nil {
		return nil, err
	}
	return f.challenges.RevokeDevice(ctx, actorID, fingerprint, sc.ActorID)
}

func requireAdmin(sc policyModels.SecurityContext) error {
	if sc.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "security context is required")
	}
	if sc.ActorRole != policyModels.RoleAdmin {
		return dErrors.New(dErrors.CodeForbidden, "device trust changes require the admin role")
	}
	return nil
}

func (f *Facade) StartWorkflow(ctx context.Context, t wfModels.Type, payload wfModels.Metadata, sc policyModels.SecurityContext) (*wfModels.Instance, error) {
	return f.workflows.Start(ctx, t, payload, sc)
}

// AdvanceWorkflow runs the next step of id. input carries caller-supplied
// data for steps that need it, such as a review decision.
func (f *Facade) AdvanceWorkflow(ctx context.Context, id string, input wfModels.Metadata, sc policyModels.SecurityContext) (*wfModels.Instance, error) {
	if len(input) == 0 {
		return f.workflows.Advance(ctx, id, sc)
	}
	return f.workflows.Advance(ctx, id, sc, workflow.WithInput(input))
}

func (f *Facade) CancelWorkflow(ctx context.Context, id, reason string, sc policyModels.SecurityContext) (*wfModels.Instance, error) {
	return f.workflows.Cancel(ctx, id, reason, sc)
}

func (f *Facade) RetryWorkflow(ctx context.Context, id string, opts workflow.RetryOptions, sc policyModels.SecurityContext) (*wfModels.Instance, error) {
	return f.workflows.Retry(ctx, id, sc, opts)
}

func (f *Facade) GetWorkflow(ctx context.Context, id string, sc policyModels.SecurityContext) (*wfModels.Instance, error) {
	return f.workflows.Get(ctx, id, sc)
}

// ListWorkflows lists the instances visible to sc.
func (f *Facade) ListWorkflows(ctx context.Context, filter wfModels.ListFilter, sc policyModels.SecurityContext) ([]*wfModels.Instance, error) {
	return f.workflows.List(ctx, filter, sc)
}

// ExportRequest selects a range of the audit trail.
type ExportRequest struct {
	Start         time.Time
	End           time.Time
	Filter        audit.Filter
	Justification string
}

// ExportResult is a verified audit range together with the decision that
// permitted it.
type ExportResult struct {
	Entries  []audit.Entry
	Decision *policyModels.Decision
}

// ExportAudit evaluates an export of the audit log under sc and, when
// allowed, waits out the decision's throttle before reading the verified
// range. A denial is returned as an error alongside the decision.
func (f *Facade) ExportAudit(ctx context.Context, req ExportRequest, sc policyModels.SecurityContext) (*ExportResult, error) {
	if sc.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "security context is required")
	}
	decision, err := f.gate.Evaluate(ctx, policyModels.AccessRequest{
		ActorID:       sc.ActorID,
		ActorRole:     sc.ActorRole,
		ResourceType:  ResourceAuditLog,
		ResourceID:    exportResourceID(req.Start, req.End),
		Action:        policyModels.ActionExport,
		Justification: req.Justification,
		OriginIP:      sc.OriginIP,
		Timestamp:     requestcontext.Now(ctx),
	}, sc)
	if err != nil {
		return nil, err
	}
	result := &ExportResult{Decision: decision}
	if !decision.Allowed {
		if decision.RequiresStepUp {
			return result, dErrors.New(dErrors.CodeStepUpRequired, decision.Reason)
		}
		return result, dErrors.New(dErrors.CodeForbidden, decision.Reason)
	}

	if err := f.wait(ctx, decision.Throttle()); err != nil {
		return result, dErrors.Wrap(err, dErrors.CodeTimeout, "export cancelled while throttled")
	}

	entries, err := f.auditLog.ExportVerified(ctx, req.Start, req.End, req.Filter)
	if err != nil {
		return result, err
	}
	result.Entries = entries
	f.logger.InfoContext(ctx, "audit range exported",
		"actor_id", sc.ActorID,
		"entries", len(entries),
		"throttle_ms", decision.ThrottleMillis,
	)
	return result, nil
}

func exportResourceID(start, end time.Time) string {
	id := start.UTC().Format(time.RFC3339) + "/"
	if !end.IsZero() {
		id += end.UTC().Format(time.RFC3339)
	}
	return id
}

// VerifyAudit walks the whole persisted trail. Only admins may run it.
func (f *Facade) VerifyAudit(ctx context.Context, sc policyModels.SecurityContext) (int, error) {
	if sc.IsZero() {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "security context is required")
	}
	if sc.ActorRole != policyModels.RoleAdmin {
		return 0, dErrors.New(dErrors.CodeForbidden, "audit verification requires the admin role")
	}
	n, err := f.auditLog.VerifyLog(ctx)
	if err != nil {
		f.logger.ErrorContext(ctx, "audit chain verification failed", "checked", n, "error", err)
		return n, dErrors.Wrap(err, dErrors.CodeIntegrity, "audit chain verification failed")
	}
	return n, nil
}
