// Package workflow runs regulated processes as resumable sequences of steps.
//
// An instance advances one step per Advance call. Before a step runs, its
// name is persisted as the pending step; the step's result clears it. An
// instance found with a stale pending step was interrupted between a side
// effect and persistence and is failed rather than re-run, since steps are
// not guaranteed idempotent. Failed instances are re-opened only through
// Retry.
//
// Every operation a session performs is first decided by the Authorizer
// against the resource Type.Resource(), and the decision's throttle is
// waited out before the instance is touched.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	policyModels "regulus/internal/policy/models"
	"regulus/internal/workflow/metrics"
	"regulus/internal/workflow/models"
	"regulus/internal/workflow/schema"
	"regulus/pkg/domain"
	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
	"regulus/pkg/platform/sentinel"
	"regulus/pkg/platform/tracing"
	"regulus/pkg/requestcontext"
)

const (
	defaultStepTimeout = 5 * time.Minute
	auditResource      = "workflow"
)

// PayloadValidator checks a start payload for a workflow type.
type PayloadValidator interface {
	Validate(t models.Type, payload models.Metadata) error
}

// Engine drives workflow instances.
type Engine struct {
	store     Store
	registry  *Registry
	auditor   AuditAppender
	gate      Authorizer
	validator PayloadValidator
	claims    *claims
	wait      func(ctx context.Context, d time.Duration) error

	stepTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithPayloadValidator replaces the embedded JSON Schema validator.
func WithPayloadValidator(v PayloadValidator) Option {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithThrottleWait replaces the function used to honour decision throttles.
func WithThrottleWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) {
		e.wait = wait
	}
}

// WithStepTimeout bounds a single step. A pending step older than this is
// treated as interrupted.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.stepTimeout = d
		}
	}
}

// New creates an Engine. Every workflow type must have registered steps.
func New(store Store, registry *Registry, auditor AuditAppender, gate Authorizer, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("workflow store is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("step registry is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit trail is required")
	}
	if gate == nil {
		return nil, fmt.Errorf("workflow authorizer is required")
	}
	if err := registry.Complete(); err != nil {
		return nil, err
	}

	e := &Engine{
		store:       store,
		registry:    registry,
		auditor:     auditor,
		gate:        gate,
		claims:      newClaims(),
		wait:        sleep,
		stepTimeout: defaultStepTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validator == nil {
		v, err := schema.New()
		if err != nil {
			return nil, fmt.Errorf("compile payload schemas: %w", err)
		}
		e.validator = v
	}
	return e, nil
}

type advanceOptions struct {
	input models.Metadata
}

type AdvanceOption func(*advanceOptions)

// WithInput passes caller data to the step this advance runs, e.g. a
// review decision.
func WithInput(input models.Metadata) AdvanceOption {
	return func(o *advanceOptions) {
		o.input = input
	}
}

// RetryOptions control how a failed instance is re-opened.
type RetryOptions struct {
	// AllowRepeatCharge must be set to re-open a failed payment step, since
	// the earlier attempt may already have charged.
	AllowRepeatCharge bool
	Reason            string
}

// Start creates and persists an instance at step 0.
func (e *Engine) Start(ctx context.Context, t models.Type, payload models.Metadata, sc policyModels.SecurityContext) (*models.Instance, error) {
	if err := requireSession(sc); err != nil {
		return nil, err
	}
	steps, ok := e.registry.Steps(t)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown workflow type %q", t))
	}
	if err := e.authorize(ctx, sc, t, "", policyModels.ActionStart, ""); err != nil {
		return nil, err
	}
	md := payload.Clone()
	if err := e.validator.Validate(t, md); err != nil {
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "workflow.Start", tracing.AttrWorkflowType.String(string(t)))
	defer span.End()

	now := requestcontext.Now(ctx)
	inst := &models.Instance{
		ID:         domain.NewWorkflowID().String(),
		Type:       t,
		Status:     models.StatusInitiated,
		TotalSteps: len(steps),
		Metadata:   md,
		CreatedBy:  sc.ActorID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}
	span.SetAttributes(tracing.AttrWorkflowID.String(inst.ID))

	if err := e.store.Create(ctx, inst); err != nil {
		tracing.Fail(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist workflow")
	}
	e.metrics.IncrementTransition(string(t), string(inst.Status))
	_ = e.audit(ctx, sc, inst, audit.ActionWorkflowStarted, true, "workflow started", map[string]string{
		"total_steps": strconv.Itoa(inst.TotalSteps),
	})
	e.logger.InfoContext(ctx, "workflow started",
		"workflow_id", inst.ID,
		"workflow_type", t,
		"actor_id", sc.ActorID,
	)
	return inst.Clone(), nil
}

// Advance runs the step at the current index. A step failure fails the
// instance and is returned as a CodeStepFailed error together with the
// persisted instance. Advancing a terminal instance is an error and runs
// nothing. Concurrent operations on the same instance get CodeConflict.
func (e *Engine) Advance(ctx context.Context, id string, sc policyModels.SecurityContext, opts ...AdvanceOption) (*models.Instance, error) {
	if err := requireSession(sc); err != nil {
		return nil, err
	}
	if _, err := domain.ParseWorkflowID(id); err != nil {
		return nil, err
	}
	var o advanceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := e.authorizeInstance(ctx, sc, id, policyModels.ActionAdvance, ""); err != nil {
		return nil, err
	}

	if !e.claims.acquire(id) {
		e.metrics.IncrementConflict()
		return nil, dErrors.New(dErrors.CodeConflict, "workflow operation already in flight")
	}
	defer e.claims.release(id)

	inst, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.PendingStep != "" {
		return e.handlePending(ctx, sc, inst)
	}
	if inst.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "workflow is "+string(inst.Status))
	}

	steps, _ := e.registry.Steps(inst.Type)
	if inst.CurrentStepIndex >= len(steps) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "workflow has no remaining steps")
	}
	step := steps[inst.CurrentStepIndex]
	if err := e.checkStepRole(ctx, sc, inst, step); err != nil {
		return nil, err
	}
	retries, _ := inst.Metadata.Int(models.MetaRetries)
	in := StepInput{
		WorkflowID: inst.ID,
		Type:       inst.Type,
		Step:       step.Name(),
		Metadata:   inst.Metadata.Clone(),
		Input:      o.input.Clone(),
		Security:   sc,
		Attempt:    retries,
		Now:        requestcontext.Now(ctx),
	}
	if v, ok := step.(InputValidator); ok {
		if err := v.ValidateInput(in); err != nil {
			return nil, err
		}
	}

	ctx, span := tracing.Start(ctx, "workflow.Advance",
		tracing.AttrWorkflowID.String(inst.ID),
		tracing.AttrWorkflowType.String(string(inst.Type)),
		tracing.AttrStep.String(step.Name()),
		tracing.AttrStepIndex.Int(inst.CurrentStepIndex),
	)
	defer span.End()

	inst.PendingStep = step.Name()
	if err := e.save(ctx, inst); err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	start := time.Now()
	outcome, runErr := e.run(ctx, step, in)
	e.metrics.ObserveStep(string(inst.Type), step.Name(), runErr == nil, time.Since(start))

	if runErr != nil {
		tracing.Fail(span, runErr)
		return e.fail(ctx, sc, inst, step.Name(), failureReason(runErr), runErr)
	}
	return e.complete(ctx, sc, inst, step.Name(), outcome)
}

// run invokes the step under the step timeout, turning a panic into a
// step failure.
func (e *Engine) run(ctx context.Context, step Step, in StepInput) (outcome *StepOutcome, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "workflow step panicked",
				"workflow_id", in.WorkflowID,
				"step", in.Step,
				"panic", fmt.Sprint(r),
			)
			outcome, err = nil, dErrors.New(dErrors.CodeStepFailed, "step aborted unexpectedly")
		}
	}()
	outcome, err = step.Run(ctx, in)
	if err == nil && outcome == nil {
		outcome = &StepOutcome{}
	}
	return outcome, err
}

func (e *Engine) complete(ctx context.Context, sc policyModels.SecurityContext, inst *models.Instance, name string, outcome *StepOutcome) (*models.Instance, error) {
	for _, k := range outcome.Redact {
		delete(inst.Metadata, k)
	}
	for k, v := range outcome.Output.Clone() {
		inst.Metadata[k] = v
	}
	inst.CurrentStepIndex++
	inst.LastStep = name
	inst.PendingStep = ""
	inst.Status = models.StatusInProgress
	if inst.CurrentStepIndex >= inst.TotalSteps {
		inst.Status = models.StatusCompleted
	}
	if err := e.save(ctx, inst); err != nil {
		return nil, err
	}

	e.metrics.IncrementTransition(string(inst.Type), string(inst.Status))
	_ = e.audit(ctx, sc, inst, audit.ActionWorkflowStep, true, "step completed", map[string]string{
		"step": name,
	})

	var auditErr error
	for _, ev := range outcome.Events {
		if err := e.auditEvent(ctx, sc, inst, name, ev); err != nil && ev.Action.IsCritical() {
			auditErr = err
		}
	}
	if inst.Status == models.StatusCompleted {
		_ = e.audit(ctx, sc, inst, audit.ActionWorkflowCompleted, true, "workflow completed", nil)
	}

	e.logger.InfoContext(ctx, "workflow step completed",
		"workflow_id", inst.ID,
		"workflow_type", inst.Type,
		"step", name,
		"status", inst.Status,
	)
	if auditErr != nil {
		return inst.Clone(), dErrors.Wrap(auditErr, dErrors.CodeUnavailable, "step completed but its audit record could not be persisted")
	}
	return inst.Clone(), nil
}

func (e *Engine) fail(ctx context.Context, sc policyModels.SecurityContext, inst *models.Instance, name, reason string, cause error) (*models.Instance, error) {
	inst.Status = models.StatusFailed
	inst.PendingStep = ""
	inst.Metadata[models.MetaFailureReason] = reason
	inst.Metadata[models.MetaFailedStep] = name
	if err := e.save(ctx, inst); err != nil {
		return nil, err
	}

	e.metrics.IncrementTransition(string(inst.Type), string(inst.Status))
	_ = e.audit(ctx, sc, inst, audit.ActionWorkflowStepFail, false, reason, map[string]string{
		"step": name,
	})
	e.logger.WarnContext(ctx, "workflow step failed",
		"workflow_id", inst.ID,
		"workflow_type", inst.Type,
		"step", name,
		"reason", reason,
		"error", cause,
	)
	return inst.Clone(), dErrors.Wrap(cause, dErrors.CodeStepFailed, fmt.Sprintf("step %s failed: %s", name, reason))
}

// handlePending decides what a pending marker means: a step still running
// elsewhere, or one interrupted before its result was persisted.
func (e *Engine) handlePending(ctx context.Context, sc policyModels.SecurityContext, inst *models.Instance) (*models.Instance, error) {
	if requestcontext.Now(ctx).Sub(inst.UpdatedAt) < e.stepTimeout {
		e.metrics.IncrementConflict()
		return nil, dErrors.New(dErrors.CodeConflict, "workflow step "+inst.PendingStep+" is in flight")
	}
	return e.interrupt(ctx, sc, inst)
}

func (e *Engine) interrupt(ctx context.Context, sc policyModels.SecurityContext, inst *models.Instance) (*models.Instance, error) {
	name := inst.PendingStep
	e.metrics.IncrementInterrupted()
	reason := "interrupted during " + name + "; outcome unknown"
	return e.fail(ctx, sc, inst, name, reason, sentinel.ErrInvalidState)
}

// RecoverInterrupted fails every open instance whose pending step is older
// than the step timeout. Run it at startup, before serving.
func (e *Engine) RecoverInterrupted(ctx context.Context, sc policyModels.SecurityContext) (int, error) {
	if err := requireSession(sc); err != nil {
		return 0, err
	}
	recovered := 0
	for _, status := range []models.Status{models.StatusInitiated, models.StatusInProgress} {
		open, err := e.store.List(ctx, models.ListFilter{Status: status})
		if err != nil {
			return recovered, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list workflows")
		}
		for _, inst := range open {
			if inst.PendingStep == "" {
				continue
			}
			if e.recoverOne(ctx, sc, inst.ID) {
				recovered++
			}
		}
	}
	return recovered, nil
}

func (e *Engine) recoverOne(ctx context.Context, sc policyModels.SecurityContext, id string) bool {
	if !e.claims.acquire(id) {
		return false
	}
	defer e.claims.release(id)

	inst, err := e.load(ctx, id)
	if err != nil || inst.PendingStep == "" || inst.Status.IsTerminal() {
		return false
	}
	if requestcontext.Now(ctx).Sub(inst.UpdatedAt) < e.stepTimeout {
		return false
	}
	_, err = e.interrupt(ctx, sc, inst)
	return dErrors.HasCode(err, dErrors.CodeStepFailed)
}

// Cancel stops an initiated or in-progress instance. Cancelled is terminal.
func (e *Engine) Cancel(ctx context.Context, id, reason string, sc policyModels.SecurityContext) (*models.Instance, error) {
	if err := requireSession(sc); err != nil {
		return nil, err
	}
	if _, err := domain.ParseWorkflowID(id); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "cancel reason is required")
	}
	if err := e.authorizeInstance(ctx, sc, id, policyModels.ActionCancel, reason); err != nil {
		return nil, err
	}
	if !e.claims.acquire(id) {
		e.metrics.IncrementConflict()
		return nil, dErrors.New(dErrors.CodeConflict, "workflow operation already in flight")
	}
	defer e.claims.release(id)

	inst, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.Status != models.StatusInitiated && inst.Status != models.StatusInProgress {
		return nil, dErrors.New(dErrors.CodeInvalidState, "workflow is "+string(inst.Status))
	}
	if inst.PendingStep != "" && requestcontext.Now(ctx).Sub(inst.UpdatedAt) < e.stepTimeout {
		return nil, dErrors.New(dErrors.CodeConflict, "workflow step "+inst.PendingStep+" is in flight")
	}

	inst.Status = models.StatusCancelled
	inst.PendingStep = ""
	inst.Metadata[models.MetaCancelReason] = reason
	inst.Metadata[models.MetaCancelledBy] = sc.ActorID
	if err := e.save(ctx, inst); err != nil {
		return nil, err
	}

	e.metrics.IncrementTransition(string(inst.Type), string(inst.Status))
	_ = e.audit(ctx, sc, inst, audit.ActionWorkflowCancelled, true, reason, nil)
	e.logger.InfoContext(ctx, "workflow cancelled",
		"workflow_id", inst.ID,
		"workflow_type", inst.Type,
		"actor_id", sc.ActorID,
		"reason", reason,
	)
	return inst.Clone(), nil
}

// Retry re-opens a failed instance at the step that failed. The step runs
// on the next Advance.
func (e *Engine) Retry(ctx context.Context, id string, sc policyModels.SecurityContext, opts RetryOptions) (*models.Instance, error) {
	if err := requireSession(sc); err != nil {
		return nil, err
	}
	if _, err := domain.ParseWorkflowID(id); err != nil {
		return nil, err
	}
	if err := e.authorizeInstance(ctx, sc, id, policyModels.ActionRetry, opts.Reason); err != nil {
		return nil, err
	}
	if !e.claims.acquire(id) {
		e.metrics.IncrementConflict()
		return nil, dErrors.New(dErrors.CodeConflict, "workflow operation already in flight")
	}
	defer e.claims.release(id)

	inst, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.Status != models.StatusFailed {
		return nil, dErrors.New(dErrors.CodeInvalidState, "only failed workflows can be retried")
	}
	steps, _ := e.registry.Steps(inst.Type)
	if inst.CurrentStepIndex >= len(steps) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "workflow has no remaining steps")
	}
	step := steps[inst.CurrentStepIndex]
	if c, ok := step.(Charging); ok && c.Charges() && !opts.AllowRepeatCharge {
		return nil, dErrors.New(dErrors.CodeInvalidState, "retrying a payment step requires allowRepeatCharge")
	}

	previous := inst.Metadata.String(models.MetaFailureReason)
	retries, _ := inst.Metadata.Int(models.MetaRetries)
	delete(inst.Metadata, models.MetaFailureReason)
	delete(inst.Metadata, models.MetaFailedStep)
	inst.Metadata[models.MetaRetries] = retries + 1
	inst.Status = models.StatusInProgress
	if inst.CurrentStepIndex == 0 {
		inst.Status = models.StatusInitiated
	}
	if err := e.save(ctx, inst); err != nil {
		return nil, err
	}

	reason := opts.Reason
	if reason == "" {
		reason = "workflow retried"
	}
	e.metrics.IncrementTransition(string(inst.Type), string(inst.Status))
	_ = e.audit(ctx, sc, inst, audit.ActionWorkflowRetried, true, reason, map[string]string{
		"step":                step.Name(),
		"previous_failure":    previous,
		"allow_repeat_charge": strconv.FormatBool(opts.AllowRepeatCharge),
	})
	e.logger.InfoContext(ctx, "workflow retried",
		"workflow_id", inst.ID,
		"workflow_type", inst.Type,
		"step", step.Name(),
		"actor_id", sc.ActorID,
	)
	return inst.Clone(), nil
}

// Get returns an instance once the session may view its type.
func (e *Engine) Get(ctx context.Context, id string, sc policyModels.SecurityContext) (*models.Instance, error) {
	if err := requireSession(sc); err != nil {
		return nil, err
	}
	if _, err := domain.ParseWorkflowID(id); err != nil {
		return nil, err
	}
	inst, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(ctx, sc, inst.Type, inst.ID, policyModels.ActionView, ""); err != nil {
		return nil, err
	}
	return inst.Clone(), nil
}

// List returns instances matching filter, e.g. open ones after a restart.
// Only admins see every instance; other sessions see the ones they started.
func (e *Engine) List(ctx context.Context, filter models.ListFilter, sc policyModels.SecurityContext) ([]*models.Instance, error) {
	if err := requireSession(sc); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown workflow status")
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown workflow type")
	}
	if sc.ActorRole != policyModels.RoleAdmin {
		filter.CreatedBy = sc.ActorID
	}
	out, err := e.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list workflows")
	}
	return out, nil
}

// authorize asks the gate whether sc may perform op on a workflow of type
// t and waits out the decision's throttle. id is empty for a start.
func (e *Engine) authorize(ctx context.Context, sc policyModels.SecurityContext, t models.Type, id string, op policyModels.Action, justification string) error {
	decision, err := e.gate.Evaluate(ctx, policyModels.AccessRequest{
		ActorID:       sc.ActorID,
		ActorRole:     sc.ActorRole,
		ResourceType:  t.Resource(),
		ResourceID:    id,
		Action:        op,
		Justification: justification,
		OriginIP:      sc.OriginIP,
		Timestamp:     requestcontext.Now(ctx),
	}, sc)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		e.logger.InfoContext(ctx, "workflow operation denied",
			"workflow_id", id,
			"workflow_type", t,
			"operation", op,
			"actor_id", sc.ActorID,
			"reason", decision.Reason,
		)
		if decision.RequiresStepUp {
			return dErrors.New(dErrors.CodeStepUpRequired, decision.Reason)
		}
		return dErrors.New(dErrors.CodeForbidden, decision.Reason)
	}
	if err := e.wait(ctx, decision.Throttle()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "workflow operation cancelled while throttled")
	}
	return nil
}

// authorizeInstance reads id for its type and authorizes op on it. It runs
// before the instance claim is taken, so a throttle never holds the claim.
func (e *Engine) authorizeInstance(ctx context.Context, sc policyModels.SecurityContext, id string, op policyModels.Action, justification string) error {
	inst, err := e.load(ctx, id)
	if err != nil {
		return err
	}
	return e.authorize(ctx, sc, inst.Type, inst.ID, op, justification)
}

// checkStepRole refuses a Restricted step to other roles and audits the
// refusal. The instance is left as it was.
func (e *Engine) checkStepRole(ctx context.Context, sc policyModels.SecurityContext, inst *models.Instance, step Step) error {
	r, ok := step.(Restricted)
	if !ok || slices.Contains(r.AllowedRoles(), sc.ActorRole) {
		return nil
	}
	reason := "step " + step.Name() + " requires role " + strings.Join(r.AllowedRoles(), " or ")
	_ = e.audit(ctx, sc, inst, audit.ActionWorkflowDenied, false, reason, map[string]string{
		"step": step.Name(),
	})
	return dErrors.New(dErrors.CodeForbidden, reason)
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

func (e *Engine) load(ctx context.Context, id string) (*models.Instance, error) {
	inst, err := e.store.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "workflow not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load workflow")
	}
	if inst.Metadata == nil {
		inst.Metadata = models.Metadata{}
	}
	return inst, nil
}

// save persists inst under optimistic versioning.
func (e *Engine) save(ctx context.Context, inst *models.Instance) error {
	expected := inst.Version
	inst.Version++
	inst.UpdatedAt = requestcontext.Now(ctx)
	err := e.store.Update(ctx, inst, expected)
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		e.metrics.IncrementConflict()
		return dErrors.Wrap(err, dErrors.CodeConflict, "workflow was modified concurrently")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist workflow")
	}
	return nil
}

func (e *Engine) audit(ctx context.Context, sc policyModels.SecurityContext, inst *models.Instance, action audit.Action, success bool, reason string, md map[string]string) error {
	if md == nil {
		md = make(map[string]string, 4)
	}
	md["workflow_type"] = string(inst.Type)
	md["status"] = string(inst.Status)
	md["step_index"] = strconv.Itoa(inst.CurrentStepIndex)
	if rid := requestcontext.RequestID(ctx); rid != "" {
		md["request_id"] = rid
	}
	_, err := e.auditor.Append(ctx, audit.Entry{
		ActorID:    sc.ActorID,
		ActorRole:  sc.ActorRole,
		Action:     action,
		Resource:   auditResource,
		ResourceID: inst.ID,
		Success:    success,
		Reason:     reason,
		Metadata:   md,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to audit workflow transition",
			"workflow_id", inst.ID,
			"action", action,
			"error", err,
		)
	}
	return err
}

func (e *Engine) auditEvent(ctx context.Context, sc policyModels.SecurityContext, inst *models.Instance, step string, ev StepEvent) error {
	md := make(map[string]string, len(ev.Metadata)+2)
	for k, v := range ev.Metadata {
		md[k] = v
	}
	md["workflow_id"] = inst.ID
	md["step"] = step
	resource, resourceID := ev.Resource, ev.ResourceID
	if resource == "" {
		resource, resourceID = auditResource, inst.ID
	}
	_, err := e.auditor.Append(ctx, audit.Entry{
		ActorID:    sc.ActorID,
		ActorRole:  sc.ActorRole,
		Action:     ev.Action,
		Resource:   resource,
		ResourceID: resourceID,
		Success:    true,
		Reason:     ev.Reason,
		Metadata:   md,
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to audit workflow event",
			"workflow_id", inst.ID,
			"action", ev.Action,
			"error", err,
		)
	}
	return err
}

func requireSession(sc policyModels.SecurityContext) error {
	if sc.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "security context is required")
	}
	return nil
}

// failureReason is the machine-readable reason recorded for a failed step.
// Errors without a domain message are not echoed.
func failureReason(err error) string {
	if msg := dErrors.MessageOf(err); msg != "" {
		return msg
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "step timed out"
	}
	return "step failed"
}
