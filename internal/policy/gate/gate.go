// Package gate composes role, step-up, IP provenance and DLP rules into one
// decision per access request.
//
// Every check runs and every violation is reported. DLP counters are consumed
// only when no other check denied, so a request rejected for another reason
// never spends quota; otherwise the counter is only peeked for reporting.
// Each evaluation writes exactly one audit entry.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"regulus/internal/policy/metrics"
	"regulus/internal/policy/models"
	"regulus/pkg/domain"
	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
	"regulus/pkg/platform/tracing"
	"regulus/pkg/requestcontext"
)

const (
	// deviceRiskThreshold is the highest device risk that passes without step-up.
	deviceRiskThreshold  = 5
	throttlePerRiskPoint = 1000
	maxThrottleMillis    = 10000
)

// Gate evaluates access requests.
type Gate struct {
	policies PolicySource
	counters CounterStore
	auditor  AuditAppender
	devices  DeviceTrust
	proofs   StepUpProofs
	issuer   ChallengeIssuer
	risk     RiskScorer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// WithDeviceTrust enables the device half of the step-up check. Without it
// every enhanced-security request needs a step-up proof.
func WithDeviceTrust(d DeviceTrust) Option {
	return func(g *Gate) {
		g.devices = d
	}
}

func WithStepUpProofs(p StepUpProofs) Option {
	return func(g *Gate) {
		g.proofs = p
	}
}

// WithChallengeIssuer makes step-up decisions carry a freshly issued challenge.
func WithChallengeIssuer(i ChallengeIssuer) Option {
	return func(g *Gate) {
		g.issuer = i
	}
}

func WithRiskScorer(r RiskScorer) Option {
	return func(g *Gate) {
		g.risk = r
	}
}

// New creates a Gate. Policies, counters and the audit trail are required.
func New(policies PolicySource, counters CounterStore, auditor AuditAppender, opts ...Option) (*Gate, error) {
	if policies == nil {
		return nil, fmt.Errorf("policy source is required")
	}
	if counters == nil {
		return nil, fmt.Errorf("counter store is required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit trail is required")
	}

	g := &Gate{
		policies: policies,
		counters: counters,
		auditor:  auditor,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// evaluation carries the state of one Evaluate call.
type evaluation struct {
	req        models.AccessRequest
	sc         models.SecurityContext
	now        time.Time
	set        *models.PolicySet
	policy     *models.DLPPolicy
	violations []string
	stepUp     bool
	proof      *StepUpClaims
	counter    *models.CounterResult
	risk       domain.RiskAssessment
}

func (e *evaluation) deny(violation string) {
	for _, v := range e.violations {
		if v == violation {
			return
		}
	}
	e.violations = append(e.violations, violation)
}

// Evaluate decides req under sc. Malformed requests return a validation error
// and are not evaluated. An error is also returned when the audit entry for
// a critical action could not be persisted; the caller must then not proceed.
func (g *Gate) Evaluate(ctx context.Context, req models.AccessRequest, sc models.SecurityContext) (*models.Decision, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracing.Start(ctx, "policy.Evaluate",
		tracing.AttrActorID.String(req.ActorID),
		tracing.AttrActorRole.String(req.ActorRole),
		tracing.AttrResourceType.String(req.ResourceType),
		tracing.AttrAction.String(string(req.Action)),
	)
	defer span.End()

	now := req.Timestamp
	if now.IsZero() {
		now = requestcontext.Now(ctx)
	}
	ev := &evaluation{req: req, sc: sc, now: now, set: g.policies.Current()}

	g.checkContext(ev)
	g.checkRole(ev)
	g.checkStepUp(ctx, ev)
	g.checkRoleNetwork(ev)
	g.checkDLP(ctx, ev)
	g.assessRisk(ctx, ev)

	decision := g.decide(ctx, ev)

	if err := g.audit(ctx, ev, decision); err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	outcome := outcomeLabel(decision)
	span.SetAttributes(tracing.AttrDecision.String(outcome))
	g.metrics.IncrementDecision(outcome, req.ResourceType)
	for _, v := range decision.Violations {
		g.metrics.IncrementViolation(v)
	}
	g.metrics.ObserveThrottle(decision.ThrottleMillis)
	g.metrics.ObserveEvaluateLatency(time.Since(start))

	g.logDecision(ctx, ev, decision)
	return decision, nil
}

// decide turns the accumulated evaluation into a decision. A hard violation
// wins over step-up, since a second factor cannot cure it.
func (g *Gate) decide(ctx context.Context, ev *evaluation) *models.Decision {
	d := &models.Decision{
		ThrottleMillis: throttleFor(ev.risk.Score),
		Violations:     []string{},
	}

	switch {
	case len(ev.violations) > 0:
		d.Violations = append(d.Violations, ev.violations...)
		d.Reason = strings.Join(ev.violations, "; ")

	case ev.stepUp:
		d.RequiresStepUp = true
		d.Reason = models.ReasonStepUpRequired
		if g.issuer != nil {
			id, err := g.issuer.IssueStepUp(ctx, ev.req.ActorID)
			if err != nil {
				g.logger.WarnContext(ctx, "failed to issue step-up challenge",
					"actor_id", ev.req.ActorID,
					"error", err,
				)
			} else {
				d.ChallengeID = id
			}
		}

	default:
		d.Allowed = true
		d.Reason = models.ReasonAllowed
		if ev.policy != nil && ev.policy.WatermarkRequired {
			d.Obligations = []string{models.ObligationWatermark}
		}
	}
	return d
}

func throttleFor(score float64) int {
	if score <= 0 {
		return 0
	}
	ms := int(score * throttlePerRiskPoint)
	if ms > maxThrottleMillis {
		return maxThrottleMillis
	}
	return ms
}

func outcomeLabel(d *models.Decision) string {
	switch {
	case d.Allowed:
		return "allow"
	case d.RequiresStepUp:
		return "step_up"
	default:
		return "deny"
	}
}

var auditActions = map[models.Action]audit.Action{
	models.ActionView:     audit.ActionAccessView,
	models.ActionExport:   audit.ActionAccessExport,
	models.ActionPrint:    audit.ActionAccessPrint,
	models.ActionDownload: audit.ActionAccessDownload,
	models.ActionStart:    audit.ActionAccessStart,
	models.ActionAdvance:  audit.ActionAccessAdvance,
	models.ActionCancel:   audit.ActionAccessCancel,
	models.ActionRetry:    audit.ActionAccessRetry,
}

func (g *Gate) audit(ctx context.Context, ev *evaluation, d *models.Decision) error {
	md := map[string]string{
		"throttle_ms":      strconv.Itoa(d.ThrottleMillis),
		"requires_step_up": strconv.FormatBool(d.RequiresStepUp),
		"origin_ip":        ev.originIP(),
	}
	if len(d.Violations) > 0 {
		md["violations"] = strings.Join(d.Violations, "; ")
	}
	if ev.counter != nil {
		md["counter"] = strconv.Itoa(ev.counter.Count)
		md["counter_limit"] = strconv.Itoa(ev.counter.Limit)
	}
	if ev.risk.Suspicious {
		md["risk_suspicious"] = "true"
	}
	if ev.req.Justification != "" {
		md["justification"] = ev.req.Justification
	}
	if ev.proof != nil {
		md["step_up_proof"] = ev.proof.ID
	}
	if d.ChallengeID != "" {
		md["challenge_id"] = d.ChallengeID
	}
	if rid := requestcontext.RequestID(ctx); rid != "" {
		md["request_id"] = rid
	}

	_, err := g.auditor.Append(ctx, audit.Entry{
		Timestamp:  ev.now,
		ActorID:    ev.req.ActorID,
		ActorRole:  ev.req.ActorRole,
		Action:     auditActions[ev.req.Action],
		Resource:   ev.req.ResourceType,
		ResourceID: ev.req.ResourceID,
		Success:    d.Allowed,
		Reason:     d.Reason,
		Metadata:   md,
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "access decision could not be audited",
			"actor_id", ev.req.ActorID,
			"action", ev.req.Action,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "access decision could not be audited")
	}
	return nil
}

func (g *Gate) logDecision(ctx context.Context, ev *evaluation, d *models.Decision) {
	attrs := []any{
		"actor_id", ev.req.ActorID,
		"actor_role", ev.req.ActorRole,
		"resource_type", ev.req.ResourceType,
		"action", ev.req.Action,
		"allowed", d.Allowed,
		"requires_step_up", d.RequiresStepUp,
		"throttle_ms", d.ThrottleMillis,
		"log_type", "audit",
	}
	if len(d.Violations) > 0 {
		attrs = append(attrs, "violations", d.Violations)
	}
	if rid := requestcontext.RequestID(ctx); rid != "" {
		attrs = append(attrs, "request_id", rid)
	}
	if d.Allowed {
		g.logger.InfoContext(ctx, "access_allowed", attrs...)
		return
	}
	g.logger.WarnContext(ctx, "access_denied", attrs...)
}

// riskAttrs is used by the risk check span event.
func riskAttrs(r domain.RiskAssessment) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Float64("regulus.risk.score", r.Score),
		attribute.Bool("regulus.risk.suspicious", r.Suspicious),
	}
}
