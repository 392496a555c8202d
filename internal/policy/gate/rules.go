package gate

import (
	"context"
	"net/netip"
	"strings"

	"regulus/internal/policy/models"
	"regulus/pkg/domain"
	"regulus/pkg/platform/tracing"
)

// originIP prefers the address observed by the transport over the claimed one.
func (e *evaluation) originIP() string {
	if e.sc.OriginIP != "" {
		return e.sc.OriginIP
	}
	return e.req.OriginIP
}

func (e *evaluation) originAddr() (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(e.originIP()))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// checkContext binds the request to the authenticated session.
func (g *Gate) checkContext(ev *evaluation) {
	sc, req := ev.sc, ev.req
	switch {
	case sc.IsZero():
		ev.deny(models.ViolationContextMismatch)
	case sc.ActorID != req.ActorID:
		ev.deny(models.ViolationContextMismatch)
	case sc.ActorRole != "" && sc.ActorRole != req.ActorRole:
		ev.deny(models.ViolationContextMismatch)
	case sc.OriginIP != "" && req.OriginIP != "" && sc.OriginIP != req.OriginIP:
		ev.deny(models.ViolationContextMismatch)
	}
}

// checkRole resolves the resource policy and applies its role requirement.
// A resource type without a policy (and no wildcard) is denied.
func (g *Gate) checkRole(ev *evaluation) {
	p, ok := ev.set.Policy(ev.req.ResourceType)
	if !ok {
		ev.deny(models.ViolationNoPolicy)
		return
	}
	ev.policy = p
	if !p.RoleAllowed(ev.req.ActorRole) {
		ev.deny(models.ViolationInsufficientRole)
	}
}

// checkStepUp flags step-up for enhanced-security resources when the device
// is untrusted or risky, unless the session carries a valid proof.
func (g *Gate) checkStepUp(ctx context.Context, ev *evaluation) {
	if ev.policy == nil || !ev.policy.RequiresStepUp(ev.req.Action) {
		return
	}

	needed := true
	if g.devices != nil && ev.sc.DeviceFingerprint != "" {
		assessment, err := g.devices.ValidateFingerprint(ctx, ev.req.ActorID, ev.sc.DeviceFingerprint)
		if err != nil {
			g.logger.WarnContext(ctx, "device trust lookup failed, requiring step-up",
				"actor_id", ev.req.ActorID,
				"error", err,
			)
		} else {
			needed = !assessment.Trusted || assessment.RiskScore > deviceRiskThreshold
		}
	}
	if !needed {
		return
	}

	if ev.sc.StepUpProof != "" && g.proofs != nil {
		claims, err := g.proofs.ValidateProof(ctx, ev.sc.StepUpProof, ev.req.ActorID)
		if err == nil {
			ev.proof = claims
			return
		}
		g.logger.InfoContext(ctx, "step-up proof rejected",
			"actor_id", ev.req.ActorID,
			"error", err,
		)
	}
	ev.stepUp = true
}

// checkRoleNetwork enforces the per-role CIDR allow-list. This is always a
// hard deny: a location anomaly is not cured by a second factor.
func (g *Gate) checkRoleNetwork(ev *evaluation) {
	if !ev.set.IsSensitiveRole(ev.req.ActorRole) {
		return
	}
	addr, ok := ev.originAddr()
	if !ok {
		ev.deny(models.ViolationInvalidOriginIP)
		return
	}
	if !ev.set.RoleNetworkAllows(ev.req.ActorRole, addr) {
		ev.deny(models.ViolationIPNotAllowed)
	}
}

// checkDLP applies the resource policy. The counter is consumed only when
// the request would otherwise pass, and a valid step-up proof is redeemed
// just before that so it cannot be replayed by a concurrent request.
func (g *Gate) checkDLP(ctx context.Context, ev *evaluation) {
	p := ev.policy
	if p == nil {
		return
	}

	if p.RequiresJustification && strings.TrimSpace(ev.req.Justification) == "" {
		ev.deny(models.ViolationJustification)
	}
	if !p.TimeWindow.Within(ev.now) {
		ev.deny(models.ViolationOutsideTimeWindow)
	}
	if len(p.AllowedIPRanges) > 0 {
		addr, ok := ev.originAddr()
		switch {
		case !ok:
			ev.deny(models.ViolationInvalidOriginIP)
		case !p.IPAllowed(addr):
			ev.deny(models.ViolationIPOutsidePolicy)
		}
	}

	if len(ev.violations) == 0 && !ev.stepUp && ev.proof != nil {
		if err := g.proofs.RedeemProof(ctx, ev.proof); err != nil {
			g.logger.InfoContext(ctx, "step-up proof already redeemed",
				"actor_id", ev.req.ActorID,
				"proof_id", ev.proof.ID,
			)
			ev.proof = nil
			ev.stepUp = true
		}
	}

	kind := ev.req.Action.CounterKind()
	limit := p.Limit(kind)
	if limit == 0 {
		return
	}
	key := models.CounterKey(ev.req.ActorID, p.ResourceType, kind)
	if p.ResourceType == models.WildcardResource {
		key = models.CounterKey(ev.req.ActorID, ev.req.ResourceType, kind)
	}

	var (
		res *models.CounterResult
		err error
	)
	if len(ev.violations) == 0 && !ev.stepUp {
		res, err = g.counters.Consume(ctx, key, limit, kind.Window(), ev.now)
	} else {
		res, err = g.counters.Peek(ctx, key, limit, kind.Window(), ev.now)
	}
	if err != nil {
		g.logger.ErrorContext(ctx, "dlp counter unavailable, denying",
			"actor_id", ev.req.ActorID,
			"counter", key,
			"error", err,
		)
		ev.deny(models.ViolationCounterUnavailable)
		return
	}
	ev.counter = res
	if !res.Allowed {
		if kind == models.CounterExports {
			ev.deny(models.ViolationDailyExports)
		} else {
			ev.deny(models.ViolationHourlyViews)
		}
	}
}

// assessRisk asks the behavioural scorer for a throttle input. A scorer
// outage means no throttle; it never changes allow or deny.
func (g *Gate) assessRisk(ctx context.Context, ev *evaluation) {
	if g.risk == nil {
		return
	}
	r, err := g.risk.Score(ctx, ev.req.ActorID, domain.RiskSignals{
		"origin_ip":     ev.originIP(),
		"action":        string(ev.req.Action),
		"resource_type": ev.req.ResourceType,
		"device":        ev.sc.DeviceFingerprint,
	})
	if err != nil {
		g.logger.WarnContext(ctx, "risk scorer unavailable, no throttle applied",
			"actor_id", ev.req.ActorID,
			"error", err,
		)
		return
	}
	ev.risk = r.Clamp()
	tracing.AddEvent(ctx, "risk.assessed", riskAttrs(ev.risk)...)
}
