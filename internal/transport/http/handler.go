// Package httptransport exposes the engine over HTTP.
package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	challengeModels "regulus/internal/challenge/models"
	"regulus/internal/engine"
	policyModels "regulus/internal/policy/models"
	"regulus/internal/workflow"
	wfModels "regulus/internal/workflow/models"
	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
	"regulus/pkg/platform/httputil"
	"regulus/pkg/platform/middleware/auth"
	"regulus/pkg/platform/middleware/device"
	"regulus/pkg/platform/middleware/metadata"
	"regulus/pkg/requestcontext"
)

// HeaderStepUpProof carries the proof returned by a verified challenge.
const HeaderStepUpProof = "X-Step-Up-Proof"

const maxListLimit = 500

// Service is the engine surface the handlers call.
type Service interface {
	Evaluate(ctx context.Context, req policyModels.AccessRequest, sc policyModels.SecurityContext) (*policyModels.Decision, error)
	InitiateChallenge(ctx context.Context, sc policyModels.SecurityContext, preferred challengeModels.Method) (*challengeModels.Challenge, error)
	VerifyChallenge(ctx context.Context, challengeID, code string) (*challengeModels.VerifyResult, error)
	TrustDevice(ctx context.Context, sc policyModels.SecurityContext, actorID, fingerprint string) (*challengeModels.Device, error)
	RevokeDevice(ctx context.Context, sc policyModels.SecurityContext, actorID, fingerprint string) (*challengeModels.Device, error)
	StartWorkflow(ctx context.Context, t wfModels.Type, payload wfModels.Metadata, sc policyModels.SecurityContext) (*wfModels.Instance, error)
	AdvanceWorkflow(ctx context.Context, id string, input wfModels.Metadata, sc policyModels.SecurityContext) (*wfModels.Instance, error)
	CancelWorkflow(ctx context.Context, id, reason string, sc policyModels.SecurityContext) (*wfModels.Instance, error)
	RetryWorkflow(ctx context.Context, id string, opts workflow.RetryOptions, sc policyModels.SecurityContext) (*wfModels.Instance, error)
	GetWorkflow(ctx context.Context, id string, sc policyModels.SecurityContext) (*wfModels.Instance, error)
	ListWorkflows(ctx context.Context, filter wfModels.ListFilter, sc policyModels.SecurityContext) ([]*wfModels.Instance, error)
	ExportAudit(ctx context.Context, req engine.ExportRequest, sc policyModels.SecurityContext) (*engine.ExportResult, error)
	VerifyAudit(ctx context.Context, sc policyModels.SecurityContext) (int, error)
}

// Handler wires engine endpoints to the facade.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the engine endpoints on r. r is expected to sit behind
// the session middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/access/evaluate", h.HandleEvaluate)

	r.Post("/challenges", h.HandleInitiateChallenge)
	r.Post("/challenges/{id}/verify", h.HandleVerifyChallenge)
	r.Post("/devices/trust", h.HandleTrustDevice)
	r.Delete("/devices/trust", h.HandleRevokeDevice)

	r.Post("/workflows", h.HandleStartWorkflow)
	r.Get("/workflows", h.HandleListWorkflows)
	r.Get("/workflows/{id}", h.HandleGetWorkflow)
	r.Post("/workflows/{id}/advance", h.HandleAdvanceWorkflow)
	r.Post("/workflows/{id}/cancel", h.HandleCancelWorkflow)
	r.Post("/workflows/{id}/retry", h.HandleRetryWorkflow)

	r.Post("/audit/export", h.HandleExportAudit)
	r.Get("/audit/verify", h.HandleVerifyAudit)
}

// securityContext assembles the caller's context from what the middleware
// chain attached to the request.
func securityContext(r *http.Request) policyModels.SecurityContext {
	ctx := r.Context()
	return policyModels.SecurityContext{
		ActorID:           auth.GetActorID(ctx),
		ActorRole:         auth.GetRole(ctx),
		SessionID:         auth.GetSessionID(ctx),
		OriginIP:          metadata.GetClientIP(ctx),
		DeviceFingerprint: device.GetDeviceFingerprint(ctx),
		StepUpProof:       strings.TrimSpace(r.Header.Get(HeaderStepUpProof)),
		RequestID:         requestcontext.RequestID(ctx),
	}
}

func (h *Handler) requireSession(w http.ResponseWriter, sc policyModels.SecurityContext) bool {
	if sc.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return false
	}
	return true
}

// HandleEvaluate handles POST /access/evaluate. A denial is a 403 carrying
// the decision; an allow is a 200.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	sc := securityContext(r)
	if !h.requireSession(w, sc) {
		return
	}

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decision, err := h.service.Evaluate(ctx, policyModels.AccessRequest{
		ActorID:       sc.ActorID,
		ActorRole:     sc.ActorRole,
		ResourceType:  req.ResourceType,
		ResourceID:    req.ResourceID,
		Action:        policyModels.Action(req.Action),
		Justification: req.Justification,
		OriginIP:      sc.OriginIP,
		Timestamp:     requestcontext.Now(ctx),
	}, sc)
	if err != nil {
		h.logger.ErrorContext(ctx, "access evaluation failed",
			"request_id", requestID,
			"actor_id", sc.ActorID,
			"resource_type", req.ResourceType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "access evaluated",
		"request_id", requestID,
		"actor_id", sc.ActorID,
		"resource_type", req.ResourceType,
		"action", req.Action,
		"allowed", decision.Allowed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	status := http.StatusOK
	if !decision.Allowed {
		status = http.StatusForbidden
	}
	httputil.WriteJSON(w, status, FromDecision(decision))
}

// HandleInitiateChallenge handles POST /challenges.
func (h *Handler) HandleInitiateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sc := securityContext(r)
	if !h.requireSession(w, sc) {
		return
	}

	req, ok := httputil.DecodeAndPrepare[InitiateChallengeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	challenge, err := h.service.InitiateChallenge(ctx, sc, challengeModels.Method(req.Method))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to initiate challenge",
			"request_id", requestID,
			"actor_id", sc.ActorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromChallenge(challenge))
}

// HandleVerifyChallenge handles POST /challenges/{id}/verify. A wrong code
// is a 401 carrying the remaining attempts.
func (h *Handler) HandleVerifyChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if !h.requireSession(w, securityContext(r)) {
		return
	}
	challengeID := chi.URLParam(r, "id")

	req, ok := httputil.DecodeAndPrepare[VerifyChallengeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.VerifyChallenge(ctx, challengeID, req.Code)
	if err != nil {
		h.logger.ErrorContext(ctx, "challenge verification failed",
			"request_id", requestID,
			"challenge_id", challengeID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !result.Success {
		httputil.WriteJSON(w, http.StatusUnauthorized, result)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleTrustDevice handles POST /devices/trust.
func (h *Handler) HandleTrustDevice(w http.ResponseWriter, r *http.Request) {
	h.handleDeviceTrust(w, r, h.service.TrustDevice, "device trusted")
}

// HandleRevokeDevice handles DELETE /devices/trust.
func (h *Handler) HandleRevokeDevice(w http.ResponseWriter, r *http.Request) {
	h.handleDeviceTrust(w, r, h.service.RevokeDevice, "device trust revoked")
}

type deviceTrustFunc func(ctx context.Context, sc policyModels.SecurityContext, actorID, fingerprint string) (*challengeModels.Device, error)

func (h *Handler) handleDeviceTrust(w http.ResponseWriter, r *http.Request, change deviceTrustFunc, msg string) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sc := securityContext(r)
	if !h.requireSession(w, sc) {
		return
	}

	req, ok := httputil.DecodeAndPrepare[DeviceTrustRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	dev, err := change(ctx, sc, req.ActorID, req.Fingerprint)
	if err != nil {
		h.logger.ErrorContext(ctx, "device trust change failed",
			"request_id", requestID,
			"actor_id", req.ActorID,
			"admin_id", sc.ActorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, msg,
		"request_id", requestID,
		"actor_id", req.ActorID,
		"admin_id", sc.ActorID,
	)
	httputil.WriteJSON(w, http.StatusOK, FromDevice(dev))
}

// HandleStartWorkflow handles POST /workflows.
func (h *Handler) HandleStartWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sc := securityContext(r)
	if !h.requireSession(w, sc) {
		return
	}

	req, ok := httputil.DecodeAndPrepare[StartWorkflowRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	inst, err := h.service.StartWorkflow(ctx, wfModels.Type(req.Type), req.Payload, sc)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to start workflow",
			"request_id", requestID,
			"workflow_type", req.Type,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "workflow started",
		"request_id", requestID,
		"workflow_id", inst.ID,
		"workflow_type", req.Type,
		"actor_id", sc.ActorID,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromInstance(inst))
}

// HandleAdvanceWorkflow handles POST /workflows/{id}/advance. The body is
// optional; steps that need caller input read it from "input".
func (h *Handler) HandleAdvanceWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	sc := securityContext(r)
	if !h.requireSession(w, sc) {
		return
	}
	id := chi.URLParam(r, "id")

	var input wfModels.Metadata
	if r.ContentLength != 0 {
		req, ok := httputil.DecodeAndPrepare[AdvanceWorkflowRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		input = req.Input
	}

	inst, err := h.service.AdvanceWorkflow(ctx, id, input, sc)
	if err != nil {
		h.logger.ErrorContext(ctx, "workflow advance failed",
			"request_id", requestID,
			"workflow_id", id,
			"error", err,
		)
		h.writeWorkflowError(w, inst, err)
		return
	}

	h.logger.InfoContext(ctx, "workflow advanced",
		"request_id", requestID,
		"workflow_id", id,
		"status", inst.Status,
		"step_index", inst.CurrentStepIndex,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromInstance(inst))
}

// writeWorkflowError reports a failed step together with the instance it
// left behind, so callers can see the recorded failure reason.
func (h *Handler) writeWorkflowError(w http.ResponseWriter, inst *wfModels.Instance, err error) {
	if inst == nil || !dErrors.HasCode(err, dErrors.CodeStepFailed) {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, httputil.StatusFor(dErrors.CodeStepFailed), struct {
		Error            string            `json:"error"`
		ErrorDescription string            `json:"error_description"`
		Workflow         *WorkflowResponse `json:"workflow"`
	}{
		Error:            string(dErrors.CodeStepFailed),
		ErrorDescription: dErrors.MessageOf(err),
		Workflow:         FromInstance(inst),
	})
}

// HandleCancelWorkflow handles POST /workflows/{id}/cancel.
func (h *Handler) HandleCancelWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sc := securityContext(r)
	if !h.requireSession(w, sc) {
		return
	}
	id := chi.URLParam(r, "id")

	req, ok := httputil.DecodeAndPrepare[CancelWorkflowRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	inst, err := h.service.CancelWorkflow(ctx, id, req.Reason, sc)
	if err != nil {
		h.logger.ErrorContext(ctx, "workflow cancel failed",
			"request_id", requestID,
			"workflow_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstance(inst))
}

// HandleRetryWorkflow handles POST /workflows/{id}/retry.
func (h *Handler) HandleRetryWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	sc := securityContext(r)
	if !h.requireSession(w, sc) {
		return
	}
	id := chi.URLParam(r, "id")

	req, ok := httputil.DecodeAndPrepare[RetryWorkflowRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	inst, err := h.service.RetryWorkflow(ctx, id, workflow.RetryOptions{
		AllowRepeatCharge: req.AllowRepeatCharge,
		Reason:            req.Reason,
	}, sc)
	if err != nil {
		h.logger.ErrorContext(ctx, "workflow retry failed",
			"request_id", requestID,
			"workflow_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstance(inst))
}

// HandleGetWorkflow handles GET /workflows/{id}.
func (h *Handler) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc := securityContext(r)
	if !h.requireSession(w, sc) {
		return
	}
	id := chi.URLParam(r, "id")

	inst, err := h.service.GetWorkflow(ctx, id, sc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstance(inst))
}

// HandleListWorkflows handles GET /workflows?status=&type=&limit=.
func (h *Handler) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc := securityContext(r)
	if !h.requireSession(w, sc) {
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	list, err := h.service.ListWorkflows(ctx, filter, sc)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list workflows",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstances(list))
}

func parseListFilter(r *http.Request) (wfModels.ListFilter, error) {
	q := r.URL.Query()
	filter := wfModels.ListFilter{
		Status: wfModels.Status(q.Get("status")),
		Type:   wfModels.Type(q.Get("type")),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return filter, dErrors.New(dErrors.CodeValidation, "unknown workflow status")
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return filter, dErrors.New(dErrors.CodeValidation, "unknown workflow type")
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxListLimit {
			return filter, dErrors.New(dErrors.CodeValidation, "limit must be between 1 and 500")
		}
		filter.Limit = limit
	}
	return filter, nil
}

// HandleExportAudit handles POST /audit/export. The export itself is a DLP
// decision; refusals carry the decision in the body.
func (h *Handler) HandleExportAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	sc := securityContext(r)
	if !h.requireSession(w, sc) {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ExportAuditRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.ExportAudit(ctx, engine.ExportRequest{
		Start:         req.Start,
		End:           req.End,
		Filter:        req.Filter(),
		Justification: req.Justification,
	}, sc)
	if err != nil {
		code := dErrors.CodeOf(err)
		if result != nil && result.Decision != nil && (code == dErrors.CodeForbidden || code == dErrors.CodeStepUpRequired) {
			httputil.WriteJSON(w, http.StatusForbidden, DeniedResponse{
				Error:    string(code),
				Decision: FromDecision(result.Decision),
			})
			return
		}
		h.logger.ErrorContext(ctx, "audit export failed",
			"request_id", requestID,
			"actor_id", sc.ActorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "audit export served",
		"request_id", requestID,
		"actor_id", sc.ActorID,
		"entries", len(result.Entries),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, ExportAuditResponse{
		Entries:     result.Entries,
		Count:       len(result.Entries),
		Obligations: result.Decision.Obligations,
	})
}

// HandleVerifyAudit handles GET /audit/verify. A broken chain is reported
// in the body with 409 so monitors can tell it from an outage.
func (h *Handler) HandleVerifyAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sc := securityContext(r)
	if !h.requireSession(w, sc) {
		return
	}

	checked, err := h.service.VerifyAudit(ctx, sc)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeIntegrity) {
			httputil.WriteJSON(w, http.StatusConflict, VerifyAuditResponse{
				Checked: checked,
				Error:   chainFailure(err),
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerifyAuditResponse{Valid: true, Checked: checked})
}

// chainFailure reports the failure without leaking entry hashes.
func chainFailure(err error) string {
	if errors.Is(err, audit.ErrChainBroken) {
		return audit.ErrChainBroken.Error()
	}
	return "audit chain verification failed"
}
