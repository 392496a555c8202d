package steps

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"regulus/internal/workflow"
	"regulus/internal/workflow/models"
	"regulus/internal/workflow/ports"
	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
)

const (
	keyCaseNumber       = "caseNumber"
	keyAllegationCipher = "allegationCipher"
	keyInspectorID      = "inspectorId"
	keyEvidence         = "evidence"
	keyEvidenceCount    = "evidenceCount"
	keyEvidenceBy       = "evidenceSubmittedBy"
	keyOutcome          = "outcome"
	keyDecisionReason   = "decisionReason"
	keyDecidedBy        = "decidedBy"
	keyLedgerReceiptID  = "ledgerReceiptId"
	keyLedgerDigest     = "ledgerDigest"
)

// Investigation outcomes. Suspension and revocation change the license.
const (
	OutcomeDismissed = "dismissed"
	OutcomeWarning   = "warning"
	OutcomeSuspended = "suspended"
	OutcomeRevoked   = "revoked"
)

var outcomes = []string{OutcomeDismissed, OutcomeWarning, OutcomeSuspended, OutcomeRevoked}

const (
	roleAdmin     = "admin"
	roleRegistrar = "registrar"
)

func (h *handlers) createCase(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	p, err := h.lookup(ctx, in.Metadata.String(keyRegistrationNum))
	if err != nil {
		return nil, err
	}
	cipher, err := h.deps.Crypto.Encrypt(ctx, in.Metadata.String("allegation"))
	if err != nil {
		return nil, unavailable(err, "encryption boundary")
	}
	return &workflow.StepOutcome{
		Output: models.Metadata{
			keyCaseNumber:        caseNumber(in.WorkflowID),
			keyAllegationCipher:  cipher,
			keyLicenseNumber:     p.LicenseNumber,
			keyLicenseStatus:     p.LicenseStatus,
			keyPractitionerName:  p.FullName,
			keyPractitionerEmail: p.Email,
		},
		Redact: []string{"allegation"},
	}, nil
}

func caseNumber(workflowID string) string {
	id := strings.ReplaceAll(workflowID, "-", "")
	if len(id) > 10 {
		id = id[:10]
	}
	return "INV-" + strings.ToUpper(id)
}

func (h *handlers) assignInspector(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	inspector, err := h.deps.Inspectors.Assign(ctx, in.Metadata.String(keyCaseNumber), in.Metadata.String("region"))
	if err != nil {
		return nil, unavailable(err, "inspector directory")
	}
	if inspector == "" {
		return nil, stepFailed("no inspector available in %s", in.Metadata.String("region"))
	}
	return outcome(models.Metadata{keyInspectorID: inspector}), nil
}

// collectEvidence accepts evidence references from the assigned inspector.
type collectEvidence struct {
	h *handlers
}

func (c *collectEvidence) Name() string { return models.StepCollectEvidence }

func (c *collectEvidence) ValidateInput(in workflow.StepInput) error {
	items := in.Input.Objects(keyEvidence)
	if len(items) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one evidence item is required")
	}
	for i, item := range items {
		if item.String("kind") == "" || item.String("id") == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("evidence[%d] requires kind and id", i))
		}
	}
	if in.Security.ActorID != in.Metadata.String(keyInspectorID) && in.Security.ActorRole != roleAdmin {
		return dErrors.New(dErrors.CodeForbidden, "only the assigned inspector may submit evidence")
	}
	return nil
}

func (c *collectEvidence) Run(_ context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	items := in.Input.Objects(keyEvidence)
	refs := make([]any, 0, len(items))
	for _, item := range items {
		refs = append(refs, map[string]any{"kind": item.String("kind"), "id": item.String("id")})
	}
	return outcome(models.Metadata{
		keyEvidence:      refs,
		keyEvidenceCount: len(refs),
		keyEvidenceBy:    in.Security.ActorID,
	}), nil
}

// decide records the case outcome. Suspension and revocation are anchored
// in the ledger before the registry is updated.
type decide struct {
	h *handlers
}

func (d *decide) Name() string { return models.StepDecide }

// AllowedRoles keeps the case decision with the board.
func (d *decide) AllowedRoles() []string { return []string{roleAdmin} }

func (d *decide) ValidateInput(in workflow.StepInput) error {
	if !slices.Contains(outcomes, in.Input.String(keyOutcome)) {
		return dErrors.New(dErrors.CodeValidation, "outcome must be one of "+strings.Join(outcomes, ", "))
	}
	if strings.TrimSpace(in.Input.String("reason")) == "" {
		return dErrors.New(dErrors.CodeValidation, "decision reason is required")
	}
	if in.Security.ActorID == in.Metadata.String(keyInspectorID) {
		return dErrors.New(dErrors.CodeForbidden, "the investigating inspector cannot decide the case")
	}
	return nil
}

func (d *decide) Run(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	result := in.Input.String(keyOutcome)
	reason := in.Input.String("reason")
	out := models.Metadata{
		keyOutcome:        result,
		keyDecisionReason: reason,
		keyDecidedBy:      in.Security.ActorID,
	}

	var (
		status string
		action audit.Action
	)
	switch result {
	case OutcomeSuspended:
		status, action = ports.LicenseSuspended, audit.ActionLicenseSuspended
	case OutcomeRevoked:
		status, action = ports.LicenseRevoked, audit.ActionLicenseRevoked
	default:
		return outcome(out), nil
	}

	licenseNumber := in.Metadata.String(keyLicenseNumber)
	receipt, err := d.h.deps.Ledger.RecordAction(ctx, ports.LedgerRecord{
		LicenseNumber: licenseNumber,
		Action:        "license_" + status,
		Actor:         in.Security.ActorID,
		Reason:        reason,
		WorkflowID:    in.WorkflowID,
		OccurredAt:    in.Now,
	})
	if err != nil {
		return nil, unavailable(err, "ledger")
	}
	if err := d.h.deps.Registry.UpdateLicenseStatus(ctx, licenseNumber, status); err != nil {
		d.h.deps.Logger.ErrorContext(ctx, "license anchored but registry update failed",
			"workflow_id", in.WorkflowID,
			"license_number", licenseNumber,
			"receipt_id", receipt.ReceiptID,
			"error", err,
		)
		return nil, unavailable(err, "practitioner registry")
	}

	out[keyLicenseStatus] = status
	out[keyLedgerReceiptID] = receipt.ReceiptID
	out[keyLedgerDigest] = receipt.Digest
	return &workflow.StepOutcome{
		Output: out,
		Events: []workflow.StepEvent{{
			Action:     action,
			Resource:   "license",
			ResourceID: licenseNumber,
			Reason:     reason,
			Metadata: map[string]string{
				"case_number":       in.Metadata.String(keyCaseNumber),
				"ledger_receipt_id": receipt.ReceiptID,
				"ledger_digest":     receipt.Digest,
			},
		}},
	}, nil
}
