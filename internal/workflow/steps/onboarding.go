package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"regulus/internal/workflow"
	"regulus/internal/workflow/models"
	"regulus/internal/workflow/ports"
	dErrors "regulus/pkg/domain-errors"
	audit "regulus/pkg/platform/audit"
)

// Metadata keys written by onboarding steps.
const (
	keyApplicationNumber = "applicationNumber"
	keyNationalIDCipher  = "nationalIdCipher"
	keySubmittedBy       = "submittedBy"
	keyKYCReference      = "kycReference"
	keyDocumentsVerified = "documentsVerified"
	keyPaymentTxID       = "paymentTxId"
	keyAmountPaid        = "amountPaid"
	keyReviewDecision    = "reviewDecision"
	keyReviewedBy        = "reviewedBy"
	keyReviewNotes       = "reviewNotes"
	keyLicenseNumber     = "licenseNumber"
	keyRegistrationNum   = "registrationNumber"
	keyLicenseDocumentID = "licenseDocumentId"
	keyLicenseExpiresAt  = "licenseExpiresAt"
)

const (
	decisionApproved = "approved"
	decisionRejected = "rejected"
)

// createApplication moves the national id behind the encryption boundary.
// The plaintext is redacted from the instance.
func (h *handlers) createApplication(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	nationalID := in.Metadata.String("nationalId")
	if nationalID == "" {
		return nil, stepFailed("national id is missing")
	}
	cipher, err := h.deps.Crypto.Encrypt(ctx, nationalID)
	if err != nil {
		return nil, unavailable(err, "encryption boundary")
	}
	return &workflow.StepOutcome{
		Output: models.Metadata{
			keyApplicationNumber: applicationNumber(in.WorkflowID),
			keyNationalIDCipher:  cipher,
			keySubmittedBy:       in.Security.ActorID,
		},
		Redact: []string{"nationalId"},
	}, nil
}

func applicationNumber(workflowID string) string {
	id := strings.ReplaceAll(workflowID, "-", "")
	if len(id) > 10 {
		id = id[:10]
	}
	return "APP-" + strings.ToUpper(id)
}

func (h *handlers) kycCheck(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	nationalID, err := h.deps.Crypto.Decrypt(ctx, in.Metadata.String(keyNationalIDCipher))
	if err != nil {
		return nil, unavailable(err, "encryption boundary")
	}
	req := ports.KYCRequest{
		NationalID:  nationalID,
		FullName:    in.Metadata.String("fullName"),
		DateOfBirth: in.Metadata.String("dateOfBirth"),
	}
	var res ports.KYCResult
	err = h.retry(ctx, func() error {
		var err error
		res, err = h.deps.KYC.Verify(ctx, req)
		return err
	})
	if err != nil {
		return nil, unavailable(err, "kyc verifier")
	}
	if !res.Verified {
		return nil, stepFailed("identity verification failed: %s", orDefault(res.Reason, "no match"))
	}
	return outcome(models.Metadata{keyKYCReference: res.Reference}), nil
}

func (h *handlers) documentVerify(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	docs := in.Metadata.Objects("documents")
	if len(docs) == 0 {
		return nil, stepFailed("no documents submitted")
	}
	for _, d := range docs {
		ref := ports.DocumentRef{Kind: d.String("kind"), ID: d.String("id")}
		var res ports.DocumentResult
		err := h.retry(ctx, func() error {
			var err error
			res, err = h.deps.Documents.Verify(ctx, ref)
			return err
		})
		if err != nil {
			return nil, unavailable(err, "document verifier")
		}
		if !res.Valid {
			return nil, stepFailed("document %s rejected: %s", ref.Kind, orDefault(res.Reason, "invalid"))
		}
	}
	return outcome(models.Metadata{keyDocumentsVerified: len(docs)}), nil
}

// payment charges the workflow fee once. A failed payment is re-run only
// through an explicit retry that allows a repeat charge.
type payment struct {
	h *handlers
}

func (p *payment) Name() string  { return models.StepPayment }
func (p *payment) Charges() bool { return true }

func (p *payment) Run(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	amount, ok := p.h.cfg.Fees[in.Type]
	if !ok || amount <= 0 {
		return nil, stepFailed("no fee configured for %s", in.Type)
	}
	req := ports.ChargeRequest{
		Amount:    amount,
		Currency:  p.h.cfg.Currency,
		Method:    orDefault(in.Metadata.String("paymentMethod"), "card"),
		Reference: in.Reference(),
		Payer:     payer(in.Metadata),
	}
	res, err := p.h.deps.Payments.Charge(ctx, req)
	if err != nil {
		// Outcome unknown; the charge may have gone through.
		p.h.deps.Logger.WarnContext(ctx, "payment outcome unknown",
			"workflow_id", in.WorkflowID,
			"reference", req.Reference,
			"error", err,
		)
		return nil, unavailable(err, "payment processor")
	}
	if !res.Success {
		return nil, stepFailed("payment declined: %s", orDefault(res.Reason, "declined"))
	}
	return outcome(models.Metadata{
		keyPaymentTxID: res.TxID,
		keyAmountPaid:  amount,
	}), nil
}

func payer(md models.Metadata) string {
	for _, k := range []string{keyRegistrationNum, keyApplicationNumber, "email"} {
		if v := md.String(k); v != "" {
			return v
		}
	}
	return ""
}

// humanReview records a registrar's decision. The reviewer must not be the
// person who submitted the application.
type humanReview struct {
	h *handlers
}

func (r *humanReview) Name() string { return models.StepHumanReview }

func (r *humanReview) AllowedRoles() []string { return []string{roleRegistrar, roleAdmin} }

func (r *humanReview) ValidateInput(in workflow.StepInput) error {
	switch in.Input.String("decision") {
	case decisionApproved, decisionRejected:
	default:
		return dErrors.New(dErrors.CodeValidation, "decision must be approved or rejected")
	}
	if in.Input.String("decision") == decisionRejected && strings.TrimSpace(in.Input.String("notes")) == "" {
		return dErrors.New(dErrors.CodeValidation, "notes are required when rejecting")
	}
	if in.Security.ActorID == in.Metadata.String(keySubmittedBy) {
		return dErrors.New(dErrors.CodeForbidden, "reviewer must differ from submitter")
	}
	return nil
}

func (r *humanReview) Run(_ context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	decision := in.Input.String("decision")
	notes := in.Input.String("notes")
	if decision == decisionRejected {
		return nil, stepFailed("application rejected: %s", notes)
	}
	return outcome(models.Metadata{
		keyReviewDecision: decision,
		keyReviewedBy:     in.Security.ActorID,
		keyReviewNotes:    notes,
	}), nil
}

func (h *handlers) licenseIssue(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	lic, err := h.deps.Certificates.IssueLicense(ctx, ports.LicenseRequest{
		ApplicationNumber: in.Metadata.String(keyApplicationNumber),
		FullName:          in.Metadata.String("fullName"),
		Specialty:         in.Metadata.String("specialty"),
	})
	if err != nil {
		return nil, unavailable(err, "certificate issuer")
	}
	return &workflow.StepOutcome{
		Output: models.Metadata{
			keyLicenseNumber:     lic.LicenseNumber,
			keyRegistrationNum:   lic.RegistrationNumber,
			keyLicenseDocumentID: lic.DocumentID,
			keyLicenseExpiresAt:  lic.ExpiresAt.UTC().Format(time.RFC3339),
		},
		Events: []workflow.StepEvent{{
			Action:     audit.ActionLicenseIssued,
			Resource:   "license",
			ResourceID: lic.LicenseNumber,
			Reason:     fmt.Sprintf("license issued for %s", in.Metadata.String(keyApplicationNumber)),
			Metadata: map[string]string{
				"registration_number": lic.RegistrationNumber,
			},
		}},
	}, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
