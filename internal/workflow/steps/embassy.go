package steps

import (
	"context"
	"time"

	"regulus/internal/workflow"
	"regulus/internal/workflow/models"
	"regulus/internal/workflow/ports"
	audit "regulus/pkg/platform/audit"
)

const (
	keySpecialty       = "specialty"
	keyLetterID        = "letterId"
	keyLetterDigest    = "letterDigest"
	keyLetterValidTill = "letterValidUntil"
	keyDisclosedAt     = "disclosedAt"
)

// verifyPractitioner requires a license in good standing at the time of
// the request.
func (h *handlers) verifyPractitioner(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	p, err := h.lookup(ctx, in.Metadata.String(keyRegistrationNum))
	if err != nil {
		return nil, err
	}
	if p.LicenseStatus != ports.LicenseActive {
		return nil, stepFailed("license is %s", p.LicenseStatus)
	}
	if !p.LicenseExpiresAt.IsZero() && !in.Now.Before(p.LicenseExpiresAt) {
		return nil, stepFailed("license expired on %s", p.LicenseExpiresAt.UTC().Format(time.DateOnly))
	}
	return outcome(models.Metadata{
		keyPractitionerName: p.FullName,
		keyLicenseNumber:    p.LicenseNumber,
		keyLicenseStatus:    p.LicenseStatus,
		keySpecialty:        p.Specialty,
	}), nil
}

func (h *handlers) generateLetter(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	cert, err := h.deps.Certificates.IssueCertificate(ctx, ports.CertificateRequest{
		Kind:          ports.CertificateEmbassyLetter,
		LicenseNumber: in.Metadata.String(keyLicenseNumber),
		Subject:       in.Metadata.String(keyPractitionerName),
		Fields: map[string]string{
			"embassy":           in.Metadata.String("embassy"),
			"purpose":           in.Metadata.String("purpose"),
			"request_reference": in.Metadata.String("requestReference"),
			"specialty":         in.Metadata.String(keySpecialty),
		},
	})
	if err != nil {
		return nil, unavailable(err, "certificate issuer")
	}
	return outcome(models.Metadata{
		keyLetterID:        cert.DocumentID,
		keyLetterDigest:    cert.Digest,
		keyLetterValidTill: cert.ValidUntil.UTC().Format(time.RFC3339),
	}), nil
}

// logAccess records the disclosure of practitioner data to the embassy.
// The event is critical: Advance reports an error if it is not durable.
func (h *handlers) logAccess(_ context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	return &workflow.StepOutcome{
		Output: models.Metadata{keyDisclosedAt: in.Now.UTC().Format(time.RFC3339)},
		Events: []workflow.StepEvent{{
			Action:     audit.ActionDataDisclosed,
			Resource:   "practitioner",
			ResourceID: in.Metadata.String(keyRegistrationNum),
			Reason:     "verification letter disclosed to " + in.Metadata.String("embassy"),
			Metadata: map[string]string{
				"embassy":           in.Metadata.String("embassy"),
				"purpose":           in.Metadata.String("purpose"),
				"request_reference": in.Metadata.String("requestReference"),
				"letter_id":         in.Metadata.String(keyLetterID),
			},
		}},
	}, nil
}
