package steps

import (
	"context"
	"time"

	"regulus/internal/workflow"
	"regulus/internal/workflow/models"
	"regulus/internal/workflow/ports"
	"regulus/pkg/email"
)

const (
	keyPractitionerName  = "practitionerName"
	keyPractitionerEmail = "practitionerEmail"
	keyLicenseStatus     = "licenseStatus"
	keyCPDCredits        = "cpdCredits"
	keyCertificateID     = "certificateId"
	keyCertificateDigest = "certificateDigest"
	keyValidUntil        = "validUntil"
	keyNotificationID    = "notificationId"
)

// cpdCheck confirms the license is renewable and enough continuing
// education credits were earned in the window.
func (h *handlers) cpdCheck(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	reg := in.Metadata.String(keyRegistrationNum)
	p, err := h.lookup(ctx, reg)
	if err != nil {
		return nil, err
	}
	switch p.LicenseStatus {
	case ports.LicenseActive, ports.LicenseExpired:
	default:
		return nil, stepFailed("license is %s and cannot be renewed", p.LicenseStatus)
	}

	since := in.Now.Add(-h.cfg.CPDWindow)
	var credits int
	err = h.retry(ctx, func() error {
		var err error
		credits, err = h.deps.Registry.CPDCredits(ctx, reg, since)
		return err
	})
	if err != nil {
		return nil, unavailable(err, "practitioner registry")
	}
	if credits < h.cfg.MinCPDCredits {
		return nil, stepFailed("insufficient cpd credits: %d of %d", credits, h.cfg.MinCPDCredits)
	}
	return outcome(models.Metadata{
		keyLicenseNumber:     p.LicenseNumber,
		keyLicenseStatus:     p.LicenseStatus,
		keyPractitionerName:  p.FullName,
		keyPractitionerEmail: p.Email,
		keyCPDCredits:        credits,
	}), nil
}

// certificateIssue issues the renewal certificate and reactivates an
// expired license.
func (h *handlers) certificateIssue(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	licenseNumber := in.Metadata.String(keyLicenseNumber)
	cert, err := h.deps.Certificates.IssueCertificate(ctx, ports.CertificateRequest{
		Kind:          ports.CertificateRenewal,
		LicenseNumber: licenseNumber,
		Subject:       in.Metadata.String(keyPractitionerName),
		Fields: map[string]string{
			"registration_number": in.Metadata.String(keyRegistrationNum),
			"payment_tx_id":       in.Metadata.String(keyPaymentTxID),
		},
	})
	if err != nil {
		return nil, unavailable(err, "certificate issuer")
	}
	if in.Metadata.String(keyLicenseStatus) == ports.LicenseExpired {
		if err := h.deps.Registry.UpdateLicenseStatus(ctx, licenseNumber, ports.LicenseActive); err != nil {
			return nil, unavailable(err, "practitioner registry")
		}
	}
	return outcome(models.Metadata{
		keyCertificateID:     cert.DocumentID,
		keyCertificateDigest: cert.Digest,
		keyValidUntil:        cert.ValidUntil.UTC().Format(time.RFC3339),
		keyLicenseStatus:     ports.LicenseActive,
	}), nil
}

// notify tells the practitioner how the workflow ended. Delivery carries
// the step reference, so a retried send is deduplicated by the sender.
func (h *handlers) notify(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	recipient := orDefault(in.Metadata.String("email"), in.Metadata.String(keyPractitionerEmail))
	if recipient == "" {
		return nil, stepFailed("no recipient for notification")
	}
	n := ports.Notification{
		Recipient: recipient,
		Reference: in.Reference(),
	}
	name := orDefault(in.Metadata.String(keyPractitionerName), email.DisplayName(recipient))
	switch in.Type {
	case models.TypeRenewal:
		n.Template = "renewal_completed"
		n.Data = map[string]string{
			"name":           name,
			"license_number": in.Metadata.String(keyLicenseNumber),
			"certificate_id": in.Metadata.String(keyCertificateID),
			"valid_until":    in.Metadata.String(keyValidUntil),
		}
	case models.TypeInvestigation:
		n.Template = "investigation_outcome"
		n.Data = map[string]string{
			"name":        name,
			"case_number": in.Metadata.String(keyCaseNumber),
			"outcome":     in.Metadata.String(keyOutcome),
		}
	default:
		n.Template = string(in.Type) + "_update"
	}
	return h.send(ctx, n)
}

func (h *handlers) send(ctx context.Context, n ports.Notification) (*workflow.StepOutcome, error) {
	var status ports.DeliveryStatus
	err := h.retry(ctx, func() error {
		var err error
		status, err = h.deps.Notifier.Send(ctx, n)
		return err
	})
	if err != nil {
		return nil, unavailable(err, "notification sender")
	}
	if !status.Accepted {
		return nil, stepFailed("notification %s was not accepted", n.Template)
	}
	return outcome(models.Metadata{keyNotificationID: status.MessageID}), nil
}
