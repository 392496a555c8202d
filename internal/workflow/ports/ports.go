// Package ports defines the external collaborators the workflow steps call.
// Each is a narrow contract; production adapters live in internal/adapters.
package ports

import (
	"context"
	"time"
)

// EncryptionBoundary performs field-level encryption behind a key custodian.
type EncryptionBoundary interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// LedgerRecord is one license action anchored externally.
type LedgerRecord struct {
	LicenseNumber string    `json:"license_number"`
	Action        string    `json:"action"`
	Actor         string    `json:"actor"`
	Reason        string    `json:"reason"`
	WorkflowID    string    `json:"workflow_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// LedgerReceipt identifies an anchored record.
type LedgerReceipt struct {
	ReceiptID string `json:"receipt_id"`
	Digest    string `json:"digest"`
}

// LedgerAnchor records license actions in an append-only external store.
type LedgerAnchor interface {
	RecordAction(ctx context.Context, rec LedgerRecord) (LedgerReceipt, error)
}

// Notification is a message to a practitioner or organisation.
type Notification struct {
	Recipient string            `json:"recipient"`
	Template  string            `json:"template"`
	Data      map[string]string `json:"data,omitempty"`
	// Reference makes delivery idempotent per workflow step.
	Reference string `json:"reference"`
}

// DeliveryStatus is the sender's answer.
type DeliveryStatus struct {
	Accepted  bool   `json:"accepted"`
	MessageID string `json:"message_id,omitempty"`
}

// NotificationSender delivers notifications.
type NotificationSender interface {
	Send(ctx context.Context, n Notification) (DeliveryStatus, error)
}

// ChargeRequest is a payment to collect. Amount is in minor units.
type ChargeRequest struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	Payer     string `json:"payer"`
}

// PaymentResult is the processor's answer. A declined charge is a result,
// not an error.
type PaymentResult struct {
	Success bool   `json:"success"`
	TxID    string `json:"tx_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// PaymentProcessor charges fees. Charges are never retried automatically.
type PaymentProcessor interface {
	Charge(ctx context.Context, req ChargeRequest) (PaymentResult, error)
}

// KYCRequest identifies a person to verify.
type KYCRequest struct {
	NationalID  string `json:"national_id"`
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth"`
}

type KYCResult struct {
	Verified  bool   `json:"verified"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// KYCVerifier is a read-only identity lookup, safe to retry.
type KYCVerifier interface {
	Verify(ctx context.Context, req KYCRequest) (KYCResult, error)
}

// DocumentRef points at an uploaded document.
type DocumentRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type DocumentResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// DocumentVerifier checks document authenticity, safe to retry.
type DocumentVerifier interface {
	Verify(ctx context.Context, doc DocumentRef) (DocumentResult, error)
}

// License statuses held by the registry.
const (
	LicenseActive    = "active"
	LicenseSuspended = "suspended"
	LicenseRevoked   = "revoked"
	LicenseExpired   = "expired"
)

// Practitioner is the registry view of a licensed professional.
type Practitioner struct {
	RegistrationNumber string    `json:"registration_number"`
	FullName           string    `json:"full_name"`
	Email              string    `json:"email"`
	Specialty          string    `json:"specialty"`
	LicenseNumber      string    `json:"license_number"`
	LicenseStatus      string    `json:"license_status"`
	LicenseExpiresAt   time.Time `json:"license_expires_at"`
}

// PractitionerRegistry is the system of record for practitioners. Lookup
// and CPDCredits are read-only and safe to retry; Lookup returns
// sentinel.ErrNotFound for unknown registrations.
type PractitionerRegistry interface {
	Lookup(ctx context.Context, registrationNumber string) (*Practitioner, error)
	CPDCredits(ctx context.Context, registrationNumber string, since time.Time) (int, error)
	UpdateLicenseStatus(ctx context.Context, licenseNumber, status string) error
}

// LicenseRequest asks for a new license.
type LicenseRequest struct {
	ApplicationNumber string `json:"application_number"`
	FullName          string `json:"full_name"`
	Specialty         string `json:"specialty"`
}

// License is an issued license document.
type License struct {
	LicenseNumber      string    `json:"license_number"`
	RegistrationNumber string    `json:"registration_number"`
	DocumentID         string    `json:"document_id"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// Certificate kinds.
const (
	CertificateRenewal       = "renewal"
	CertificateEmbassyLetter = "embassy_letter"
)

// CertificateRequest asks for a signed document about a license.
type CertificateRequest struct {
	Kind          string            `json:"kind"`
	LicenseNumber string            `json:"license_number"`
	Subject       string            `json:"subject"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// Certificate is an issued document.
type Certificate struct {
	DocumentID string    `json:"document_id"`
	Digest     string    `json:"digest"`
	ValidUntil time.Time `json:"valid_until"`
}

// CertificateIssuer produces licenses and signed certificates.
type CertificateIssuer interface {
	IssueLicense(ctx context.Context, req LicenseRequest) (License, error)
	IssueCertificate(ctx context.Context, req CertificateRequest) (Certificate, error)
}

// InspectorDirectory assigns inspectors to cases.
type InspectorDirectory interface {
	Assign(ctx context.Context, caseNumber, region string) (inspectorID string, err error)
}
