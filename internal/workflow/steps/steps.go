// Package steps implements the business steps of every workflow type on
// top of the collaborator ports.
//
// Read-only lookups (KYC, document checks, practitioner registry) are
// retried with exponential backoff. Steps with side effects call their
// collaborator exactly once per run; payment in particular is never
// retried here.
package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"regulus/internal/workflow"
	"regulus/internal/workflow/models"
	"regulus/internal/workflow/ports"
	dErrors "regulus/pkg/domain-errors"
	"regulus/pkg/platform/sentinel"
)

// Deps are the collaborators the steps call.
type Deps struct {
	Crypto       ports.EncryptionBoundary
	Ledger       ports.LedgerAnchor
	Notifier     ports.NotificationSender
	Payments     ports.PaymentProcessor
	KYC          ports.KYCVerifier
	Documents    ports.DocumentVerifier
	Registry     ports.PractitionerRegistry
	Certificates ports.CertificateIssuer
	Inspectors   ports.InspectorDirectory
	Logger       *slog.Logger
}

// RetryPolicy bounds retries of idempotent lookups.
type RetryPolicy struct {
	Initial  time.Duration
	Max      time.Duration
	Attempts int
}

// Config holds fees and limits.
type Config struct {
	// Fees are charged in minor units of Currency.
	Fees            map[models.Type]int64
	Currency        string
	MinCPDCredits   int
	CPDWindow       time.Duration
	BulkConcurrency int
	Retry           RetryPolicy
}

func DefaultConfig() Config {
	return Config{
		Fees: map[models.Type]int64{
			models.TypeOnboarding: 150_000,
			models.TypeRenewal:    50_000,
		},
		Currency:        "KES",
		MinCPDCredits:   20,
		CPDWindow:       365 * 24 * time.Hour,
		BulkConcurrency: 8,
		Retry: RetryPolicy{
			Initial:  200 * time.Millisecond,
			Max:      2 * time.Second,
			Attempts: 3,
		},
	}
}

// Build registers the steps of every workflow type.
func Build(d Deps, cfg Config) (*workflow.Registry, error) {
	switch {
	case d.Crypto == nil:
		return nil, fmt.Errorf("encryption boundary is required")
	case d.Ledger == nil:
		return nil, fmt.Errorf("ledger anchor is required")
	case d.Notifier == nil:
		return nil, fmt.Errorf("notification sender is required")
	case d.Payments == nil:
		return nil, fmt.Errorf("payment processor is required")
	case d.KYC == nil:
		return nil, fmt.Errorf("kyc verifier is required")
	case d.Documents == nil:
		return nil, fmt.Errorf("document verifier is required")
	case d.Registry == nil:
		return nil, fmt.Errorf("practitioner registry is required")
	case d.Certificates == nil:
		return nil, fmt.Errorf("certificate issuer is required")
	case d.Inspectors == nil:
		return nil, fmt.Errorf("inspector directory is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if cfg.BulkConcurrency <= 0 {
		cfg.BulkConcurrency = 1
	}
	h := &handlers{deps: d, cfg: cfg}

	r := workflow.NewRegistry()
	pay := &payment{h: h}
	err := errors.Join(
		r.Register(models.TypeOnboarding,
			h.step(models.StepCreateApplication, h.createApplication),
			h.step(models.StepKYCCheck, h.kycCheck),
			h.step(models.StepDocumentVerify, h.documentVerify),
			pay,
			&humanReview{h: h},
			h.step(models.StepLicenseIssue, h.licenseIssue),
		),
		r.Register(models.TypeRenewal,
			h.step(models.StepCPDCheck, h.cpdCheck),
			pay,
			h.step(models.StepCertificateIssue, h.certificateIssue),
			h.step(models.StepNotify, h.notify),
		),
		r.Register(models.TypeInvestigation,
			h.step(models.StepCreateCase, h.createCase),
			h.step(models.StepAssignInspector, h.assignInspector),
			&collectEvidence{h: h},
			&decide{h: h},
			h.step(models.StepNotify, h.notify),
		),
		r.Register(models.TypeBulkVerification,
			h.step(models.StepValidateBatch, h.validateBatch),
			h.step(models.StepVerifyEach, h.verifyEach),
			h.step(models.StepCompileResults, h.compileResults),
			h.step(models.StepEnableMonitoring, h.enableMonitoring),
		),
		r.Register(models.TypeEmbassyVerification,
			h.step(models.StepVerifyPractitioner, h.verifyPractitioner),
			h.step(models.StepGenerateLetter, h.generateLetter),
			h.step(models.StepLogAccess, h.logAccess),
		),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type handlers struct {
	deps Deps
	cfg  Config
}

type runFunc func(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error)

// funcStep adapts a handler method to workflow.Step.
type funcStep struct {
	name string
	run  runFunc
}

func (f funcStep) Name() string { return f.name }

func (f funcStep) Run(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	return f.run(ctx, in)
}

func (h *handlers) step(name string, run runFunc) workflow.Step {
	return funcStep{name: name, run: run}
}

// retry runs an idempotent lookup under the retry policy. Not-found and
// validation errors are final.
func (h *handlers) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = h.cfg.Retry.Initial
	b.MaxInterval = h.cfg.Retry.Max
	b.MaxElapsedTime = 0

	attempts := h.cfg.Retry.Attempts
	if attempts < 0 {
		attempts = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeValidation) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// lookup fetches a practitioner, retrying transient failures.
func (h *handlers) lookup(ctx context.Context, registrationNumber string) (*ports.Practitioner, error) {
	var p *ports.Practitioner
	err := h.retry(ctx, func() error {
		var err error
		p, err = h.deps.Registry.Lookup(ctx, registrationNumber)
		return err
	})
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, stepFailed("practitioner %s not found", registrationNumber)
	case err != nil:
		return nil, unavailable(err, "practitioner registry")
	}
	return p, nil
}

func stepFailed(format string, args ...any) error {
	return dErrors.New(dErrors.CodeStepFailed, fmt.Sprintf(format, args...))
}

func unavailable(err error, collaborator string) error {
	return dErrors.Wrap(err, dErrors.CodeUnavailable, collaborator+" unavailable")
}

func outcome(out models.Metadata) *workflow.StepOutcome {
	return &workflow.StepOutcome{Output: out}
}
