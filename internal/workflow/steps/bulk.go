package steps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gowebpki/jcs"
	"golang.org/x/sync/errgroup"

	"regulus/internal/workflow"
	"regulus/internal/workflow/models"
	"regulus/internal/workflow/ports"
	"regulus/pkg/platform/sentinel"
)

const (
	keyRegistrationNumbers = "registrationNumbers"
	keyInvalidNumbers      = "invalidRegistrationNumbers"
	keyBatchSize           = "batchSize"
	keyResults             = "verificationResults"
	keyResultsDigest       = "resultsDigest"
	keySummary             = "summary"
	keyMonitoringEnabled   = "monitoringEnabled"
	keyMonitoringSince     = "monitoringSince"
	keyMonitored           = "monitoredRegistrations"
)

// Per-registration verification statuses.
const (
	VerificationValid    = "valid"
	VerificationInactive = "inactive"
	VerificationNotFound = "not_found"
)

var registrationPattern = regexp.MustCompile(`^[A-Z]{2,4}-\d{3,8}$`)

// VerificationResult is one row of a bulk verification report.
type VerificationResult struct {
	RegistrationNumber string `json:"registrationNumber"`
	Status             string `json:"status"`
	LicenseStatus      string `json:"licenseStatus,omitempty"`
	FullName           string `json:"fullName,omitempty"`
	Specialty          string `json:"specialty,omitempty"`
	LicenseExpiresAt   string `json:"licenseExpiresAt,omitempty"`
}

// validateBatch normalises and deduplicates the submitted numbers.
func (h *handlers) validateBatch(_ context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	seen := make(map[string]bool)
	valid := make([]string, 0)
	invalid := make([]string, 0)
	for _, raw := range in.Metadata.Strings(keyRegistrationNumbers) {
		n := strings.ToUpper(strings.TrimSpace(raw))
		if seen[n] {
			continue
		}
		seen[n] = true
		if registrationPattern.MatchString(n) {
			valid = append(valid, n)
		} else {
			invalid = append(invalid, raw)
		}
	}
	if len(valid) == 0 {
		return nil, stepFailed("batch contains no valid registration numbers")
	}
	return outcome(models.Metadata{
		keyRegistrationNumbers: valid,
		keyInvalidNumbers:      invalid,
		keyBatchSize:           len(valid),
	}), nil
}

// verifyEach looks up every registration in parallel, bounded by the
// configured concurrency. Unknown registrations are reported, not fatal.
func (h *handlers) verifyEach(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	numbers := in.Metadata.Strings(keyRegistrationNumbers)
	results := make([]VerificationResult, len(numbers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.BulkConcurrency)
	for i, n := range numbers {
		g.Go(func() error {
			res, err := h.verifyOne(gctx, n, in.Now)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, unavailable(err, "practitioner registry")
	}

	rows := make([]any, 0, len(results))
	for _, r := range results {
		rows = append(rows, r)
	}
	return outcome(models.Metadata{keyResults: rows}), nil
}

func (h *handlers) verifyOne(ctx context.Context, reg string, now time.Time) (VerificationResult, error) {
	var p *ports.Practitioner
	err := h.retry(ctx, func() error {
		var err error
		p, err = h.deps.Registry.Lookup(ctx, reg)
		return err
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return VerificationResult{RegistrationNumber: reg, Status: VerificationNotFound}, nil
	}
	if err != nil {
		return VerificationResult{}, fmt.Errorf("lookup %s: %w", reg, err)
	}
	status := VerificationValid
	if p.LicenseStatus != ports.LicenseActive || (!p.LicenseExpiresAt.IsZero() && !now.Before(p.LicenseExpiresAt)) {
		status = VerificationInactive
	}
	res := VerificationResult{
		RegistrationNumber: reg,
		Status:             status,
		LicenseStatus:      p.LicenseStatus,
		FullName:           p.FullName,
		Specialty:          p.Specialty,
	}
	if !p.LicenseExpiresAt.IsZero() {
		res.LicenseExpiresAt = p.LicenseExpiresAt.UTC().Format(time.RFC3339)
	}
	return res, nil
}

// compileResults summarises the report and fixes its digest over the
// canonical JSON form, so a recipient can check the report is unaltered.
func (h *handlers) compileResults(_ context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	rows := in.Metadata.Objects(keyResults)
	summary := map[string]any{
		VerificationValid:    0,
		VerificationInactive: 0,
		VerificationNotFound: 0,
	}
	for _, r := range rows {
		s := r.String("status")
		n, _ := summary[s].(int)
		summary[s] = n + 1
	}

	digest, err := reportDigest(in.Metadata.String("organisation"), rows)
	if err != nil {
		return nil, err
	}
	return outcome(models.Metadata{
		keySummary:       summary,
		keyResultsDigest: digest,
	}), nil
}

// reportDigest is the hex SHA-256 of the RFC 8785 canonical report.
func reportDigest(organisation string, rows []models.Metadata) (string, error) {
	raw, err := json.Marshal(map[string]any{
		"organisation": organisation,
		"results":      rows,
	})
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize report: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// enableMonitoring subscribes the organisation to changes of the verified
// registrations when requested, and sends the report notice.
func (h *handlers) enableMonitoring(ctx context.Context, in workflow.StepInput) (*workflow.StepOutcome, error) {
	out := models.Metadata{keyMonitoringEnabled: false}
	if in.Metadata.Bool("monitoring") {
		monitored := make([]string, 0)
		for _, r := range in.Metadata.Objects(keyResults) {
			if r.String("status") != VerificationNotFound {
				monitored = append(monitored, r.String("registrationNumber"))
			}
		}
		out[keyMonitoringEnabled] = true
		out[keyMonitored] = monitored
		out[keyMonitoringSince] = in.Now.UTC().Format(time.RFC3339)
	}

	contact := in.Metadata.String("contactEmail")
	if contact == "" {
		return outcome(out), nil
	}
	sent, err := h.send(ctx, ports.Notification{
		Recipient: contact,
		Template:  "bulk_verification_report",
		Reference: in.Reference(),
		Data: map[string]string{
			"organisation":   in.Metadata.String("organisation"),
			"results_digest": in.Metadata.String(keyResultsDigest),
			"monitoring":     fmt.Sprint(out[keyMonitoringEnabled]),
		},
	})
	if err != nil {
		return nil, err
	}
	out[keyNotificationID] = sent.Output[keyNotificationID]
	return outcome(out), nil
}
