package simulated

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"regulus/internal/workflow/ports"
	"regulus/pkg/requestcontext"
)

const (
	licenseTerm     = 365 * 24 * time.Hour
	letterValidity  = 90 * 24 * time.Hour
	renewalValidity = 365 * 24 * time.Hour
)

// Certificates issues licenses and documents. Issued licenses are added to
// the registry so later workflows can find the practitioner.
type Certificates struct {
	registry *Registry

	mu  sync.Mutex
	seq int
}

func NewCertificates(registry *Registry) *Certificates {
	return &Certificates{registry: registry}
}

func (c *Certificates) IssueLicense(ctx context.Context, req ports.LicenseRequest) (ports.License, error) {
	c.mu.Lock()
	c.seq++
	n := c.seq
	c.mu.Unlock()

	now := requestcontext.Now(ctx)
	lic := ports.License{
		LicenseNumber:      fmt.Sprintf("LIC-%d-%04d", now.Year(), n),
		RegistrationNumber: fmt.Sprintf("MD-%05d", 10000+n),
		DocumentID:         uuid.NewString(),
		ExpiresAt:          now.Add(licenseTerm),
	}
	if c.registry != nil {
		c.registry.register(ports.Practitioner{
			RegistrationNumber: lic.RegistrationNumber,
			FullName:           req.FullName,
			Specialty:          req.Specialty,
			LicenseNumber:      lic.LicenseNumber,
			LicenseStatus:      ports.LicenseActive,
			LicenseExpiresAt:   lic.ExpiresAt,
		})
	}
	return lic, nil
}

// IssueCertificate signs the canonical form of the request.
func (c *Certificates) IssueCertificate(ctx context.Context, req ports.CertificateRequest) (ports.Certificate, error) {
	now := requestcontext.Now(ctx)
	validity := renewalValidity
	if req.Kind == ports.CertificateEmbassyLetter {
		validity = letterValidity
	}
	raw, err := json.Marshal(map[string]any{
		"kind":           req.Kind,
		"license_number": req.LicenseNumber,
		"subject":        req.Subject,
		"fields":         req.Fields,
		"issued_at":      now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return ports.Certificate{}, fmt.Errorf("marshal certificate: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return ports.Certificate{}, fmt.Errorf("canonicalize certificate: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return ports.Certificate{
		DocumentID: strings.ToUpper(req.Kind) + "-" + uuid.NewString(),
		Digest:     hex.EncodeToString(sum[:]),
		ValidUntil: now.Add(validity),
	}, nil
}
