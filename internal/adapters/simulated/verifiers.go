package simulated

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"slices"
	"strings"
	"sync"

	"regulus/internal/workflow/ports"
)

var nationalIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{6,32}$`)

// KYC accepts well-formed national ids that are not on the blocklist.
type KYC struct {
	blocked []string
}

func NewKYC(blocked ...string) *KYC {
	return &KYC{blocked: blocked}
}

func (k *KYC) Verify(_ context.Context, req ports.KYCRequest) (ports.KYCResult, error) {
	switch {
	case !nationalIDPattern.MatchString(req.NationalID):
		return ports.KYCResult{Reason: "national id malformed"}, nil
	case slices.Contains(k.blocked, req.NationalID):
		return ports.KYCResult{Reason: "identity does not match civil registry"}, nil
	case strings.TrimSpace(req.FullName) == "":
		return ports.KYCResult{Reason: "name missing"}, nil
	}
	sum := sha256.Sum256([]byte(req.NationalID + "|" + req.FullName))
	return ports.KYCResult{Verified: true, Reference: "KYC-" + strings.ToUpper(hex.EncodeToString(sum[:5]))}, nil
}

var documentKinds = []string{"degree", "internship", "identity", "good_standing", "cpd"}

// Documents accepts known document kinds. Ids starting with "forged-" are
// rejected.
type Documents struct{}

func NewDocuments() *Documents {
	return &Documents{}
}

func (Documents) Verify(_ context.Context, doc ports.DocumentRef) (ports.DocumentResult, error) {
	if !slices.Contains(documentKinds, doc.Kind) {
		return ports.DocumentResult{Reason: "unsupported document kind"}, nil
	}
	if strings.HasPrefix(doc.ID, "forged-") {
		return ports.DocumentResult{Reason: "issuer signature invalid"}, nil
	}
	return ports.DocumentResult{Valid: true}, nil
}

// Inspectors assigns inspectors round-robin within a region.
type Inspectors struct {
	mu       sync.Mutex
	byRegion map[string][]string
	next     map[string]int
}

func NewInspectors(byRegion map[string][]string) *Inspectors {
	return &Inspectors{byRegion: byRegion, next: make(map[string]int)}
}

// Assign returns "" when the region has no inspectors.
func (i *Inspectors) Assign(_ context.Context, _ string, region string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	pool := i.byRegion[region]
	if len(pool) == 0 {
		return "", nil
	}
	n := i.next[region]
	i.next[region] = n + 1
	return pool[n%len(pool)], nil
}
