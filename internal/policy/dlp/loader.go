// Package dlp loads DLP policy files and keeps the active snapshot.
package dlp

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"regulus/internal/policy/models"
	pstrings "regulus/pkg/platform/strings"
)

//go:embed default_policy.yaml
var defaultPolicy []byte

// fileFormat is the on-disk YAML layout.
type fileFormat struct {
	Version        int                 `yaml:"version"`
	SensitiveRoles []string            `yaml:"sensitiveRoles"`
	RoleNetworks   map[string][]string `yaml:"roleNetworks"`
	Policies       []models.DLPPolicy  `yaml:"policies"`
}

// Parse decodes and compiles a policy document. Unknown keys are rejected so
// a typo cannot silently disable a limit.
func Parse(data []byte) (*models.PolicySet, error) {
	var f fileFormat
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode dlp policy: %w", err)
	}
	if len(f.Policies) == 0 {
		return nil, fmt.Errorf("dlp policy defines no policies")
	}
	return models.NewPolicySet(f.Version, f.Policies, pstrings.DedupeAndTrim(f.SensitiveRoles), f.RoleNetworks)
}

// LoadFile reads and parses the policy at path.
func LoadFile(path string) (*models.PolicySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dlp policy: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in policy used when no file is configured.
func Default() *models.PolicySet {
	set, err := Parse(defaultPolicy)
	if err != nil {
		panic(fmt.Sprintf("built-in dlp policy is invalid: %v", err))
	}
	return set
}

// Registry holds the active snapshot. Readers never block; a reload swaps the
// pointer so an evaluation sees one consistent set.
type Registry struct {
	current atomic.Pointer[models.PolicySet]
}

func NewRegistry(initial *models.PolicySet) *Registry {
	r := &Registry{}
	r.current.Store(initial)
	return r
}

// Current returns the active snapshot.
func (r *Registry) Current() *models.PolicySet {
	return r.current.Load()
}

// Swap installs next and returns the previous snapshot.
func (r *Registry) Swap(next *models.PolicySet) *models.PolicySet {
	return r.current.Swap(next)
}
