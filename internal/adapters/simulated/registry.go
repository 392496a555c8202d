// Package simulated provides in-process stand-ins for the external systems
// the workflow steps call. They are deterministic and are used for local
// runs and end-to-end tests.
package simulated

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"regulus/internal/workflow/ports"
	"regulus/pkg/platform/sentinel"
)

// CPDEntry is one continuing-professional-development award.
type CPDEntry struct {
	Credits   int       `yaml:"credits"`
	AwardedAt time.Time `yaml:"awarded_at"`
}

// SeedPractitioner is the file form of a registry record.
type SeedPractitioner struct {
	RegistrationNumber string     `yaml:"registration_number"`
	FullName           string     `yaml:"full_name"`
	Email              string     `yaml:"email"`
	Specialty          string     `yaml:"specialty"`
	LicenseNumber      string     `yaml:"license_number"`
	LicenseStatus      string     `yaml:"license_status"`
	LicenseExpiresAt   time.Time  `yaml:"license_expires_at"`
	CPD                []CPDEntry `yaml:"cpd"`
}

// Seed is the file form of the simulated external systems: registry
// records, inspectors per region and enrolled second factors per actor.
type Seed struct {
	Practitioners []SeedPractitioner  `yaml:"practitioners"`
	Inspectors    map[string][]string `yaml:"inspectors"`
	Factors       map[string][]string `yaml:"factors"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &seed, nil
}

// Registry is an in-memory practitioner registry.
type Registry struct {
	mu        sync.RWMutex
	byReg     map[string]*ports.Practitioner
	byLicense map[string]string
	cpd       map[string][]CPDEntry
}

func NewRegistry(seed ...SeedPractitioner) *Registry {
	r := &Registry{
		byReg:     make(map[string]*ports.Practitioner),
		byLicense: make(map[string]string),
		cpd:       make(map[string][]CPDEntry),
	}
	for _, p := range seed {
		r.Put(p)
	}
	return r
}

// LoadRegistryFile reads seed practitioners from a YAML file.
func LoadRegistryFile(path string) (*Registry, error) {
	seed, err := LoadSeed(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(seed.Practitioners...), nil
}

// Put inserts or replaces a practitioner.
func (r *Registry) Put(p SeedPractitioner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byReg[p.RegistrationNumber] = &ports.Practitioner{
		RegistrationNumber: p.RegistrationNumber,
		FullName:           p.FullName,
		Email:              p.Email,
		Specialty:          p.Specialty,
		LicenseNumber:      p.LicenseNumber,
		LicenseStatus:      p.LicenseStatus,
		LicenseExpiresAt:   p.LicenseExpiresAt,
	}
	if p.LicenseNumber != "" {
		r.byLicense[p.LicenseNumber] = p.RegistrationNumber
	}
	r.cpd[p.RegistrationNumber] = append([]CPDEntry(nil), p.CPD...)
}

func (r *Registry) Lookup(_ context.Context, registrationNumber string) (*ports.Practitioner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byReg[registrationNumber]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r *Registry) CPDCredits(_ context.Context, registrationNumber string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byReg[registrationNumber]; !ok {
		return 0, sentinel.ErrNotFound
	}
	total := 0
	for _, e := range r.cpd[registrationNumber] {
		if !e.AwardedAt.Before(since) {
			total += e.Credits
		}
	}
	return total, nil
}

func (r *Registry) UpdateLicenseStatus(_ context.Context, licenseNumber, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byLicense[licenseNumber]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.byReg[reg].LicenseStatus = status
	return nil
}

// register records a newly issued license.
func (r *Registry) register(p ports.Practitioner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byReg[p.RegistrationNumber] = &p
	r.byLicense[p.LicenseNumber] = p.RegistrationNumber
}
