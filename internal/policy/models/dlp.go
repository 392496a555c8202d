package models

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"time"
	// Embedded zone data so time windows resolve in minimal images.
	_ "time/tzdata"
)

// DLPPolicy constrains access to one resource type. Zero limits mean no limit.
type DLPPolicy struct {
	ResourceType          string      `yaml:"resourceType"`
	MaxViewsPerHour       int         `yaml:"maxViewsPerHour"`
	MaxExportsPerDay      int         `yaml:"maxExportsPerDay"`
	RequiresJustification bool        `yaml:"requiresJustification"`
	WatermarkRequired     bool        `yaml:"watermarkRequired"`
	AllowedRoles          []string    `yaml:"allowedRoles"`
	AllowedIPRanges       []string    `yaml:"allowedIpRanges,omitempty"`
	TimeWindow            *TimeWindow `yaml:"timeWindow,omitempty"`
	EnhancedSecurity      bool        `yaml:"enhancedSecurity"`
	StepUpActions         []Action    `yaml:"stepUpActions,omitempty"`

	ipRanges []netip.Prefix
}

// TimeWindow restricts access to a daily interval on given weekdays in a zone.
// End before Start wraps past midnight.
type TimeWindow struct {
	Start    string   `yaml:"start"`
	End      string   `yaml:"end"`
	Days     []string `yaml:"days,omitempty"`
	Timezone string   `yaml:"timezone,omitempty"`

	startMin int
	endMin   int
	loc      *time.Location
	days     map[time.Weekday]bool
}

// Limit returns the counter limit for kind.
func (p *DLPPolicy) Limit(kind CounterKind) int {
	if kind == CounterExports {
		return p.MaxExportsPerDay
	}
	return p.MaxViewsPerHour
}

// RoleAllowed reports whether role satisfies AllowedRoles. An empty list
// declares no role requirement.
func (p *DLPPolicy) RoleAllowed(role string) bool {
	return len(p.AllowedRoles) == 0 || slices.Contains(p.AllowedRoles, role)
}

// RequiresStepUp reports whether action on this resource is enhanced-security.
func (p *DLPPolicy) RequiresStepUp(action Action) bool {
	if !p.EnhancedSecurity {
		return false
	}
	return len(p.StepUpActions) == 0 || slices.Contains(p.StepUpActions, action)
}

// IPAllowed reports whether addr falls in AllowedIPRanges. No ranges means any.
func (p *DLPPolicy) IPAllowed(addr netip.Addr) bool {
	return len(p.ipRanges) == 0 || containsAddr(p.ipRanges, addr)
}

// Within reports whether t falls inside the window. A nil window is always open.
func (w *TimeWindow) Within(t time.Time) bool {
	if w == nil {
		return true
	}
	local := t.In(w.loc)
	if len(w.days) > 0 && !w.days[local.Weekday()] {
		return false
	}
	m := local.Hour()*60 + local.Minute()
	if w.startMin <= w.endMin {
		return m >= w.startMin && m < w.endMin
	}
	return m >= w.startMin || m < w.endMin
}

// Compile validates the policy and prepares parsed ranges and windows.
func (p *DLPPolicy) Compile() error {
	if p.ResourceType == "" {
		return fmt.Errorf("policy resourceType is required")
	}
	if p.MaxViewsPerHour < 0 || p.MaxExportsPerDay < 0 {
		return fmt.Errorf("policy %s: limits must not be negative", p.ResourceType)
	}
	for _, a := range p.StepUpActions {
		if !a.IsValid() {
			return fmt.Errorf("policy %s: unknown step-up action %q", p.ResourceType, a)
		}
	}
	ranges, err := ParsePrefixes(p.AllowedIPRanges)
	if err != nil {
		return fmt.Errorf("policy %s: %w", p.ResourceType, err)
	}
	p.ipRanges = ranges
	if p.TimeWindow != nil {
		if err := p.TimeWindow.compile(); err != nil {
			return fmt.Errorf("policy %s: %w", p.ResourceType, err)
		}
	}
	return nil
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func (w *TimeWindow) compile() error {
	var err error
	if w.startMin, err = parseClock(w.Start); err != nil {
		return fmt.Errorf("timeWindow start: %w", err)
	}
	if w.endMin, err = parseClock(w.End); err != nil {
		return fmt.Errorf("timeWindow end: %w", err)
	}
	if w.startMin == w.endMin {
		return fmt.Errorf("timeWindow start and end must differ")
	}
	w.loc = time.UTC
	if w.Timezone != "" {
		if w.loc, err = time.LoadLocation(w.Timezone); err != nil {
			return fmt.Errorf("timeWindow timezone: %w", err)
		}
	}
	w.days = make(map[time.Weekday]bool, len(w.Days))
	for _, d := range w.Days {
		name := strings.ToLower(strings.TrimSpace(d))
		if len(name) > 3 {
			name = name[:3]
		}
		wd, ok := weekdays[name]
		if !ok {
			return fmt.Errorf("timeWindow: unknown day %q", d)
		}
		w.days[wd] = true
	}
	return nil
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", v)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ParsePrefixes parses CIDR strings; a bare address is a single-host range.
func ParsePrefixes(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if !strings.Contains(v, "/") {
			addr, err := netip.ParseAddr(v)
			if err != nil {
				return nil, fmt.Errorf("invalid ip range %q", v)
			}
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ip range %q", v)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

func containsAddr(ranges []netip.Prefix, addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range ranges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// PolicySet is an immutable, compiled snapshot of the DLP configuration.
type PolicySet struct {
	Version        int
	SensitiveRoles []string
	policies       map[string]*DLPPolicy
	roleNetworks   map[string][]netip.Prefix
}

// WildcardResource is the fallback policy key.
const WildcardResource = "*"

// NewPolicySet compiles policies and role networks into a snapshot.
func NewPolicySet(version int, policies []DLPPolicy, sensitiveRoles []string, roleNetworks map[string][]string) (*PolicySet, error) {
	set := &PolicySet{
		Version:        version,
		SensitiveRoles: sensitiveRoles,
		policies:       make(map[string]*DLPPolicy, len(policies)),
		roleNetworks:   make(map[string][]netip.Prefix, len(roleNetworks)),
	}
	if len(set.SensitiveRoles) == 0 {
		set.SensitiveRoles = DefaultSensitiveRoles
	}
	for i := range policies {
		p := policies[i]
		if err := p.Compile(); err != nil {
			return nil, err
		}
		if _, dup := set.policies[p.ResourceType]; dup {
			return nil, fmt.Errorf("duplicate policy for resource type %q", p.ResourceType)
		}
		set.policies[p.ResourceType] = &p
	}
	for role, cidrs := range roleNetworks {
		ranges, err := ParsePrefixes(cidrs)
		if err != nil {
			return nil, fmt.Errorf("roleNetworks %s: %w", role, err)
		}
		set.roleNetworks[role] = ranges
	}
	return set, nil
}

// Policy returns the policy for resourceType, falling back to the wildcard.
func (s *PolicySet) Policy(resourceType string) (*DLPPolicy, bool) {
	if p, ok := s.policies[resourceType]; ok {
		return p, true
	}
	p, ok := s.policies[WildcardResource]
	return p, ok
}

// ResourceTypes lists configured resource types.
func (s *PolicySet) ResourceTypes() []string {
	out := make([]string, 0, len(s.policies))
	for rt := range s.policies {
		out = append(out, rt)
	}
	slices.Sort(out)
	return out
}

// IsSensitiveRole reports whether role is subject to the IP allow-list.
func (s *PolicySet) IsSensitiveRole(role string) bool {
	return slices.Contains(s.SensitiveRoles, role)
}

// RoleNetworkAllows reports whether addr is inside a range configured for
// role. A sensitive role without configured ranges allows nothing.
func (s *PolicySet) RoleNetworkAllows(role string, addr netip.Addr) bool {
	return containsAddr(s.roleNetworks[role], addr)
}
