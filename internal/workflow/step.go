package workflow

import (
	"context"
	"fmt"
	"slices"
	"time"

	policyModels "regulus/internal/policy/models"
	"regulus/internal/workflow/models"
	audit "regulus/pkg/platform/audit"
)

// Step is one business step of a workflow type. Run is called outside any
// lock. A returned error fails the instance; its domain message becomes
// the recorded failure reason.
type Step interface {
	Name() string
	Run(ctx context.Context, in StepInput) (*StepOutcome, error)
}

// InputValidator is implemented by steps that take caller input on the
// advance that runs them. A rejection leaves the instance untouched.
type InputValidator interface {
	ValidateInput(in StepInput) error
}

// Restricted is implemented by steps only some roles may run, such as a
// licensing decision. Other roles are refused before anything is persisted.
type Restricted interface {
	AllowedRoles() []string
}

// Charging is implemented by steps that move money. A failed charging step
// is re-opened only when the retry explicitly allows a repeat charge.
type Charging interface {
	Charges() bool
}

// StepInput is what a step sees. Metadata is a private copy.
type StepInput struct {
	WorkflowID string
	Type       models.Type
	Step       string
	Metadata   models.Metadata
	// Input is caller-supplied data for this advance only.
	Input    models.Metadata
	Security policyModels.SecurityContext
	// Attempt counts retries of the instance; 0 on the first run.
	Attempt int
	Now     time.Time
}

// Reference is a stable idempotency key for external calls of this step.
func (in StepInput) Reference() string {
	return fmt.Sprintf("%s:%s:%d", in.WorkflowID, in.Step, in.Attempt)
}

// StepOutcome is a successful step's contribution.
type StepOutcome struct {
	// Output is merged into the instance metadata.
	Output models.Metadata
	// Redact removes metadata keys, e.g. a plaintext field the step encrypted.
	Redact []string
	// Events are audited in addition to the step entry.
	Events []StepEvent
}

// StepEvent is a domain event a step's side effect represents, such as a
// license suspension.
type StepEvent struct {
	Action     audit.Action
	Resource   string
	ResourceID string
	Reason     string
	Metadata   map[string]string
}

// Registry maps each workflow type to its ordered steps.
type Registry struct {
	sequences map[models.Type][]Step
}

func NewRegistry() *Registry {
	return &Registry{sequences: make(map[models.Type][]Step)}
}

// Register binds steps to t. The step names must match the fixed sequence
// of t exactly and in order.
func (r *Registry) Register(t models.Type, steps ...Step) error {
	want, ok := models.Sequences[t]
	if !ok {
		return fmt.Errorf("unknown workflow type %q", t)
	}
	got := make([]string, 0, len(steps))
	for _, s := range steps {
		if s == nil {
			return fmt.Errorf("nil step registered for %s", t)
		}
		got = append(got, s.Name())
	}
	if !slices.Equal(want, got) {
		return fmt.Errorf("%s steps %v do not match sequence %v", t, got, want)
	}
	r.sequences[t] = steps
	return nil
}

// Steps returns the registered steps of t.
func (r *Registry) Steps(t models.Type) ([]Step, bool) {
	s, ok := r.sequences[t]
	return s, ok
}

// Complete reports the first workflow type with no registered steps.
func (r *Registry) Complete() error {
	for t := range models.Sequences {
		if _, ok := r.sequences[t]; !ok {
			return fmt.Errorf("no steps registered for %s", t)
		}
	}
	return nil
}
