package workflow

import (
	"context"

	policyModels "regulus/internal/policy/models"
	"regulus/internal/workflow/models"
	audit "regulus/pkg/platform/audit"
)

// Store persists workflow instances keyed by workflow id.
type Store interface {
	// Create stores a new instance; sentinel.ErrConflict if the id exists.
	Create(ctx context.Context, inst *models.Instance) error
	// Get returns the instance or sentinel.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Instance, error)
	// Update replaces the instance if the stored version equals
	// expectedVersion, returning sentinel.ErrConflict otherwise.
	Update(ctx context.Context, inst *models.Instance, expectedVersion int64) error
	// List returns matching instances ordered by creation time.
	List(ctx context.Context, filter models.ListFilter) ([]*models.Instance, error)
}

// AuditAppender records workflow transitions.
type AuditAppender interface {
	Append(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}

// Authorizer decides whether a session may operate on a workflow. The policy
// gate satisfies it; workflows of type t are the resource t.Resource().
type Authorizer interface {
	Evaluate(ctx context.Context, req policyModels.AccessRequest, sc policyModels.SecurityContext) (*policyModels.Decision, error)
}
