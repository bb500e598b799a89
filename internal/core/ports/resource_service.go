package ports

import (
	"context"

	"github.com/iflyair/ifly-backend/internal/core/domain"
)

// ListInput carries the parameters of a collection read.
type ListInput struct {
	Principal *domain.Principal
	// Filters are equality filters on schema-declared fields, taken from
	// query parameters. Unknown fields are ignored.
	Filters map[string]string
	// Limit optionally caps the response size. <= 0 means unbounded.
	Limit int64
}

// WriteInput carries the parameters of a create or update.
type WriteInput struct {
	Principal *domain.Principal
	Body      map[string]any
	// Partial marks an update as PATCH semantics (absent fields untouched).
	Partial bool
}

// ActionInput carries the parameters of a named custom action on a record.
type ActionInput struct {
	Principal *domain.Principal
	Body      map[string]any
}

// BulkResult reports how many records a bulk operation actually affected.
type BulkResult struct {
	Affected int64 `json:"affected"`
}

// ResourceService is the uniform CRUD + custom-action surface instantiated
// per registered resource kind.
type ResourceService interface {
	List(ctx context.Context, kind string, in ListInput) ([]domain.Record, error)
	Retrieve(ctx context.Context, kind string, id int64, p *domain.Principal) (domain.Record, error)
	Create(ctx context.Context, kind string, in WriteInput) (domain.Record, error)
	Update(ctx context.Context, kind string, id int64, in WriteInput) (domain.Record, error)
	Delete(ctx context.Context, kind string, id int64, p *domain.Principal) error
	BulkDelete(ctx context.Context, kind string, ids []int64, p *domain.Principal) (BulkResult, error)
	Action(ctx context.Context, kind, action string, id int64, in ActionInput) (any, error)
}
