package access

import (
	"context"
	"fmt"
	"sort"

	"github.com/iflyair/ifly-backend/internal/core/domain"
	"github.com/iflyair/ifly-backend/internal/core/ports"
)

// ActionContext carries everything a custom action handler needs: the
// requesting principal, the target record (already confirmed in scope), and
// the decoded request body. The store handle lets the action perform its
// writes; anything else the action needs is closed over at wiring time.
type ActionContext struct {
	Principal domain.Principal
	Record    domain.Record
	Body      map[string]any
	Store     ports.Store
}

// ActionFunc implements a named custom action on a record.
type ActionFunc func(ctx context.Context, ac ActionContext) (any, error)

// UpdateHook runs before an update is persisted. It sees the current record
// and the cleaned patch and may reject the write, e.g. to enforce a status
// state machine.
type UpdateHook func(p domain.Principal, current domain.Record, patch domain.Record) error

// Kind is the full registration of one resource kind.
type Kind struct {
	Name      string
	Ownership Ownership
	Policy    Policy
	Schema    Schema
	// Actions maps custom action names to handlers, routed as
	// POST /<name>/<id>/<action>/.
	Actions map[string]ActionFunc
	// BeforeCreate, when set, runs after ownership injection and may fill
	// defaults or reject the record.
	BeforeCreate func(p domain.Principal, rec domain.Record) error
	// BeforeUpdate, when set, vets every update against the current record.
	BeforeUpdate UpdateHook
	// ReadOnly kinds expose only list and retrieve; write methods are not
	// routed and answer 405.
	ReadOnly bool
}

// Builder collects kind registrations at startup. Freeze finalizes it into
// an immutable Registry; the builder is unusable afterwards. Registration is
// single-goroutine startup work, so the builder carries no lock.
type Builder struct {
	kinds  map[string]Kind
	frozen bool
}

func NewBuilder() *Builder {
	return &Builder{kinds: map[string]Kind{}}
}

// Register adds a kind. Registering after Freeze, registering a duplicate
// name, or registering an unnamed kind is a programming error and panics.
func (b *Builder) Register(k Kind) *Builder {
	if b.frozen {
		panic("access: Register called after Freeze")
	}
	if k.Name == "" {
		panic("access: kind requires a name")
	}
	if _, exists := b.kinds[k.Name]; exists {
		panic(fmt.Sprintf("access: kind %q registered twice", k.Name))
	}
	if k.Ownership.Shape == ShapeCustom && k.Ownership.Predicate == nil {
		panic(fmt.Sprintf("access: kind %q has Custom ownership without a predicate", k.Name))
	}
	b.kinds[k.Name] = k
	return b
}

// Freeze finalizes the registry. The returned Registry is never mutated and
// therefore needs no synchronization.
func (b *Builder) Freeze() *Registry {
	if b.frozen {
		panic("access: Freeze called twice")
	}
	b.frozen = true
	kinds := make(map[string]Kind, len(b.kinds))
	for name, k := range b.kinds {
		kinds[name] = k
	}
	b.kinds = nil
	return &Registry{kinds: kinds}
}

// Registry is the immutable set of registered resource kinds.
type Registry struct {
	kinds map[string]Kind
}

func (r *Registry) Get(name string) (Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Names returns the registered kind names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
