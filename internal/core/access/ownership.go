// Package access implements the role-and-ownership-scoped resource layer:
// ownership shapes, action policies, serializer schemas, and the frozen
// registry of resource kinds every endpoint is instantiated from.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/iflyair/ifly-backend/internal/core/domain"
	"github.com/iflyair/ifly-backend/internal/core/ports"
)

// Shape identifies how a kind's records link back to a principal.
type Shape int

const (
	// ShapeDirect: record.user_id = principal id.
	ShapeDirect Shape = iota
	// ShapeViaOrder: record.order_id references an order owned by the principal.
	ShapeViaOrder
	// ShapeViaTicket: record.ticket_id references a ticket owned by the principal.
	ShapeViaTicket
	// ShapeViaAccount: record.account_id references an account owned by the principal.
	ShapeViaAccount
	// ShapePublic: no ownership filter, readable by anyone the policy admits.
	ShapePublic
	// ShapeCustom: an arbitrary total predicate over (principal, record).
	ShapeCustom
)

// Predicate is the escape hatch for ownership that cannot be expressed as a
// store filter. It must be total over all records of the kind.
type Predicate func(p domain.Principal, rec domain.Record) bool

// Ownership is the declarative ownership configuration of a resource kind.
type Ownership struct {
	Shape     Shape
	Predicate Predicate // set only for ShapeCustom
}

func Direct() Ownership     { return Ownership{Shape: ShapeDirect} }
func ViaOrder() Ownership   { return Ownership{Shape: ShapeViaOrder} }
func ViaTicket() Ownership  { return Ownership{Shape: ShapeViaTicket} }
func ViaAccount() Ownership { return Ownership{Shape: ShapeViaAccount} }
func Public() Ownership     { return Ownership{Shape: ShapePublic} }

func Custom(pred Predicate) Ownership {
	if pred == nil {
		panic("access: Custom ownership requires a predicate")
	}
	return Ownership{Shape: ShapeCustom, Predicate: pred}
}

// RefField returns the record field holding the intermediate reference for
// reference-hop shapes, and whether the shape has one.
func (o Ownership) RefField() (string, bool) {
	switch o.Shape {
	case ShapeViaOrder:
		return "order_id", true
	case ShapeViaTicket:
		return "ticket_id", true
	case ShapeViaAccount:
		return "account_id", true
	}
	return "", false
}

// RefKind returns the kind the intermediate reference points at.
func (o Ownership) RefKind() (string, bool) {
	switch o.Shape {
	case ShapeViaOrder:
		return "orders", true
	case ShapeViaTicket:
		return "tickets", true
	case ShapeViaAccount:
		return "accounts", true
	}
	return "", false
}

// Resolver turns an ownership configuration into store filters scoped to a
// principal. It holds no state beyond the store handle and is safe for
// concurrent use.
type Resolver struct {
	store ports.Store
}

func NewResolver(store ports.Store) *Resolver {
	return &Resolver{store: store}
}

// Scope builds the record-store filter selecting exactly the records the
// principal may see for the given ownership. The returned predicate is
// non-nil only for Custom shapes, where records matching the filter must
// additionally satisfy it; admins bypass both.
//
// Reference-hop shapes are resolved as a membership filter over the ids of
// intermediates the principal owns: a record pointing at a missing or
// foreign intermediate never matches. A null ownership field likewise never
// matches a concrete id, so such records stay invisible to non-admins.
func (r *Resolver) Scope(ctx context.Context, p *domain.Principal, o Ownership) (ports.Filter, Predicate, error) {
	if p != nil && p.IsAdmin() {
		return ports.All(), nil, nil
	}

	switch o.Shape {
	case ShapePublic:
		return ports.All(), nil, nil
	case ShapeCustom:
		return ports.All(), o.Predicate, nil
	}

	if p == nil {
		// Unauthenticated requests own nothing; the policy layer normally
		// rejects them before scoping is reached.
		return ports.In("user_id", nil), nil, nil
	}

	if o.Shape == ShapeDirect {
		return ports.Eq("user_id", p.ID), nil, nil
	}

	refField, _ := o.RefField()
	refKind, ok := o.RefKind()
	if !ok {
		return ports.Filter{}, nil, fmt.Errorf("access: unknown ownership shape %d", o.Shape)
	}

	ownedIDs, err := r.store.SelectIDs(ctx, refKind, ports.Eq("user_id", p.ID))
	if err != nil {
		return ports.Filter{}, nil, fmt.Errorf("resolve %s ownership: %w", refKind, err)
	}
	return ports.InIDs(refField, ownedIDs), nil, nil
}

// InScope reports whether the record with the given id is visible to the
// principal under the ownership configuration.
func (r *Resolver) InScope(ctx context.Context, p *domain.Principal, o Ownership, kind string, id int64) (bool, error) {
	rec, err := r.Visible(ctx, p, o, kind, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return rec != nil, nil
}

// Visible returns the record with the given id if it is inside the
// principal's scope, and domain.ErrNotFound otherwise. Whether the record
// is missing or merely invisible is deliberately indistinguishable.
func (r *Resolver) Visible(ctx context.Context, p *domain.Principal, o Ownership, kind string, id int64) (domain.Record, error) {
	filter, pred, err := r.Scope(ctx, p, o)
	if err != nil {
		return nil, err
	}
	rec, err := r.store.SelectOne(ctx, kind, filter.And(ports.Eq("id", id)))
	if err != nil {
		return nil, err
	}
	if pred != nil && !EvalPredicate(pred, p, rec) {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

// EvalPredicate applies a Custom predicate, substituting the zero Principal
// (id 0, plain user) for anonymous requests so predicates stay total.
func EvalPredicate(pred Predicate, p *domain.Principal, rec domain.Record) bool {
	var principal domain.Principal
	if p != nil {
		principal = *p
	}
	return pred(principal, rec)
}
