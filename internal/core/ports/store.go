package ports

import (
	"context"

	"github.com/iflyair/ifly-backend/internal/core/domain"
)

// Op is a comparison operator supported by the record store. The set is
// deliberately small: equality and membership are all the ownership shapes
// and list filters need.
type Op int

const (
	OpEq Op = iota
	OpIn
)

// Clause is a single field comparison.
type Clause struct {
	Field  string
	Op     Op
	Value  any
	Values []any
}

// Filter is a conjunction of clauses. The zero value matches everything.
type Filter struct {
	Clauses []Clause
}

// All returns a filter matching every record.
func All() Filter {
	return Filter{}
}

// Eq returns a filter requiring field = value.
func Eq(field string, value any) Filter {
	return Filter{Clauses: []Clause{{Field: field, Op: OpEq, Value: value}}}
}

// In returns a filter requiring field ∈ values. An empty value set matches
// no record at all.
func In(field string, values []any) Filter {
	return Filter{Clauses: []Clause{{Field: field, Op: OpIn, Values: values}}}
}

// InIDs is In over an id slice.
func InIDs(field string, ids []int64) Filter {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return In(field, values)
}

// And conjoins two filters.
func (f Filter) And(g Filter) Filter {
	clauses := make([]Clause, 0, len(f.Clauses)+len(g.Clauses))
	clauses = append(clauses, f.Clauses...)
	clauses = append(clauses, g.Clauses...)
	return Filter{Clauses: clauses}
}

// Matches evaluates the filter against a record in memory. The store
// compiles filters to its own query language; this form exists for stubs
// and post-selection predicates.
func (f Filter) Matches(rec domain.Record) bool {
	for _, c := range f.Clauses {
		switch c.Op {
		case OpEq:
			if !valueEq(rec[c.Field], c.Value) {
				return false
			}
		case OpIn:
			found := false
			for _, v := range c.Values {
				if valueEq(rec[c.Field], v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// valueEq compares field values with numeric tolerance: stored integers and
// JSON-decoded float64s must compare equal.
func valueEq(a, b any) bool {
	if a == nil || b == nil {
		// A null ownership field never matches a concrete value.
		return a == nil && b == nil
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Store is the record-store contract the access layer runs against. One
// logical collection exists per resource kind; id assignment is the store's
// responsibility and callers must not assume monotonic ids.
type Store interface {
	// Select returns records matching the filter. limit <= 0 means no bound.
	Select(ctx context.Context, kind string, f Filter, limit int64) ([]domain.Record, error)
	// SelectOne returns the single matching record or domain.ErrNotFound.
	SelectOne(ctx context.Context, kind string, f Filter) (domain.Record, error)
	// SelectIDs returns only the ids of matching records.
	SelectIDs(ctx context.Context, kind string, f Filter) ([]int64, error)
	// Insert stores a new record and returns it with its assigned id.
	Insert(ctx context.Context, kind string, rec domain.Record) (domain.Record, error)
	// Update applies patch to the record with the given id and returns the
	// updated record, or domain.ErrNotFound.
	Update(ctx context.Context, kind string, id int64, patch domain.Record) (domain.Record, error)
	// UpdateWhere applies patch to every record matching the filter and
	// reports how many records were modified. Used for compare-and-set
	// status transitions.
	UpdateWhere(ctx context.Context, kind string, f Filter, patch domain.Record) (int64, error)
	// Delete removes the record with the given id, or domain.ErrNotFound.
	Delete(ctx context.Context, kind string, id int64) error
	// DeleteWhere removes every matching record and reports the count.
	DeleteWhere(ctx context.Context, kind string, f Filter) (int64, error)
}
