package access

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/iflyair/ifly-backend/internal/core/domain"
	"github.com/iflyair/ifly-backend/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub store
// ---------------------------------------------------------------------------

type stubStore struct {
	data map[string]map[int64]domain.Record
	seq  int64
}

func newStubStore() *stubStore {
	return &stubStore{data: map[string]map[int64]domain.Record{}}
}

func (s *stubStore) add(kind string, rec domain.Record) domain.Record {
	s.seq++
	clone := rec.Clone()
	clone["id"] = s.seq
	if s.data[kind] == nil {
		s.data[kind] = map[int64]domain.Record{}
	}
	s.data[kind][s.seq] = clone
	return clone
}

func (s *stubStore) Select(_ context.Context, kind string, f ports.Filter, limit int64) ([]domain.Record, error) {
	var out []domain.Record
	for _, rec := range s.data[kind] {
		if f.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubStore) SelectOne(ctx context.Context, kind string, f ports.Filter) (domain.Record, error) {
	recs, err := s.Select(ctx, kind, f, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, domain.ErrNotFound
	}
	return recs[0], nil
}

func (s *stubStore) SelectIDs(ctx context.Context, kind string, f ports.Filter) ([]int64, error) {
	recs, err := s.Select(ctx, kind, f, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID()
	}
	return ids, nil
}

func (s *stubStore) Insert(_ context.Context, kind string, rec domain.Record) (domain.Record, error) {
	return s.add(kind, rec), nil
}

func (s *stubStore) Update(_ context.Context, kind string, id int64, patch domain.Record) (domain.Record, error) {
	// Mirrors the record store: an empty $set is a server-side error there.
	if len(patch) == 0 {
		return nil, errors.New("empty update document")
	}
	rec, ok := s.data[kind][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for k, v := range patch {
		rec[k] = v
	}
	return rec.Clone(), nil
}

func (s *stubStore) UpdateWhere(ctx context.Context, kind string, f ports.Filter, patch domain.Record) (int64, error) {
	var n int64
	for _, rec := range s.data[kind] {
		if f.Matches(rec) {
			for k, v := range patch {
				rec[k] = v
			}
			n++
		}
	}
	return n, nil
}

func (s *stubStore) Delete(_ context.Context, kind string, id int64) error {
	if _, ok := s.data[kind][id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.data[kind], id)
	return nil
}

func (s *stubStore) DeleteWhere(_ context.Context, kind string, f ports.Filter) (int64, error) {
	var n int64
	for id, rec := range s.data[kind] {
		if f.Matches(rec) {
			delete(s.data[kind], id)
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

var (
	alice = &domain.Principal{ID: 1, Role: domain.RoleUser}
	bob   = &domain.Principal{ID: 2, Role: domain.RoleUser}
	root  = &domain.Principal{ID: 9, Role: domain.RoleAdmin}
)

func listIDs(t *testing.T, store *stubStore, r *Resolver, p *domain.Principal, o Ownership, kind string) []int64 {
	t.Helper()
	filter, pred, err := r.Scope(context.Background(), p, o)
	if err != nil {
		t.Fatalf("Scope: %v", err)
	}
	recs, err := store.Select(context.Background(), kind, filter, 0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	var ids []int64
	for _, rec := range recs {
		if pred != nil && !EvalPredicate(pred, p, rec) {
			continue
		}
		ids = append(ids, rec.ID())
	}
	return ids
}

func TestScopeDirect(t *testing.T) {
	store := newStubStore()
	r := NewResolver(store)

	mine := store.add("tickets", domain.Record{"user_id": alice.ID})
	store.add("tickets", domain.Record{"user_id": bob.ID})
	store.add("tickets", domain.Record{"user_id": nil}) // orphaned

	ids := listIDs(t, store, r, alice, Direct(), "tickets")
	if len(ids) != 1 || ids[0] != mine.ID() {
		t.Fatalf("alice sees %v, want [%d]", ids, mine.ID())
	}

	if got := listIDs(t, store, r, root, Direct(), "tickets"); len(got) != 3 {
		t.Fatalf("admin sees %d records, want 3", len(got))
	}
}

func TestScopeNullOwnerInvisible(t *testing.T) {
	store := newStubStore()
	r := NewResolver(store)
	store.add("tickets", domain.Record{"user_id": nil})

	if ids := listIDs(t, store, r, alice, Direct(), "tickets"); len(ids) != 0 {
		t.Fatalf("null-owned record visible to non-admin: %v", ids)
	}
}

func TestScopeViaOrder(t *testing.T) {
	store := newStubStore()
	r := NewResolver(store)

	aliceOrder := store.add("orders", domain.Record{"user_id": alice.ID})
	bobOrder := store.add("orders", domain.Record{"user_id": bob.ID})

	mine := store.add("bookings", domain.Record{"order_id": aliceOrder.ID()})
	store.add("bookings", domain.Record{"order_id": bobOrder.ID()})
	store.add("bookings", domain.Record{"order_id": int64(999)}) // dangling ref

	ids := listIDs(t, store, r, alice, ViaOrder(), "bookings")
	if len(ids) != 1 || ids[0] != mine.ID() {
		t.Fatalf("alice sees %v, want [%d]", ids, mine.ID())
	}

	// Deleting the intermediate hides the record from its former owner but
	// not from admins.
	if err := store.Delete(context.Background(), "orders", aliceOrder.ID()); err != nil {
		t.Fatalf("delete order: %v", err)
	}
	if ids := listIDs(t, store, r, alice, ViaOrder(), "bookings"); len(ids) != 0 {
		t.Fatalf("booking behind deleted order still visible: %v", ids)
	}
	if ids := listIDs(t, store, r, root, ViaOrder(), "bookings"); len(ids) != 3 {
		t.Fatalf("admin sees %d bookings, want 3", len(ids))
	}
}

func TestScopePublic(t *testing.T) {
	store := newStubStore()
	r := NewResolver(store)
	store.add("flights", domain.Record{"airline": "IF"})

	if ids := listIDs(t, store, r, alice, Public(), "flights"); len(ids) != 1 {
		t.Fatalf("public record hidden from user")
	}
	if ids := listIDs(t, store, r, nil, Public(), "flights"); len(ids) != 1 {
		t.Fatalf("public record hidden from anonymous")
	}
}

func TestScopeCustom(t *testing.T) {
	store := newStubStore()
	r := NewResolver(store)
	active := store.add("promotions", domain.Record{"active": true})
	store.add("promotions", domain.Record{"active": false})

	o := Custom(func(_ domain.Principal, rec domain.Record) bool {
		return rec.Bool("active")
	})

	ids := listIDs(t, store, r, alice, o, "promotions")
	if len(ids) != 1 || ids[0] != active.ID() {
		t.Fatalf("alice sees %v, want [%d]", ids, active.ID())
	}

	// Admin bypasses the predicate entirely.
	if ids := listIDs(t, store, r, root, o, "promotions"); len(ids) != 2 {
		t.Fatalf("admin sees %d promotions, want 2", len(ids))
	}

	// Anonymous requests evaluate the predicate with the zero principal.
	if ids := listIDs(t, store, r, nil, o, "promotions"); len(ids) != 1 {
		t.Fatalf("anonymous sees %d promotions, want 1", len(ids))
	}
}

func TestVisibleOutOfScopeIsNotFound(t *testing.T) {
	store := newStubStore()
	r := NewResolver(store)
	theirs := store.add("tickets", domain.Record{"user_id": bob.ID})

	_, err := r.Visible(context.Background(), alice, Direct(), "tickets", theirs.ID())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	rec, err := r.Visible(context.Background(), root, Direct(), "tickets", theirs.ID())
	if err != nil {
		t.Fatalf("admin retrieve: %v", err)
	}
	if rec.ID() != theirs.ID() {
		t.Fatalf("admin got record %d, want %d", rec.ID(), theirs.ID())
	}
}

func TestInScope(t *testing.T) {
	store := newStubStore()
	r := NewResolver(store)
	mine := store.add("tickets", domain.Record{"user_id": alice.ID})

	ok, err := r.InScope(context.Background(), alice, Direct(), "tickets", mine.ID())
	if err != nil || !ok {
		t.Fatalf("owner not in scope: ok=%v err=%v", ok, err)
	}
	ok, err = r.InScope(context.Background(), bob, Direct(), "tickets", mine.ID())
	if err != nil || ok {
		t.Fatalf("non-owner in scope: ok=%v err=%v", ok, err)
	}
}
