package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iflyair/ifly-backend/internal/pkg/metrics"
	"github.com/iflyair/ifly-backend/internal/core/access"
	"github.com/iflyair/ifly-backend/internal/core/domain"
	"github.com/iflyair/ifly-backend/internal/core/ports"
)

// ResourceService is the endpoint template: one implementation of the
// canonical CRUD + custom-action surface shared by every registered resource
// kind. Per-kind behavior comes entirely from the registry entry (ownership
// shape, action policy, schema, hooks); the service itself holds no mutable
// state and is safe for concurrent use.
type ResourceService struct {
	reg      *access.Registry
	store    ports.Store
	resolver *access.Resolver
	log      zerolog.Logger
}

func NewResourceService(reg *access.Registry, store ports.Store, log zerolog.Logger) *ResourceService {
	return &ResourceService{
		reg:      reg,
		store:    store,
		resolver: access.NewResolver(store),
		log:      log,
	}
}

// kind resolves a registered kind; unknown kinds read as missing resources.
func (s *ResourceService) kind(name string) (access.Kind, error) {
	k, ok := s.reg.Get(name)
	if !ok {
		return access.Kind{}, domain.ErrNotFound
	}
	return k, nil
}

// authorize runs the kind's policy for the action and records the decision.
func (s *ResourceService) authorize(ctx context.Context, k access.Kind, action string, p *domain.Principal, recordID int64) error {
	req := access.Request{
		Principal: p,
		Kind:      k.Name,
		Action:    action,
		RecordID:  recordID,
	}
	if recordID != 0 {
		req.InScope = func(ctx context.Context) (bool, error) {
			return s.resolver.InScope(ctx, p, k.Ownership, k.Name, recordID)
		}
	}
	err := k.Policy.Authorize(ctx, req)
	metrics.AuthzDecisionsTotal.WithLabelValues(k.Name, action, authzOutcome(err)).Inc()
	return err
}

func authzOutcome(err error) string {
	switch {
	case err == nil:
		return "allow"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "deny_unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		return "deny_forbidden"
	default:
		return "error"
	}
}

// List returns the records of the kind visible to the principal, as a bare
// ordered sequence. Query filters apply only to schema-declared fields;
// anything else is ignored.
func (s *ResourceService) List(ctx context.Context, kind string, in ports.ListInput) ([]domain.Record, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, k, "list", in.Principal, 0); err != nil {
		return nil, err
	}

	filter, pred, err := s.resolver.Scope(ctx, in.Principal, k.Ownership)
	if err != nil {
		return nil, err
	}
	for name, raw := range in.Filters {
		if value, ok := k.Schema.CoerceFilter(name, raw); ok {
			filter = filter.And(ports.Eq(name, value))
		}
	}

	// A Custom predicate filters after the store, so the limit cannot be
	// pushed down without under-filling the page.
	selectLimit := in.Limit
	if pred != nil {
		selectLimit = 0
	}

	records, err := s.store.Select(ctx, kind, filter, selectLimit)
	if err != nil {
		return nil, err
	}
	if pred != nil {
		visible := records[:0]
		for _, rec := range records {
			if access.EvalPredicate(pred, in.Principal, rec) {
				visible = append(visible, rec)
			}
		}
		records = visible
		if in.Limit > 0 && int64(len(records)) > in.Limit {
			records = records[:in.Limit]
		}
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

// Retrieve returns the record when it exists inside the principal's scope.
// A record outside the scope is a 404, never a 403: existence must not leak.
func (s *ResourceService) Retrieve(ctx context.Context, kind string, id int64, p *domain.Principal) (domain.Record, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, k, "retrieve", p, id); err != nil {
		return nil, err
	}
	return s.resolver.Visible(ctx, p, k.Ownership, kind, id)
}

// Create validates the body and stores a new record. For Direct kinds the
// creator's id lands in user_id: injected when absent, and for non-admins it
// overrides whatever the body claimed. For reference-hop kinds the
// intermediate must be owned by the creator.
func (s *ResourceService) Create(ctx context.Context, kind string, in ports.WriteInput) (domain.Record, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, k, "create", in.Principal, 0); err != nil {
		return nil, err
	}

	rec, err := k.Schema.Clean(in.Body, false)
	if err != nil {
		return nil, err
	}
	if err := s.applyOwnership(ctx, k, in.Principal, rec); err != nil {
		return nil, err
	}
	if k.BeforeCreate != nil {
		var principal domain.Principal
		if in.Principal != nil {
			principal = *in.Principal
		}
		if err := k.BeforeCreate(principal, rec); err != nil {
			return nil, err
		}
	}

	created, err := s.store.Insert(ctx, kind, rec)
	if err != nil {
		s.log.Error().Err(err).Str("kind", kind).Msg("insert failed")
		return nil, err
	}
	s.log.Info().Str("kind", kind).Int64("id", created.ID()).Msg("record created")
	return created, nil
}

// applyOwnership enforces the create-time ownership rules on the cleaned
// record.
func (s *ResourceService) applyOwnership(ctx context.Context, k access.Kind, p *domain.Principal, rec domain.Record) error {
	switch k.Ownership.Shape {
	case access.ShapeDirect:
		if p == nil {
			return domain.ErrUnauthenticated
		}
		if _, present := rec.Int64("user_id"); !present || !p.IsAdmin() {
			rec["user_id"] = p.ID
		}
		return nil
	case access.ShapeViaOrder, access.ShapeViaTicket, access.ShapeViaAccount:
		refField, _ := k.Ownership.RefField()
		refKind, _ := k.Ownership.RefKind()
		refID, present := rec.Int64(refField)
		if !present {
			return domain.NewValidationError(refField, "this field is required")
		}
		refOwnership, err := s.refOwnership(refKind)
		if err != nil {
			return err
		}
		_, err = s.resolver.Visible(ctx, p, refOwnership, refKind, refID)
		if errors.Is(err, domain.ErrNotFound) {
			// Unknown and unowned intermediates are indistinguishable on
			// purpose: attaching to someone else's order must not reveal it.
			return domain.NewValidationError(refField, fmt.Sprintf("unknown %s", refField))
		}
		return err
	default:
		return nil
	}
}

// refOwnership returns the ownership configuration of an intermediate kind.
// The intermediate kinds are themselves registered, so their configuration
// is authoritative rather than assumed.
func (s *ResourceService) refOwnership(refKind string) (access.Ownership, error) {
	k, ok := s.reg.Get(refKind)
	if !ok {
		return access.Ownership{}, fmt.Errorf("intermediate kind %q not registered", refKind)
	}
	return k.Ownership, nil
}

// Update applies a full or partial update to a record inside the
// principal's scope. The kind's BeforeUpdate hook vets the patch against the
// current record first.
func (s *ResourceService) Update(ctx context.Context, kind string, id int64, in ports.WriteInput) (domain.Record, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, k, "update", in.Principal, id); err != nil {
		return nil, err
	}

	current, err := s.resolver.Visible(ctx, in.Principal, k.Ownership, kind, id)
	if err != nil {
		return nil, err
	}

	patch, err := k.Schema.Clean(in.Body, in.Partial)
	if err != nil {
		return nil, err
	}
	// Ownership fields are immutable through updates; non-admins cannot move
	// a record to another owner and admins use dedicated tooling.
	delete(patch, "user_id")
	if refField, ok := k.Ownership.RefField(); ok {
		delete(patch, refField)
	}

	if k.BeforeUpdate != nil {
		var principal domain.Principal
		if in.Principal != nil {
			principal = *in.Principal
		}
		if err := k.BeforeUpdate(principal, current, patch); err != nil {
			return nil, err
		}
	}

	// A patch emptied by cleaning (read-only or ownership fields only) is a
	// no-op; the scoped read above already confirmed existence.
	if len(patch) == 0 {
		return current, nil
	}

	updated, err := s.store.Update(ctx, kind, id, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("kind", kind).Int64("id", id).Bool("partial", in.Partial).Msg("record updated")
	return updated, nil
}

// Delete removes a record inside the principal's scope.
func (s *ResourceService) Delete(ctx context.Context, kind string, id int64, p *domain.Principal) error {
	k, err := s.kind(kind)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, k, "delete", p, id); err != nil {
		return err
	}
	if _, err := s.resolver.Visible(ctx, p, k.Ownership, kind, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, kind, id); err != nil {
		return err
	}
	s.log.Info().Str("kind", kind).Int64("id", id).Msg("record deleted")
	return nil
}

// BulkDelete removes the requested ids that fall inside the principal's
// scope. Out-of-scope ids are silently dropped from the operation set; the
// result reports the count actually removed.
func (s *ResourceService) BulkDelete(ctx context.Context, kind string, ids []int64, p *domain.Principal) (ports.BulkResult, error) {
	k, err := s.kind(kind)
	if err != nil {
		return ports.BulkResult{}, err
	}
	if err := s.authorize(ctx, k, "bulk_delete", p, 0); err != nil {
		return ports.BulkResult{}, err
	}
	if len(ids) == 0 {
		return ports.BulkResult{}, nil
	}

	filter, pred, err := s.resolver.Scope(ctx, p, k.Ownership)
	if err != nil {
		return ports.BulkResult{}, err
	}
	filter = filter.And(ports.InIDs("id", ids))

	if pred != nil {
		// Custom scoping cannot be expressed as a store filter; resolve the
		// surviving ids first, then delete exactly those.
		records, err := s.store.Select(ctx, kind, filter, 0)
		if err != nil {
			return ports.BulkResult{}, err
		}
		var visible []int64
		for _, rec := range records {
			if access.EvalPredicate(pred, p, rec) {
				visible = append(visible, rec.ID())
			}
		}
		if len(visible) == 0 {
			return ports.BulkResult{}, nil
		}
		filter = ports.InIDs("id", visible)
	}

	affected, err := s.store.DeleteWhere(ctx, kind, filter)
	if err != nil {
		return ports.BulkResult{}, err
	}
	metrics.BulkAffectedTotal.WithLabelValues(kind, "delete").Add(float64(affected))
	s.log.Info().Str("kind", kind).Int64("affected", affected).Int("requested", len(ids)).Msg("bulk delete")
	return ports.BulkResult{Affected: affected}, nil
}

// Action runs a registered custom action against a record inside the
// principal's scope. Unknown actions and out-of-scope records both answer
// 404.
func (s *ResourceService) Action(ctx context.Context, kind, action string, id int64, in ports.ActionInput) (any, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	fn, ok := k.Actions[action]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := s.authorize(ctx, k, action, in.Principal, id); err != nil {
		return nil, err
	}

	rec, err := s.resolver.Visible(ctx, in.Principal, k.Ownership, kind, id)
	if err != nil {
		return nil, err
	}

	var principal domain.Principal
	if in.Principal != nil {
		principal = *in.Principal
	}
	result, err := fn(ctx, access.ActionContext{
		Principal: principal,
		Record:    rec,
		Body:      in.Body,
		Store:     s.store,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("kind", kind).Str("action", action).Int64("id", id).Msg("action executed")
	return result, nil
}
