package access

import (
	"context"

	"github.com/iflyair/ifly-backend/internal/core/domain"
)

// Request is the context a permission check runs against.
type Request struct {
	Principal *domain.Principal
	Kind      string
	Action    string
	// RecordID is set for detail operations, 0 otherwise.
	RecordID int64
	// InScope lazily resolves whether the target record's ownership path
	// terminates at the principal. It is provided by the endpoint template
	// for detail operations and consulted only by OwnerOnly.
	InScope func(ctx context.Context) (bool, error)
}

// Check is a single permission predicate. It returns nil to pass, or one of
// domain.ErrUnauthenticated / domain.ErrForbidden to deny.
type Check func(ctx context.Context, req Request) error

// AllowAny passes unconditionally. Used for public read surfaces.
func AllowAny(ctx context.Context, req Request) error {
	return nil
}

// Authenticated requires a verified principal.
func Authenticated(ctx context.Context, req Request) error {
	if req.Principal == nil {
		return domain.ErrUnauthenticated
	}
	return nil
}

// AdminOnly requires an admin principal.
func AdminOnly(ctx context.Context, req Request) error {
	if req.Principal == nil {
		return domain.ErrUnauthenticated
	}
	if !req.Principal.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

// OwnerOnly requires the target record's ownership path to terminate at the
// principal. Admins pass outright. Denial surfaces as ErrForbidden; callers
// relying on existence non-leakage should prefer scoped selection, which
// yields 404 instead.
func OwnerOnly(ctx context.Context, req Request) error {
	if req.Principal == nil {
		return domain.ErrUnauthenticated
	}
	if req.Principal.IsAdmin() {
		return nil
	}
	if req.InScope == nil {
		return domain.ErrForbidden
	}
	ok, err := req.InScope(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

// AnyOf passes when at least one child check passes. When every child
// denies, the denial is ErrForbidden for authenticated principals and
// ErrUnauthenticated otherwise.
func AnyOf(checks ...Check) Check {
	return func(ctx context.Context, req Request) error {
		var firstErr error
		for _, check := range checks {
			err := check(ctx, req)
			if err == nil {
				return nil
			}
			if firstErr == nil {
				firstErr = err
			}
		}
		if firstErr == nil {
			firstErr = domain.ErrForbidden
		}
		if req.Principal != nil && firstErr == domain.ErrUnauthenticated {
			return domain.ErrForbidden
		}
		return firstErr
	}
}

// AllOf passes when every child check passes; the first failure decides the
// denial reason.
func AllOf(checks ...Check) Check {
	return func(ctx context.Context, req Request) error {
		for _, check := range checks {
			if err := check(ctx, req); err != nil {
				return err
			}
		}
		return nil
	}
}

// Policy maps an action name to its ordered permission checks. Actions not
// listed fall back to requiring an authenticated principal.
type Policy map[string][]Check

// defaultChecks is the fallback applied to unlisted actions.
var defaultChecks = []Check{Authenticated}

// Checks returns the check list for the action, honoring the fallback. An
// action explicitly mapped to an empty list is open to anyone.
func (p Policy) Checks(action string) []Check {
	if p != nil {
		if checks, ok := p[action]; ok {
			return checks
		}
	}
	return defaultChecks
}

// Authorize runs the action's checks in declared order; the first failing
// check determines the denial reason.
func (p Policy) Authorize(ctx context.Context, req Request) error {
	for _, check := range p.Checks(req.Action) {
		if err := check(ctx, req); err != nil {
			return err
		}
	}
	return nil
}
