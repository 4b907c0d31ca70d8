package shared

import "context"

// Principal identifies the authenticated caller and the organization every
// operation is scoped to. It is resolved by upstream identity middleware;
// nothing in this module authenticates credentials.
type Principal struct {
	UserID int64
	OrgID  int64
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

// OrgFromContext returns the active organization id, or a state error when
// no principal was resolved.
func OrgFromContext(ctx context.Context) (int64, error) {
	p := PrincipalFromContext(ctx)
	if p == nil || p.OrgID == 0 {
		return 0, Statef("no active organization resolved for request")
	}
	return p.OrgID, nil
}
