package catalogAuth

import "context"

// RequireRole checks that the principal attached to ctx holds one of allowed.
// It returns ErrNotAuthenticated when ctx carries no principal and
// ErrForbidden when the role is not in allowed. An empty allowed set denies
// everyone.
func (a *Authority) RequireRole(ctx context.Context, allowed ...Role) (PublicUser, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return PublicUser{}, ErrNotAuthenticated
	}

	if HasRole(p.User.Role, allowed...) {
		return p.User, nil
	}

	a.metrics.Inc(MetricAccessDenied)
	a.emitAudit(ctx, auditEventAccessDenied, p.User.Username, ErrForbidden)
	return PublicUser{}, ErrForbidden
}

// HasRole reports whether role is in allowed.
func HasRole(role Role, allowed ...Role) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}
