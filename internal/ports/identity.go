package ports

import (
	"context"

	"github.com/bft-labs/workclock/internal/domain"
)

// IdentityProvider resolves the principal acting on work orders.
type IdentityProvider interface {
	// Current returns the acting principal, or an error wrapping
	// domain.ErrAuthenticationRequired when nobody is signed in.
	Current(ctx context.Context) (domain.Principal, error)
}

// StaticIdentity always returns the same principal. An empty ID means
// unauthenticated.
type StaticIdentity domain.Principal

// Current implements IdentityProvider.
func (s StaticIdentity) Current(context.Context) (domain.Principal, error) {
	if s.ID == "" {
		return domain.Principal{}, domain.E(domain.ErrAuthenticationRequired, "identity", "no principal configured")
	}
	return domain.Principal(s), nil
}
