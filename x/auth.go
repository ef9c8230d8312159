/*
Package x contains interfaces shared by the extension packages.

The host environment performs all cryptographic caller authentication and
exposes the result through an Authenticator. Extensions only decide
whether an already-authenticated caller is allowed to perform an action.
*/
package x

import (
	"github.com/arx-one/vaultkit"
)

// Authenticator is an interface we can use to extract authentication info
// from the context. This should be passed into the constructor of
// handlers, so we can plug in another authentication system, rather than
// hard-coding one implementation for all extensions.
type Authenticator interface {
	// GetConditions reveals all Conditions fulfilled, you may want the
	// GetAddresses helper.
	GetConditions(vaultkit.Context) []vaultkit.Condition
	// HasAddress checks if any condition matches this address.
	HasAddress(vaultkit.Context, vaultkit.Address) bool
}

// MultiAuth chains together many Authenticators into one.
type MultiAuth struct {
	impls []Authenticator
}

var _ Authenticator = MultiAuth{}

// ChainAuth groups together a series of Authenticator.
func ChainAuth(impls ...Authenticator) MultiAuth {
	return MultiAuth{impls}
}

// GetConditions combines all Conditions from all Authenticators.
func (m MultiAuth) GetConditions(ctx vaultkit.Context) []vaultkit.Condition {
	var res []vaultkit.Condition
	for _, impl := range m.impls {
		add := impl.GetConditions(ctx)
		if len(add) > 0 {
			res = append(res, add...)
		}
	}
	return res
}

// HasAddress returns true iff any Authenticator supports this address.
func (m MultiAuth) HasAddress(ctx vaultkit.Context, addr vaultkit.Address) bool {
	for _, impl := range m.impls {
		if impl.HasAddress(ctx, addr) {
			return true
		}
	}
	return false
}

// GetAddresses wraps the GetConditions method of any Authenticator.
func GetAddresses(ctx vaultkit.Context, auth Authenticator) []vaultkit.Address {
	perms := auth.GetConditions(ctx)
	addrs := make([]vaultkit.Address, len(perms))
	for i, p := range perms {
		addrs[i] = p.Address()
	}
	return addrs
}

// MainSigner returns the first permission if any, otherwise nil.
func MainSigner(ctx vaultkit.Context, auth Authenticator) vaultkit.Condition {
	signers := auth.GetConditions(ctx)
	if len(signers) == 0 {
		return nil
	}
	return signers[0]
}

// HasAllAddresses returns true if all elements in required are also in
// the context.
func HasAllAddresses(ctx vaultkit.Context, auth Authenticator, required []vaultkit.Address) bool {
	for _, r := range required {
		if !auth.HasAddress(ctx, r) {
			return false
		}
	}
	return true
}

// HasAllConditions returns true if all elements in required are also in
// the context.
func HasAllConditions(ctx vaultkit.Context, auth Authenticator, required []vaultkit.Condition) bool {
	return HasNConditions(ctx, auth, required, len(required))
}

// HasNConditions returns true if at least n elements in requested are
// also in the context.
// Useful for threshold conditions (1 of 3, 3 of 5, etc...).
func HasNConditions(ctx vaultkit.Context, auth Authenticator, requested []vaultkit.Condition, n int) bool {
	if n <= 0 {
		return true
	}
	perms := auth.GetConditions(ctx)
	for _, req := range requested {
		if hasPerm(perms, req) {
			n--
			if n == 0 {
				return true
			}
		}
	}
	return false
}

func hasPerm(perms []vaultkit.Condition, perm vaultkit.Condition) bool {
	for _, p := range perms {
		if p.Equals(perm) {
			return true
		}
	}
	return false
}
