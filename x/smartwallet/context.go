package smartwallet

import (
	"context"

	"github.com/arx-one/vaultkit"
	"github.com/arx-one/vaultkit/x"
)

type contextKey int

const contextKeyConditions contextKey = iota

// withCondition grants given condition for the rest of the dispatch.
// Used to let dispatched instructions act with the authority of the
// wallet, a subaccount or a partial signer.
func withCondition(ctx vaultkit.Context, c vaultkit.Condition) vaultkit.Context {
	val, _ := ctx.Value(contextKeyConditions).([]vaultkit.Condition)
	// Copy instead of append. Contexts branching off the same parent
	// must not share the backing array.
	out := make([]vaultkit.Condition, len(val)+1)
	copy(out, val)
	out[len(val)] = c
	return context.WithValue(ctx, contextKeyConditions, out)
}

// Authenticate gets/sets the conditions this package granted during
// instruction dispatch. Chain it with the host signature authenticator
// when building the handler set of an application.
type Authenticate struct {
}

var _ x.Authenticator = Authenticate{}

// GetConditions returns the conditions granted during dispatch.
func (a Authenticate) GetConditions(ctx vaultkit.Context) []vaultkit.Condition {
	// (val, ok) form to return nil instead of panic if unset
	val, _ := ctx.Value(contextKeyConditions).([]vaultkit.Condition)
	return val
}

// HasAddress returns true iff any granted condition matches the
// address.
func (a Authenticate) HasAddress(ctx vaultkit.Context, addr vaultkit.Address) bool {
	for _, c := range a.GetConditions(ctx) {
		if addr.Equals(c.Address()) {
			return true
		}
	}
	return false
}
