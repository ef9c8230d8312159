package smartwallet

import (
	"github.com/arx-one/vaultkit"
)

// Executor dispatches a single authorized instruction to its target
// program. The host environment provides the implementation, typically
// backed by the application's message router.
//
// Execute is called only after all quorum, staleness and timelock
// checks passed. The context carries the conditions granted for this
// dispatch (the wallet or subaccount authority plus any partial
// signers), retrievable through the Authenticate authenticator. A non
// nil error aborts the whole batch, the caller must not persist any
// partial outcome.
type Executor interface {
	Execute(ctx vaultkit.Context, db vaultkit.KVStore, ins TXInstruction) error
}

// ExecutorFunc turns a function into an Executor.
type ExecutorFunc func(ctx vaultkit.Context, db vaultkit.KVStore, ins TXInstruction) error

var _ Executor = ExecutorFunc(nil)

func (f ExecutorFunc) Execute(ctx vaultkit.Context, db vaultkit.KVStore, ins TXInstruction) error {
	return f(ctx, db, ins)
}
