/*
Package smartwallet implements a multi-owner wallet that gates
instruction execution behind a quorum of owner approvals and an optional
timelock window.

A wallet declares an ordered set of owners and a threshold. Any owner can
propose a transaction, which is an ordered batch of instructions. Owners
approve by setting their positional flag in the approval bitmap. Once the
approval count reaches the threshold and the timelock window is open, any
owner can execute the transaction exactly once. Every owner set mutation
bumps the wallet's owner set sequence number, which voids all approvals
collected before the change.

Instruction buffers decouple batch assembly from execution: an authority
appends bundles of instructions, finalizes the buffer, and from then on
only the configured executor can fire individual bundles, each exactly
once, under the same staleness and timelock rules.

Subaccounts are derived identities tied to a wallet. A Derived subaccount
can only act through the full approval process: an approved transaction
may be executed with the derived identity's authority instead of the
wallet's, under the exact same quorum and timelock rules. An OwnerInvoker
subaccount can be used directly by any current owner, bypassing quorum
and timelock entirely - configure it only for identities where that
weaker guarantee is acceptable.

Dispatching an instruction to its target program is delegated to an
Executor collaborator. This package only decides whether a dispatch is
authorized, by whom, and when.
*/
package smartwallet
