package smartwallet

import (
	"github.com/arx-one/vaultkit/errors"
)

// smartwallet reserves error codes 1200-1219.
var (
	// ErrInvalidOwner is returned when an address is not found in the
	// owner set although one was required.
	ErrInvalidOwner = errors.Register(1200, "invalid owner")

	// ErrDuplicateOwner is returned when an owner set mutation would
	// introduce a repeated address.
	ErrDuplicateOwner = errors.Register(1201, "duplicate owner")

	// ErrInvalidThreshold is returned when a threshold is outside of
	// the [1, number of owners] range.
	ErrInvalidThreshold = errors.Register(1202, "invalid threshold")

	// ErrInvalidETA is returned when a proposed ETA violates the
	// wallet's minimum delay.
	ErrInvalidETA = errors.Register(1203, "invalid eta")

	// ErrStaleOwnerSet is returned when an operation's recorded owner
	// set sequence number no longer matches the live one. Approvals
	// collected under a superseded owner set are void.
	ErrStaleOwnerSet = errors.Register(1204, "stale owner set")

	// ErrThresholdNotMet is returned when execution is attempted with
	// an insufficient approval count.
	ErrThresholdNotMet = errors.Register(1205, "approval threshold not met")

	// ErrTransactionExpired is returned when transaction execution is
	// attempted after the grace period elapsed.
	ErrTransactionExpired = errors.Register(1206, "transaction expired")

	// ErrBundleExpired is returned when bundle execution is attempted
	// after the grace period elapsed.
	ErrBundleExpired = errors.Register(1207, "bundle expired")

	// ErrAlreadyExecuted is returned when execution is attempted on a
	// terminal record.
	ErrAlreadyExecuted = errors.Register(1208, "already executed")

	// ErrBufferBundleNotFound is returned for a non-contiguous bundle
	// index on write, or an out of range index on execute.
	ErrBufferBundleNotFound = errors.Register(1209, "buffer bundle not found")

	// ErrBufferFinalized is returned when a buffer mutation is
	// attempted after finalization.
	ErrBufferFinalized = errors.Register(1210, "buffer finalized")

	// ErrETANotReached is returned when execution is attempted before
	// the timelock delay elapsed.
	ErrETANotReached = errors.Register(1211, "eta not reached")
)
