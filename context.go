package vaultkit

import (
	"context"
	"time"

	"github.com/arx-one/vaultkit/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// Context is just an alias for the standard implementation. We use functions
// to extend and access this data.
type Context = context.Context

type contextKey int // local to the vaultkit module

const (
	contextKeyHeight contextKey = iota
	contextKeyTime
	contextKeyLogger
)

// DefaultLogger is used for all context that have not set anything
// themselves.
var DefaultLogger = log.NewNopLogger()

// WithHeight sets the block height for the Context. Panics if height was
// already set to avoid lower-level modules overwriting the value.
func WithHeight(ctx Context, height int64) Context {
	if _, ok := GetHeight(ctx); ok {
		panic("block height already set")
	}
	return context.WithValue(ctx, contextKeyHeight, height)
}

// GetHeight returns the current block height, if set.
func GetHeight(ctx Context) (int64, bool) {
	val, ok := ctx.Value(contextKeyHeight).(int64)
	return val, ok
}

// WithBlockTime sets the block time for the Context. Block time is always
// represented in UTC.
func WithBlockTime(ctx Context, t time.Time) Context {
	return context.WithValue(ctx, contextKeyTime, t.UTC())
}

// BlockTime returns the block time as declared by the host for the
// current operation. All timelock and expiry decisions must be made
// against this value, never against the local wall clock.
func BlockTime(ctx Context) (time.Time, error) {
	val, ok := ctx.Value(contextKeyTime).(time.Time)
	if !ok {
		return time.Time{}, errors.Wrap(errors.ErrHuman, "block time not present in the context")
	}
	if val.IsZero() {
		return val, errors.Wrap(errors.ErrHuman, "zero block time in the context")
	}
	return val, nil
}

// WithLogger sets the logger for this Context.
func WithLogger(ctx Context, logger log.Logger) Context {
	// Logger can be overridden below in the stack.
	return context.WithValue(ctx, contextKeyLogger, logger)
}

// GetLogger returns the currently set logger, or DefaultLogger if none
// was set.
func GetLogger(ctx Context) log.Logger {
	val, ok := ctx.Value(contextKeyLogger).(log.Logger)
	if !ok {
		return DefaultLogger
	}
	return val
}

// IsExpired returns true if given time is in the past as compared to the
// "now" as declared for the current operation. Expiration is inclusive,
// meaning that if current time is equal to the expiration time then this
// function returns true.
func IsExpired(ctx Context, t UnixTime) bool {
	blockNow, err := BlockTime(ctx)
	if err != nil {
		// This is a programmer error.
		panic("current time is not present in the context")
	}
	return t <= AsUnixTime(blockNow)
}
