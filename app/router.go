package app

import (
	"github.com/arx-one/vaultkit"
	"github.com/arx-one/vaultkit/errors"
)

// Router is a structure that handles routing of messages to the
// registered handlers. It implements the vaultkit.Registry interface.
type Router struct {
	handlers map[string]vaultkit.Handler
}

var _ vaultkit.Registry = (*Router)(nil)
var _ vaultkit.Handler = (*Router)(nil)

// NewRouter initializes a router with no routes.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]vaultkit.Handler),
	}
}

// Handle implements the Registry interface. Registering a handler for
// an invalid path or for a path that is already registered is a
// programmer error and panics.
func (r *Router) Handle(path string, h vaultkit.Handler) {
	vaultkit.MustValidatePath(path)
	if _, ok := r.handlers[path]; ok {
		panic("re-registering a handler for the path " + path)
	}
	r.handlers[path] = h
}

// Handler returns the registered Handler for this path. If no path is
// found, it returns a handler that errors on any call.
func (r *Router) Handler(path string) vaultkit.Handler {
	h, ok := r.handlers[path]
	if !ok {
		return notFoundHandler(path)
	}
	return h
}

// Check dispatches to the proper handler based on the message path.
func (r *Router) Check(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.CheckResult, error) {
	return r.Handler(vaultkit.GetPath(tx)).Check(ctx, db, tx)
}

// Deliver dispatches to the proper handler based on the message path.
func (r *Router) Deliver(ctx vaultkit.Context, db vaultkit.KVStore, tx vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	return r.Handler(vaultkit.GetPath(tx)).Deliver(ctx, db, tx)
}

// notFoundHandler always returns ErrNotFound carrying the path that
// could not be routed.
type notFoundHandler string

var _ vaultkit.Handler = notFoundHandler("")

func (h notFoundHandler) Check(vaultkit.Context, vaultkit.KVStore, vaultkit.Tx) (*vaultkit.CheckResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for message path %q", string(h))
}

func (h notFoundHandler) Deliver(vaultkit.Context, vaultkit.KVStore, vaultkit.Tx) (*vaultkit.DeliverResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for message path %q", string(h))
}
