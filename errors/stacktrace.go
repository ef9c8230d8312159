package errors

import (
	"github.com/pkg/errors"
)

// stackTracer is implemented by errors that carry a stack trace. This is
// the interface that github.com/pkg/errors uses.
type stackTracer interface {
	error
	StackTrace() errors.StackTrace
}

// stackTrace returns the stack trace attached to any layer of given
// error, or nil if no stack trace information is available.
func stackTrace(err error) errors.StackTrace {
	for {
		if st, ok := err.(stackTracer); ok {
			return st.StackTrace()
		}

		if c, ok := err.(causer); ok {
			err = c.Cause()
		} else {
			return nil
		}
	}
}
