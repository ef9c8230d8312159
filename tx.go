package vaultkit

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/arx-one/vaultkit/errors"
)

// Marshaller is anything that can be represented in binary.
//
// Marshal may validate the data before serializing it and unless you
// previously validated the struct, errors should be expected.
type Marshaller interface {
	Marshal() ([]byte, error)
}

// Persistent supports Marshal and Unmarshal.
//
// This is separated from Marshaller, as this almost always requires a
// pointer, and functions that only need to marshal bytes can use the
// Marshaller interface to access non-pointers.
type Persistent interface {
	Marshaller
	Unmarshal([]byte) error
}

// Msg is a message for the state machine to take an action (make a state
// transition). It is just the request, and must be validated by the
// Handlers. All authentication information is in the wrapping Tx.
type Msg interface {
	Persistent
	Validater

	// Path returns the message path.
	// This is used by the Router to locate the proper Handler. Msg
	// should be created alongside the Handler that corresponds to it.
	//
	// Must be alphanumeric [0-9A-Za-z_\-/]+
	Path() string
}

// Validater is any struct that can be validated. Not the same as a
// Validator, which votes on the blocks.
type Validater interface {
	Validate() error
}

// Tx represents the data sent from the user to the chain. It includes the
// actual message, along with information needed to authenticate the
// sender (cryptographic signatures), and anything else needed to pass
// through middleware.
type Tx interface {
	Persistent

	// GetMsg returns the action we wish to communicate.
	GetMsg() (Msg, error)
}

// TxDecoder can parse bytes into a Tx.
type TxDecoder func(txBytes []byte) (Tx, error)

// GetPath returns the path of the message, or (missing) if no message.
func GetPath(tx Tx) string {
	msg, err := tx.GetMsg()
	if err == nil && msg != nil {
		return msg.Path()
	}
	return "(missing)"
}

// LoadMsg extracts the message from the transaction, ensures its type and
// validity and assigns to the destination. Destination must be a pointer
// to the expected message type. Message is validated before being
// assigned.
func LoadMsg(tx Tx, destination Msg) error {
	msg, err := tx.GetMsg()
	if err != nil {
		return errors.Wrap(err, "cannot get message")
	}
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}

	dstVal := reflect.ValueOf(destination)
	if dstVal.Kind() != reflect.Ptr || dstVal.IsNil() {
		return errors.Wrap(errors.ErrType, "destination must be a non nil pointer")
	}
	msgVal := reflect.ValueOf(msg)
	if got, want := msgVal.Type(), dstVal.Type(); got != want {
		return errors.Wrapf(errors.ErrType, "want %s message, got %s", want, got)
	}
	dstVal.Elem().Set(msgVal.Elem())
	return nil
}

// isPath ensures the routing path is in the proper format.
var isPath = regexp.MustCompile(`^[a-z]+(/[a-zA-Z0-9_]+)*$`).MatchString

// MustValidatePath panics if given path is not a valid routing path. This
// is meant to be used during the setup phase only.
func MustValidatePath(path string) {
	if !isPath(path) {
		panic(fmt.Sprintf("invalid routing path: %q", path))
	}
}
