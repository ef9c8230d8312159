package vaultkit

import (
	"encoding/json"
	"time"

	"github.com/arx-one/vaultkit/errors"
)

// UnixTime represents a point in time as POSIX time.
// This type comes in handy when dealing with serialized state. Instead of
// using Go's time.Time that includes nanoseconds use primitive int64 type
// and seconds precision.
type UnixTime int64

// Time returns a time.Time structure that represents the same moment in time.
func (t UnixTime) Time() time.Time {
	return time.Unix(int64(t), 0)
}

// IsZero returns true if this time represents a zero value.
func (t UnixTime) IsZero() bool {
	return t == 0
}

// Add modifies this UNIX time by given duration. This is compatible with
// time.Time.Add method.
func (t UnixTime) Add(d time.Duration) UnixTime {
	return t + UnixTime(d/time.Second)
}

// AsUnixTime converts given Time structure into its UNIX time representation.
func AsUnixTime(t time.Time) UnixTime {
	return UnixTime(t.Unix())
}

// UnmarshalJSON supports unmarshaling both as time.Time and from a number.
// Usually a number is used as a representation of this time in JSON but it
// is convenient to use a string format in configurations.
func (t *UnixTime) UnmarshalJSON(raw []byte) error {
	var unix int64
	if err := json.Unmarshal(raw, &unix); err == nil {
		if unix < 0 {
			return errors.Wrap(errors.ErrInput, "time before epoch")
		}
		*t = UnixTime(unix)
		return nil
	}

	var stdtime time.Time
	if err := json.Unmarshal(raw, &stdtime); err == nil {
		unix := UnixTime(stdtime.Unix())
		if unix < 0 {
			return errors.Wrap(errors.ErrInput, "time before epoch")
		}
		*t = unix
		return nil
	}

	return errors.Wrap(errors.ErrInput, "invalid time format")
}

// Validate returns an error if this time value is invalid. Reserved
// sentinel values (for example the "no timelock" marker) are negative and
// must not pass this check.
func (t UnixTime) Validate() error {
	if t < 0 {
		return errors.Wrap(errors.ErrState, "negative value")
	}
	return nil
}

// String returns the usual string representation of this time as the
// time.Time structure would.
func (t UnixTime) String() string {
	return t.Time().String()
}

// UnixDuration represents a time duration with granularity of a second.
// This type should be used mostly for state serialization, because of the
// lower precision it is easier to handle across many languages.
type UnixDuration int32

// AsUnixDuration converts given Duration into UnixDuration. Because of the
// precision difference this conversion might lose nanosecond information.
func AsUnixDuration(d time.Duration) UnixDuration {
	return UnixDuration(d / time.Second)
}

// Duration returns time.Duration representation of this value.
func (d UnixDuration) Duration() time.Duration {
	return time.Duration(d) * time.Second
}

func (d *UnixDuration) UnmarshalJSON(raw []byte) error {
	var unix int32
	if err := json.Unmarshal(raw, &unix); err == nil {
		*d = UnixDuration(unix)
		return nil
	}

	var stdduration time.Duration
	if err := json.Unmarshal(raw, &stdduration); err == nil {
		*d = AsUnixDuration(stdduration)
		return nil
	}

	return errors.Wrap(errors.ErrInput, "invalid duration format")
}

func (d UnixDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(int32(d))
}

// Validate returns an error if this duration value is invalid.
func (d UnixDuration) Validate() error {
	if d < 0 {
		return errors.Wrap(errors.ErrState, "negative value")
	}
	return nil
}

func (d UnixDuration) String() string {
	return d.Duration().String()
}

// InThePast returns true if given time is in the past compared to the
// current time as declared in the context. Context "now" should come from
// the block header.
// Keep in mind that this function is not inclusive of current time. If
// given time is equal to "now" then this function returns false.
func InThePast(ctx Context, t time.Time) bool {
	blockNow, err := BlockTime(ctx)
	if err != nil {
		// This is a programmer error.
		panic("current time is not present in the context")
	}
	return t.Before(blockNow)
}

// InTheFuture returns true if given time is in the future compared to the
// current time as declared in the context. Context "now" should come from
// the block header.
// Keep in mind that this function is not inclusive of current time. If
// given time is equal to "now" then this function returns false.
func InTheFuture(ctx Context, t time.Time) bool {
	blockNow, err := BlockTime(ctx)
	if err != nil {
		// This is a programmer error.
		panic("current time is not present in the context")
	}
	return t.After(blockNow)
}
