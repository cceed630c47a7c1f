package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/touchy/internal/ir"
	"github.com/roach88/touchy/internal/midi"
	"github.com/roach88/touchy/internal/scale"
)

// ErrMissingDomain is returned when an input sample carries no domain for
// the axis a continuous rule reads.
var ErrMissingDomain = errors.New("missing input domain")

// ErrStopped is returned by Do once the engine no longer accepts events.
var ErrStopped = errors.New("engine stopped")

// ResolveError reports why one rule was skipped during a resolution pass.
//
// Resolve errors never abort the pass: the rule is skipped for this event,
// the error is logged and counted, and the remaining rules still resolve.
type ResolveError struct {
	// Code identifies the error category.
	Code ResolveErrorCode

	// Key and Position identify the rule.
	Key      ir.Key
	Position int

	// Err is the underlying cause.
	Err error
}

// ResolveErrorCode categorizes resolve errors.
type ResolveErrorCode string

const (
	// ErrCodeInvalidDomain indicates a zero-span scale domain or range.
	ErrCodeInvalidDomain ResolveErrorCode = "INVALID_DOMAIN"

	// ErrCodeMissingDomain indicates the sample had no domain for the axis.
	ErrCodeMissingDomain ResolveErrorCode = "MISSING_DOMAIN"

	// ErrCodeOutOfRange indicates the value does not fit the MIDI message.
	ErrCodeOutOfRange ResolveErrorCode = "OUT_OF_RANGE"

	// ErrCodeSend indicates the output port rejected the message.
	ErrCodeSend ResolveErrorCode = "SEND"

	// ErrCodeStore indicates the stepped value could not be written back.
	ErrCodeStore ResolveErrorCode = "STORE"

	// ErrCodeMessage indicates the rule does not map to a MIDI message.
	ErrCodeMessage ResolveErrorCode = "MESSAGE"
)

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: %s[%d]: %v", e.Code, e.Key, e.Position, e.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// newResolveError wraps err, picking the code from its sentinel when it
// has one and falling back to code otherwise.
func newResolveError(key ir.Key, position int, code ResolveErrorCode, err error) *ResolveError {
	switch {
	case errors.Is(err, scale.ErrInvalidDomain):
		code = ErrCodeInvalidDomain
	case errors.Is(err, ErrMissingDomain):
		code = ErrCodeMissingDomain
	case errors.Is(err, midi.ErrOutOfRange):
		code = ErrCodeOutOfRange
	}
	return &ResolveError{Code: code, Key: key, Position: position, Err: err}
}

// IsInvalidDomain returns true if the error is a degenerate scale error.
// Uses errors.As to handle wrapped errors.
func IsInvalidDomain(err error) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidDomain
	}
	return errors.Is(err, scale.ErrInvalidDomain)
}

// IsOutOfRange returns true if the error is a MIDI range error.
func IsOutOfRange(err error) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == ErrCodeOutOfRange
	}
	return errors.Is(err, midi.ErrOutOfRange)
}
