package users

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("users: transport failure")
	// ErrDecode matches every *DecodeError.
	ErrDecode = errors.New("users: malformed response")
	// ErrClosed is reported by refreshes issued to, or finished after, a closed controller.
	ErrClosed = errors.New("users: controller closed")
	// ErrValidation indicates a user record breaking the data model rules.
	ErrValidation = errors.New("users: validation failed")
	// ErrDuplicate indicates a storage uniqueness violation.
	ErrDuplicate = errors.New("users: duplicate entry")
)

// TransportError reports that the remote directory could not be reached or
// answered with a non-success status.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("users: %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("users: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// DecodeError reports a response body that is not a well-formed array of
// user objects. Index is the offending element, or -1 for the whole body.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("users: decode element %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("users: decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
