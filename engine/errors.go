package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrConnection reports that the engine could not be opened or the
	// connection was lost. It is fatal for every user of the connection.
	ErrConnection = errors.New("connection error")
	// ErrSchema reports a malformed or conflicting table definition,
	// or an operation against a table that does not exist.
	ErrSchema = errors.New("schema error")
	// ErrConflict reports a transient conflict, e.g. a deadlock or a busy
	// table. The operation may be retried.
	ErrConflict = errors.New("operation conflict")
	// ErrNotFound reports that the requested key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState reports a call on a closed connection, session or
	// cursor, or a cursor accessed out of position.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable reports that the service behind a binding is down.
	ErrUnavailable = errors.New("engine unavailable")
	// ErrEngine is any other failure reported by the engine.
	ErrEngine = errors.New("engine error")
)

var kinds = []error{
	ErrConnection,
	ErrSchema,
	ErrConflict,
	ErrNotFound,
	ErrInvalidState,
	ErrUnavailable,
	ErrEngine,
}

// Error is an error of a known kind carrying the underlying cause.
type Error struct {
	Kind  error
	Cause error
	msg   string
}

func (self *Error) Error() string {
	switch {
	case self.Cause != nil && len(self.msg) > 0:
		return fmt.Sprintf("%s: %s: %s", self.Kind, self.msg, self.Cause)
	case self.Cause != nil:
		return fmt.Sprintf("%s: %s", self.Kind, self.Cause)
	case len(self.msg) > 0:
		return fmt.Sprintf("%s: %s", self.Kind, self.msg)
	}
	return self.Kind.Error()
}

func (self *Error) Is(target error) bool {
	return target == self.Kind
}

func (self *Error) Unwrap() error {
	return self.Cause
}

// Wrap classifies cause as kind. If cause is already classified it is
// returned with the message added and its kind kept.
func Wrap(kind error, cause error, format string, args ...interface{}) error {
	if cause != nil && classified(cause) {
		return errors.WithMessagef(cause, format, args...)
	}
	return errors.WithStack(&Error{
		Kind:  kind,
		Cause: cause,
		msg:   fmt.Sprintf(format, args...),
	})
}

// Errorf returns a new error of the given kind.
func Errorf(kind error, format string, args ...interface{}) error {
	return errors.WithStack(&Error{
		Kind: kind,
		msg:  fmt.Sprintf(format, args...),
	})
}

func classified(err error) bool {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// KindOf returns the kind sentinel of err, ErrEngine for an unclassified
// error and nil for nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrEngine
}

// IsFatal reports whether err must stop the caller using the connection.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case ErrConnection, ErrUnavailable, ErrInvalidState:
		return true
	}
	return false
}

// IsRetryable reports whether the failed operation may succeed if retried.
func IsRetryable(err error) bool {
	return KindOf(err) == ErrConflict
}

// KindName returns a short stable name for the kind of err.
func KindName(err error) string {
	switch KindOf(err) {
	case nil:
		return "ok"
	case ErrConnection:
		return "connection"
	case ErrSchema:
		return "schema"
	case ErrConflict:
		return "conflict"
	case ErrNotFound:
		return "not_found"
	case ErrInvalidState:
		return "invalid_state"
	case ErrUnavailable:
		return "unavailable"
	}
	return "engine"
}
