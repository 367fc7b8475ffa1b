package domain

import (
	"errors"
	"strings"
)

// Error kinds, checked with errors.Is.
var (
	// ErrAuthenticationRequired is returned when no principal is available.
	ErrAuthenticationRequired = errors.New("workclock: authentication required")

	// ErrAuthorizationDenied is returned when a principal updates a record it
	// does not own and is not an administrator.
	ErrAuthorizationDenied = errors.New("workclock: authorization denied")

	// ErrNotFound is returned when a record id does not resolve.
	ErrNotFound = errors.New("workclock: not found")

	// ErrValidationFailed is returned for records that fail field validation.
	ErrValidationFailed = errors.New("workclock: validation failed")

	// ErrIllegalTransition is returned when an action is not legal in the
	// current status.
	ErrIllegalTransition = errors.New("workclock: illegal transition")

	// ErrTransientStore marks store failures worth retrying.
	ErrTransientStore = errors.New("workclock: transient store error")

	// ErrPermanentStore is returned for store failures that will not succeed
	// on retry, including transient failures that exhausted their retries.
	ErrPermanentStore = errors.New("workclock: permanent store error")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("workclock: invalid configuration")
)

// Error is a classified failure. Kind is one of the sentinels above; Op names
// the operation that failed.
type Error struct {
	Kind  error
	Op    string
	Msg   string
	Cause error
}

// E builds an Error without a cause.
func E(kind error, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap classifies cause under kind.
func Wrap(kind error, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Transient marks a store error as retryable. nil stays nil.
func Transient(err error) error {
	if err == nil || IsTransient(err) {
		return err
	}
	return &Error{Kind: ErrTransientStore, Cause: err}
}

// IsTransient reports whether err is worth retrying. Permanent
// classification wins when both are present.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientStore) && !errors.Is(err, ErrPermanentStore)
}

// KindOf returns the sentinel kind carried by err, or nil.
func KindOf(err error) error {
	for _, k := range []error{
		ErrAuthenticationRequired,
		ErrAuthorizationDenied,
		ErrNotFound,
		ErrValidationFailed,
		ErrIllegalTransition,
		ErrPermanentStore,
		ErrTransientStore,
		ErrInvalidConfig,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
