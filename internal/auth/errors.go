package auth

import (
	"errors"

	"github.com/geocoder89/authgate/internal/validation"
)

// Kind names a terminal workflow outcome.
type Kind string

const (
	KindMissingFields          Kind = "missing_fields"
	KindInvalidEmail           Kind = "invalid_email"
	KindInvalidName            Kind = "invalid_name"
	KindWeakPassword           Kind = "weak_password"
	KindInvalidSecret          Kind = "invalid_secret"
	KindEmailTaken             Kind = "email_taken"
	KindInvalidCredentials     Kind = "invalid_credentials"
	KindAccountDeactivated     Kind = "account_deactivated"
	KindInsufficientPermission Kind = "insufficient_permission"
	KindStoreUnavailable       Kind = "store_unavailable"
	KindInternal               Kind = "internal_error"
)

// Class is the transport-neutral status a Kind maps to.
type Class int

const (
	ClassBadRequest Class = iota + 1
	ClassUnauthorized
	ClassForbidden
	ClassConflict
	ClassInternal
)

func (k Kind) Class() Class {
	switch k {
	case KindMissingFields, KindInvalidEmail, KindInvalidName, KindWeakPassword:
		return ClassBadRequest
	case KindInvalidCredentials:
		return ClassUnauthorized
	case KindInvalidSecret, KindAccountDeactivated, KindInsufficientPermission:
		return ClassForbidden
	case KindEmailTaken:
		return ClassConflict
	default:
		return ClassInternal
	}
}

// Retryable is true only for infrastructure failures.
func (k Kind) Retryable() bool {
	return k == KindStoreUnavailable || k == KindInternal
}

// Error is returned by every workflow. Message is safe to show callers; Err
// holds the underlying cause and is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string          // KindMissingFields
	Failed  []validation.Rule // KindWeakPassword
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so errors.Is(err,
// ErrInvalidCredentials) works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrMissingFields          = &Error{Kind: KindMissingFields}
	ErrInvalidEmail           = &Error{Kind: KindInvalidEmail}
	ErrInvalidName            = &Error{Kind: KindInvalidName}
	ErrWeakPassword           = &Error{Kind: KindWeakPassword}
	ErrInvalidSecret          = &Error{Kind: KindInvalidSecret}
	ErrEmailTaken             = &Error{Kind: KindEmailTaken}
	ErrInvalidCredentials     = &Error{Kind: KindInvalidCredentials}
	ErrAccountDeactivated     = &Error{Kind: KindAccountDeactivated}
	ErrInsufficientPermission = &Error{Kind: KindInsufficientPermission}
	ErrStoreUnavailable       = &Error{Kind: KindStoreUnavailable}
	ErrInternal               = &Error{Kind: KindInternal}
)

// KindOf classifies any error; unknown errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

const (
	msgInvalidEmail       = "Invalid email format"
	msgInvalidName        = "Invalid name. Use only letters and spaces (2-50 characters)"
	msgInvalidSecret      = "Invalid secret key"
	msgEmailTaken         = "Email already registered"
	msgInvalidCredentials = "Invalid credentials"
	msgDeactivated        = "Account is deactivated"
	msgServerError        = "Server error"

	msgUserRegisterRequired  = "Email, password and name required"
	msgAdminRegisterRequired = "Email, password, name and secretKey required"
	msgLoginRequired         = "Email and password required"

	msgGateRequired           = "Admin email, password, and secret key required for this operation"
	msgGateInvalidCredentials = "Invalid admin credentials"
	msgGateDeactivated        = "Admin account is deactivated"
	msgGateNoDelete           = "Admin does not have delete permissions"
	msgGateServerError        = "Server error during admin verification"
	msgPurgeServerError       = "Server error during deletion"
)

func missingFieldsError(msg string, fields []string) *Error {
	return &Error{Kind: KindMissingFields, Message: msg, Fields: fields}
}

func weakPasswordError(check validation.PasswordCheck) *Error {
	return &Error{Kind: KindWeakPassword, Message: check.Message(), Failed: check.Failed}
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func storeError(msg string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: msg, Err: err}
}

func internalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}
