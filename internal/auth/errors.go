package auth

import (
	"errors"
	"fmt"
)

// Reason classifies why an authentication attempt failed.
type Reason int

const (
	ReasonCredentialsRequired Reason = iota + 1
	ReasonUserNotFound
	ReasonUserNotActive
	ReasonRoleNotAssigned
	ReasonInvalidCredentials
	ReasonInternal
)

// String returns a short identifier, used as a metrics label and in logs.
func (r Reason) String() string {
	switch r {
	case ReasonCredentialsRequired:
		return "credentials_required"
	case ReasonUserNotFound:
		return "user_not_found"
	case ReasonUserNotActive:
		return "user_not_active"
	case ReasonRoleNotAssigned:
		return "role_not_assigned"
	case ReasonInvalidCredentials:
		return "invalid_credentials"
	case ReasonInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Public messages. Unknown users, missing roles and wrong passwords share
// one message so callers cannot enumerate accounts.
const (
	MessageCredentialsRequired = "username and password are required"
	MessageInvalidCredentials  = "invalid credentials"
	MessageUserNotActive       = "user not active"
	MessageFailed              = "authentication failed"
)

// Message returns the text safe to show to the caller.
func (r Reason) Message() string {
	switch r {
	case ReasonCredentialsRequired:
		return MessageCredentialsRequired
	case ReasonUserNotActive:
		return MessageUserNotActive
	case ReasonUserNotFound, ReasonRoleNotAssigned, ReasonInvalidCredentials:
		return MessageInvalidCredentials
	default:
		return MessageFailed
	}
}

// Error is returned by Authenticate for every failure except context
// cancellation. Err carries internal detail for logs only.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authenticate: %s: %v", e.Reason, e.Err)
	}
	return "authenticate: " + e.Reason.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the public message for the failure.
func (e *Error) Message() string {
	return e.Reason.Message()
}

// ReasonOf extracts the failure reason from err. Errors that did not come
// from the authenticator report ReasonInternal.
func ReasonOf(err error) Reason {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ReasonInternal
}

// PublicMessage returns the message to show for any Authenticate error.
func PublicMessage(err error) string {
	return ReasonOf(err).Message()
}

func fail(reason Reason, err error) *Error {
	return &Error{Reason: reason, Err: err}
}
