package registry

import "errors"

// Code is a stable numeric error code surfaced to clients alongside the
// fixed English message.
type Code int

const (
	CodeUnauthorized Code = iota + 1
	CodeInvalidLevel
	CodeCertificateExists
	CodeCertificateRevoked
)

// Error is a registry lifecycle error with a stable code.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// The registry error taxonomy. Messages are fixed and part of the API.
var (
	ErrUnauthorized = &Error{
		Code:    CodeUnauthorized,
		Message: "Unauthorized: Only issuer authority can perform this action",
	}
	ErrInvalidLevel = &Error{
		Code:    CodeInvalidLevel,
		Message: "Invalid level: Must be 1 (Beginner), 2 (Intermediate), or 3 (Advanced)",
	}
	ErrCertificateExists = &Error{
		Code:    CodeCertificateExists,
		Message: "Certificate already exists for this course",
	}
	// ErrCertificateRevoked is reserved: re-revocation is idempotent and a
	// revoked address stays occupied, so CertificateExists fires first on
	// re-issue. The code is kept so the numbering stays stable.
	ErrCertificateRevoked = &Error{
		Code:    CodeCertificateRevoked,
		Message: "Certificate has been revoked",
	}
)

// AsError unwraps err into a registry *Error if one is in its chain.
func AsError(err error) (*Error, bool) {
	var regErr *Error
	if errors.As(err, &regErr) {
		return regErr, true
	}
	return nil, false
}
