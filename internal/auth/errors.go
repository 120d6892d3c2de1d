package auth

// ErrorCode classifies a ValidationError.
type ErrorCode string

const (
	CodeMissingCredentials ErrorCode = "missing_credentials"
	CodePasswordMismatch   ErrorCode = "password_mismatch"
	CodePasswordTooShort   ErrorCode = "password_too_short"
)

// ValidationError is a user-correctable problem with sign-in or registration
// input. Message is suitable for showing to the user as-is.
type ValidationError struct {
	Code    ErrorCode
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return "auth: " + e.Message
}

func newValidationError(code ErrorCode, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}
