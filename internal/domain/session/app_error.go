package session

import "time"

// Error codes raised on the bootstrap path. The code set is open: collaborators
// may introduce their own.
const (
	CodeSessionMissing    = "SESSION_MISSING"
	CodeSessionExpired    = "SESSION_EXPIRED"
	CodeAuthUnavailable   = "AUTH_UNAVAILABLE"
	CodeProfileNotFound   = "PROFILE_NOT_FOUND"
	CodeProfileFailed     = "PROFILE_FETCH_FAILED"
	CodeProfileInactive   = "PROFILE_INACTIVE"
	CodePermissionsFailed = "PERMISSIONS_FETCH_FAILED"
	CodeSectionFailed     = "SECTION_LOAD_FAILED"
	CodeTimeout           = "TIMEOUT"
)

// AppError is an error surfaced through the session machine. CanRetry is set by
// whoever raises the error; it is never inferred.
type AppError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	CanRetry  bool      `json:"can_retry"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface
func (e AppError) Error() string {
	return e.Code + ": " + e.Message
}

// NewAppError creates an AppError stamped with the current time
func NewAppError(code, message string, canRetry bool) AppError {
	return AppError{
		Code:      code,
		Message:   message,
		CanRetry:  canRetry,
		Timestamp: time.Now(),
	}
}

// NewRetryableError creates an AppError the user may retry
func NewRetryableError(code, message string) AppError {
	return NewAppError(code, message, true)
}

// NewFatalError creates an AppError that requires a new login
func NewFatalError(code, message string) AppError {
	return NewAppError(code, message, false)
}
