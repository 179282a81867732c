package resolver

import "fmt"

// ErrorCode represents a specific resolution failure.
type ErrorCode string

const (
	// CodeInvalidExpression indicates text matching none of the grammars.
	CodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"
	// CodeInvalidISOWithoutOffset indicates an ISO instant lacking a UTC offset.
	CodeInvalidISOWithoutOffset ErrorCode = "INVALID_ISO_WITHOUT_OFFSET"
	// CodeInvalidWallTime indicates an impossible calendar date or time of day.
	CodeInvalidWallTime ErrorCode = "INVALID_WALL_TIME"
	// CodeRoundUnitRequired indicates auto-rounding on an expression that
	// supplies no unit to round against.
	CodeRoundUnitRequired ErrorCode = "ENDPOINT_ROUND_UNIT_REQUIRED"
	// CodeStartNotBeforeEnd indicates inverted or collapsed endpoints.
	CodeStartNotBeforeEnd ErrorCode = "START_NOT_BEFORE_END"
	// CodeDSTGapError indicates a gapped wall time under GapError policy.
	CodeDSTGapError ErrorCode = "DST_GAP_ERROR"
	// CodeInvalidTimezone indicates an unresolvable timezone selector.
	CodeInvalidTimezone ErrorCode = "INVALID_TIMEZONE"
)

// ResolveError is the fatal, coded resolution error. Call sites invoking
// the resolver directly must catch it and convert it to a user-facing
// string.
type ResolveError struct {
	Code     ErrorCode
	Endpoint string // "from", "to", or "" for range-level failures
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ResolveError) Unwrap() error { return e.Cause }

// newError creates a coded error for one endpoint.
func newError(code ErrorCode, endpoint, msg string, cause error) *ResolveError {
	return &ResolveError{Code: code, Endpoint: endpoint, Message: msg, Cause: cause}
}

// IsCode checks if an error is a ResolveError with the given code.
func IsCode(err error, code ErrorCode) bool {
	if rerr, ok := err.(*ResolveError); ok {
		return rerr.Code == code
	}
	return false
}

// CodeFromError extracts the code from any error, falling back to
// defaultCode for non-ResolveError values.
func CodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if rerr, ok := err.(*ResolveError); ok {
		return rerr.Code
	}
	return defaultCode
}
