package protocol

import "fmt"

// ErrorCode identifies a stable, machine readable protocol error category.
type ErrorCode string

// Stable error codes carried in LEAGUE_ERROR / GAME_ERROR payloads.
const (
	CodeTimeout          ErrorCode = "E001"
	CodeMissingField     ErrorCode = "E003"
	CodeInvalidParity    ErrorCode = "E004"
	CodePlayerUnknown    ErrorCode = "E005"
	CodeConnection       ErrorCode = "E009"
	CodeAuthMissing      ErrorCode = "E011"
	CodeAuthInvalid      ErrorCode = "E012"
	CodeRefereeUnknown   ErrorCode = "E013"
	CodeVersionMismatch  ErrorCode = "E018"
	CodeInvalidTimestamp ErrorCode = "E021"
	CodeConversationDup  ErrorCode = "E022"
)

// ProtocolError reports a malformed or unversioned envelope. The caller must
// not retry without correcting the offending field.
type ProtocolError struct {
	Code  ErrorCode
	Field string
	Msg   string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("protocol error %s: field %q: %s", e.Code, e.Field, e.Msg)
	}
	return fmt.Sprintf("protocol error %s: %s", e.Code, e.Msg)
}

// NewProtocolError constructs a ProtocolError for the given field.
func NewProtocolError(code ErrorCode, field, msg string) *ProtocolError {
	return &ProtocolError{Code: code, Field: field, Msg: msg}
}

// AuthError reports a missing or invalid auth token on a protected method.
// Not retryable.
type AuthError struct {
	Code    ErrorCode
	AgentID string
	Msg     string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.AgentID != "" {
		return fmt.Sprintf("auth error %s: agent %s: %s", e.Code, e.AgentID, e.Msg)
	}
	return fmt.Sprintf("auth error %s: %s", e.Code, e.Msg)
}

// NewAuthError constructs an AuthError.
func NewAuthError(code ErrorCode, agentID, msg string) *AuthError {
	return &AuthError{Code: code, AgentID: agentID, Msg: msg}
}
