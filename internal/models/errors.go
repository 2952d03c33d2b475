package models

import "fmt"

// Code is the machine-readable error code carried in every failure
// envelope (spec.md §7). It is attached to a DomainError and translated to
// an HTTP status by the api/handlers layer, which is the only place that
// knows whether the failing request came in over a capability URL (where
// credential failures always surface as 404) or an API key (401/403).
type Code string

const (
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeInvalidKey         Code = "INVALID_KEY"
	CodeKeyExpired         Code = "KEY_EXPIRED"
	CodeKeyRevoked         Code = "KEY_REVOKED"
	CodePermissionDenied   Code = "PERMISSION_DENIED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeFileNotFound       Code = "FILE_NOT_FOUND"
	CodeFolderNotFound     Code = "FOLDER_NOT_FOUND"
	CodeWebhookNotFound    Code = "WEBHOOK_NOT_FOUND"
	CodeGone               Code = "GONE"
	CodeConflict           Code = "CONFLICT"
	CodeAlreadyClaimed     Code = "ALREADY_CLAIMED"
	CodeAuthorMismatch     Code = "AUTHOR_MISMATCH"
	CodeInvalidAuthor      Code = "INVALID_AUTHOR"
	CodeInvalidPath        Code = "INVALID_PATH"
	CodeInvalidRequest     Code = "INVALID_REQUEST"
	CodeInvalidWebhookURL  Code = "INVALID_WEBHOOK_URL"
	CodePayloadTooLarge    Code = "PAYLOAD_TOO_LARGE"
	CodeQuotaExceeded      Code = "QUOTA_EXCEEDED"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeWebhookLimit       Code = "WEBHOOK_LIMIT_EXCEEDED"
	CodeFolderExists       Code = "FOLDER_ALREADY_EXISTS"
	CodeWIPExceeded        Code = "WIP_EXCEEDED"
	CodeClaimExpired       Code = "CLAIM_EXPIRED"
	CodeServerError        Code = "SERVER_ERROR"
)

// DomainError is the error type every store/service method returns for
// expected, classifiable failures. Unexpected errors are wrapped as
// CodeServerError by the handler layer rather than constructed here.
type DomainError struct {
	Code    Code
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError constructs a DomainError with no details.
func NewError(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewErrorWithDetails constructs a DomainError carrying structured detail
// fields (e.g. {currentEtag, providedEtag}).
func NewErrorWithDetails(code Code, message string, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, Details: details}
}

// AsDomainError unwraps err into a *DomainError if it is one.
func AsDomainError(err error) (*DomainError, bool) {
	de, ok := err.(*DomainError)
	return de, ok
}
