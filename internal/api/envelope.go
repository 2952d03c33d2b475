// Package api wires the credential resolver, append/orchestration stores,
// quota/rate-limit/webhook machinery, and audit log into the HTTP surface
// named in spec.md §6, behind the uniform envelope described in §4.8.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/albri/mdplane/internal/logger"
	"github.com/albri/mdplane/internal/models"
)

// envelope is the uniform response shape: {ok:true,data,pagination?} on
// success, {ok:false,error:{code,message,details?}} on failure.
type envelope struct {
	OK         bool           `json:"ok"`
	Data       any            `json:"data,omitempty"`
	Pagination *pageInfo      `json:"pagination,omitempty"`
	Error      *envelopeError `json:"error,omitempty"`
}

type pageInfo struct {
	NextCursor string `json:"nextCursor,omitempty"`
}

type envelopeError struct {
	Code    models.Code    `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write response body failed", "error", err)
	}
}

// writeOK writes a success envelope with no pagination block.
func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{OK: true, Data: data})
}

// writeOKPage writes a success envelope carrying a pagination cursor.
// An empty nextCursor omits the pagination block, signalling the last page.
func writeOKPage(w http.ResponseWriter, data any, nextCursor string) {
	env := envelope{OK: true, Data: data}
	if nextCursor != "" {
		env.Pagination = &pageInfo{NextCursor: nextCursor}
	}
	writeJSON(w, http.StatusOK, env)
}

func writeError(w http.ResponseWriter, status int, code models.Code, message string, details map[string]any) {
	writeJSON(w, status, envelope{Error: &envelopeError{Code: code, Message: message, Details: details}})
}

func writeDomainError(w http.ResponseWriter, status int, derr *models.DomainError) {
	writeError(w, status, derr.Code, derr.Message, derr.Details)
}

// writeCapabilityCredentialError always responds 404, regardless of the
// specific failure code, per the capability-URL security model (§4.1):
// a prober must not be able to distinguish "bad key" from "expired" from
// "wrong scope" by HTTP status alone.
func writeCapabilityCredentialError(w http.ResponseWriter, derr *models.DomainError) {
	writeDomainError(w, http.StatusNotFound, derr)
}

// statusForCode is the default code->status mapping from spec.md §7, for
// business-logic errors raised after credential resolution succeeds.
// CONFLICT and ALREADY_CLAIMED are context-dependent (412 vs 409, 400 vs
// 409) and are written explicitly at the call site instead of through
// this table; everything else follows the table as-is.
func statusForCode(code models.Code) int {
	switch code {
	case models.CodeUnauthorized:
		return http.StatusUnauthorized
	case models.CodeForbidden:
		return http.StatusForbidden
	case models.CodeInvalidKey, models.CodeKeyExpired, models.CodeKeyRevoked, models.CodePermissionDenied:
		return http.StatusUnauthorized
	case models.CodeNotFound, models.CodeFileNotFound, models.CodeFolderNotFound, models.CodeWebhookNotFound:
		return http.StatusNotFound
	case models.CodeGone:
		return http.StatusGone
	case models.CodeConflict:
		return http.StatusConflict
	case models.CodeAlreadyClaimed:
		return http.StatusBadRequest
	case models.CodeAuthorMismatch, models.CodeInvalidAuthor, models.CodeInvalidPath,
		models.CodeInvalidRequest, models.CodeInvalidWebhookURL, models.CodeClaimExpired:
		return http.StatusBadRequest
	case models.CodePayloadTooLarge, models.CodeQuotaExceeded:
		return http.StatusRequestEntityTooLarge
	case models.CodeRateLimited, models.CodeWebhookLimit, models.CodeWIPExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeBusinessError translates any error returned by a store or domain
// method into the envelope, using statusForCode for DomainErrors and
// collapsing anything else into an opaque SERVER_ERROR so internals
// (store paths, driver messages) never reach the client.
func writeBusinessError(w http.ResponseWriter, err error) {
	if derr, ok := models.AsDomainError(err); ok {
		writeDomainError(w, statusForCode(derr.Code), derr)
		return
	}
	logger.Error("unhandled internal error", "error", err)
	writeError(w, http.StatusInternalServerError, models.CodeServerError, "internal server error", nil)
}
