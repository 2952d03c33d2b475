package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/albri/mdplane/internal/models"
)

// validate is the single shared validator instance for every mutating
// endpoint's request DTO, mirroring the teacher's "decode then validate"
// config-loading pattern generalized to HTTP bodies (SPEC_FULL.md §4.9).
var validate = validator.New()

const maxRequestBodyBytes = models.MaxFileContentBytes + 4096

// decodeAndValidate reads r.Body (capped to avoid an unbounded read for a
// client that never applies the quota/size checks a real handler does
// afterwards), decodes it into dst, and runs struct-tag validation.
func decodeAndValidate(r *http.Request, dst any) *models.DomainError {
	body := http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return models.NewError(models.CodeInvalidRequest, "invalid JSON body")
	}
	return validateStruct(dst)
}

func validateStruct(dst any) *models.DomainError {
	if err := validate.Struct(dst); err != nil {
		if fes, ok := err.(validator.ValidationErrors); ok && len(fes) > 0 {
			fe := fes[0]
			return models.NewError(models.CodeInvalidRequest, fe.Field()+" failed "+fe.Tag()+" validation")
		}
		return models.NewError(models.CodeInvalidRequest, "invalid request body")
	}
	return nil
}

// readLimitedBody reads the full body up to maxRequestBodyBytes, used by
// handlers that need the raw bytes (file content) rather than a decoded
// struct.
func readLimitedBody(r *http.Request, limit int64) ([]byte, *models.DomainError) {
	body := http.MaxBytesReader(nil, r.Body, limit)
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, models.NewErrorWithDetails(models.CodePayloadTooLarge, "request body exceeds the allowed size",
			map[string]any{"limitBytes": limit})
	}
	return data, nil
}
