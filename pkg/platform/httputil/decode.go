package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	dErrors "consents/pkg/domain-errors"
)

// RequestBodyMissing is reported when a request that needs a body has none.
const RequestBodyMissing = "Required request body is missing"

const malformedBody = "Malformed JSON request body"

// Validatable requests check their own rules after decoding.
type Validatable interface {
	Validate() error
}

// Normalizable requests tidy their fields (trimming, defaults) before validation.
type Normalizable interface {
	Normalize()
}

// Decode reads a JSON body into a new T. On failure it writes a 400 with a
// single detail and returns false; the caller just returns.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.WithDetails(dErrors.CodeBadRequest, MessageInvalidInput, decodeDetail(err)))
		return nil, false
	}
	return &req, true
}

// decodeDetail turns a json decoding error into a client-facing message
// without echoing the raw body.
func decodeDetail(err error) string {
	var (
		typeErr *json.UnmarshalTypeError
		sizeErr *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return RequestBodyMissing
	case errors.As(err, &sizeErr):
		return fmt.Sprintf("Request body exceeds %d bytes", sizeErr.Limit)
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return fmt.Sprintf("Field %s has an invalid type", typeErr.Field)
	default:
		return malformedBody
	}
}

// PrepareRequest runs Normalize then Validate when req implements them.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeAndPrepare decodes the body and prepares it. Validation errors that
// are not coded are reported as validation failures with their text as detail.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (*T, bool) {
	req, ok := Decode[T](w, r, logger, requestID)
	if !ok {
		return nil, false
	}
	if err := PrepareRequest(req); err != nil {
		logger.InfoContext(r.Context(), "request rejected by validation",
			"error", err,
			"request_id", requestID,
		)
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			err = dErrors.New(dErrors.CodeValidation, err.Error())
		}
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
