package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/cassiomorais/summitpay/internal/domain/errors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrTransactionNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrMissingReference, http.StatusBadRequest, "missing_reference"},
	{domainErrors.ErrAmbiguousReference, http.StatusConflict, "ambiguous_reference"},
	{domainErrors.ErrDuplicateReference, http.StatusConflict, "duplicate_reference"},
	{domainErrors.ErrDuplicateIdempotencyKey, http.StatusConflict, "duplicate_request"},
	{domainErrors.ErrJobAlreadyRunning, http.StatusConflict, "job_running"},
	{domainErrors.ErrConnection, http.StatusBadGateway, "provider_connection"},
	{domainErrors.ErrProtocol, http.StatusBadGateway, "provider_protocol"},
	{domainErrors.ErrInvalidProviderResponse, http.StatusBadGateway, "invalid_provider_response"},
	{domainErrors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domainErrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domainErrors.ErrForbidden, http.StatusForbidden, "forbidden"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(text))
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			if m.status == http.StatusBadGateway {
				resp.Error = providerMessage(err)
			}
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

// providerMessage hides provider internals from API clients.
func providerMessage(err error) string {
	if errors.Is(err, domainErrors.ErrConnection) {
		return domainErrors.ConnectionMessage
	}
	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "unexpected response from Summit"
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
