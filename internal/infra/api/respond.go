package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"svmedia/internal/domain"
	"svmedia/internal/infra/logging"

	"github.com/rs/zerolog"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrArchiveNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrExhaustedGenerationBudget),
		errors.Is(err, domain.ErrDuplicateCode),
		errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAssemblyFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError never leaks internal error text for 5xx responses other than
// the failing object of an archive build.
func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	status := statusFor(err)
	body := errorBody{Error: http.StatusText(status)}
	switch {
	case status < 500:
		body.Detail = publicMessage(err)
	case status == http.StatusBadGateway:
		var ae *domain.AssemblyError
		if errors.As(err, &ae) {
			body.Detail = "could not retrieve " + ae.Key
		}
	}
	if status >= 500 {
		l := logging.With(r.Context(), logger)
		l.Error().Err(err).Int("status", status).Msg("request failed")
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, body)
}

func publicMessage(err error) string {
	for _, known := range []error{
		domain.ErrNotFound, domain.ErrArchiveNotFound, domain.ErrAlreadyRedeemed,
		domain.ErrInvalidArgument, domain.ErrExhaustedGenerationBudget, domain.ErrDuplicateCode,
		domain.ErrAlreadyExists, domain.ErrUnauthorized, domain.ErrInvalidCredentials,
		domain.ErrForbidden, domain.ErrRateLimited,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ""
}
