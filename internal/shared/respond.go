package shared

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HTTPStatus maps an error kind to the response status used by every
// handler. Unknown errors are infrastructure failures and map to 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindState:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindIntegrity:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondJSON writes v with the given status.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError writes the error as a JSON body, hiding internals behind a
// generic message for non-typed errors.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := HTTPStatus(err)
	msg := err.Error()
	if KindOf(err) == 0 || KindOf(err) == KindIntegrity {
		if logger != nil {
			logger.Error("request failed", slog.Any("error", err))
		}
		msg = http.StatusText(status)
	}
	RespondJSON(w, status, map[string]string{"error": msg})
}
