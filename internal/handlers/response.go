package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/pkg/logger"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

type envelope struct {
	Status  string   `json:"status"`
	Results *int     `json:"results,omitempty"`
	Data    any      `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Code    string   `json:"code,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, envelope{Status: statusSuccess, Data: data})
}

func writeList[T any](w http.ResponseWriter, key string, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Results: &n, Data: map[string]any{key: items}})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, envelope{Status: statusSuccess, Message: message})
}

func writeFail(w http.ResponseWriter, statusCode int, message, code string, details []string) {
	writeJSON(w, statusCode, envelope{Status: statusFail, Message: message, Code: code, Errors: details})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthentication:
		return http.StatusUnauthorized
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		if errors.Is(err, domain.ErrDuplicate) {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError is the single place service errors become responses.
// Internal causes are logged and never sent to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	de, ok := domain.AsError(err)
	if !ok {
		de = domain.ErrInternal
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", de.Kind.String(),
			"error", err,
		)
		writeJSON(w, status, envelope{Status: statusError, Message: de.Message, Code: de.Code})
		return
	}
	writeFail(w, status, de.Message, de.Code, de.Details)
}
