package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Kazutech1/cucker-sub000/logger"
	"github.com/Kazutech1/cucker-sub000/services"

	"go.uber.org/zap"
)

type APIResponse struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Data       interface{}          `json:"data,omitempty"`
	Pagination *services.Pagination `json:"pagination,omitempty"`
}

// ExposeErrors adds internal error detail to 500 responses. Only set in development.
var ExposeErrors bool

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// ErrorStatus maps a service error to its HTTP status.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInsufficientBalance):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// WriteError writes err as a failure envelope. Domain errors carry their own
// message; anything else is logged and reported generically.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := ErrorStatus(err)
	if status != http.StatusInternalServerError {
		WriteJSON(w, status, APIResponse{Success: false, Message: errorMessage(err)})
		return
	}

	reqID, _ := r.Context().Value(RequestIDKey).(string)
	logger.L.Error("request failed",
		zap.String("request_id", reqID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	msg := "Internal server error"
	if ExposeErrors {
		msg = msg + ": " + err.Error()
	}
	WriteJSON(w, status, APIResponse{Success: false, Message: msg})
}

// errorMessage turns "not found: user 4" into "User 4 not found" style text.
func errorMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{services.ErrValidation, services.ErrNotFound, services.ErrConflict} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			detail := strings.TrimPrefix(msg, prefix)
			if sentinel == services.ErrNotFound {
				return capitalize(detail) + " not found"
			}
			return capitalize(detail)
		}
	}
	return capitalize(msg)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// DecodeJSON reads a JSON body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("Invalid request body")
	}
	return nil
}
