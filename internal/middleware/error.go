package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Client-facing messages. Store failures always map to MsgServerError so
// no internal detail leaks.
const (
	MsgServerError     = "Server error"
	MsgTooManyRequests = "Too many requests"
)

// MessageResponse is the {"message": ...} body used by the collection routes
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the {"error": ...} body used by the item routes
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondWithMessage sends a {"message": ...} body
func RespondWithMessage(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, MessageResponse{Message: message})
}

// RespondWithError sends an {"error": ...} body
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// RespondWithServerError sends the generic 500 body
func RespondWithServerError(w http.ResponseWriter) {
	RespondWithMessage(w, http.StatusInternalServerError, MsgServerError)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithServerError(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
