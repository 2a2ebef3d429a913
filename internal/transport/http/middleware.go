package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"trivia-board-service/internal/auth"
	"trivia-board-service/internal/domain"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Machine-readable error codes.
const (
	CodeInvalidInput       = "invalid_input"
	CodeUnknownTeam        = "unknown_team"
	CodeNotFound           = "not_found"
	CodeGameCompleted      = "game_completed"
	CodeAlreadyAnswered    = "already_answered"
	CodeNotOnBoard         = "not_on_board"
	CodeDuplicateCategory  = "duplicate_category"
	CodeAdminRequired      = "admin_required"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInternal           = "internal"
)

var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
	{domain.ErrUnknownTeam, http.StatusBadRequest, CodeUnknownTeam},
	{domain.ErrGameNotFound, http.StatusNotFound, CodeNotFound},
	{domain.ErrQuestionNotFound, http.StatusNotFound, CodeNotFound},
	{domain.ErrCategoryNotFound, http.StatusNotFound, CodeNotFound},
	{domain.ErrGameCompleted, http.StatusConflict, CodeGameCompleted},
	{domain.ErrAlreadyAnswered, http.StatusConflict, CodeAlreadyAnswered},
	{domain.ErrQuestionNotOnBoard, http.StatusConflict, CodeNotOnBoard},
	{domain.ErrDuplicateCategory, http.StatusConflict, CodeDuplicateCategory},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
	{domain.ErrUnauthorized, http.StatusUnauthorized, CodeAdminRequired},
}

// WithLogging wraps a handler with request logging.
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// CORS allows the board front end to call the API from another origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests without a valid bearer token when authentication is enabled.
func RequireAdmin(authn *auth.Authenticator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if authn.Enabled() {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				ErrorResponse(w, http.StatusUnauthorized, CodeAdminRequired, "admin token required")
				return
			}
			if _, err := authn.Verify(token); err != nil {
				ErrorResponse(w, http.StatusUnauthorized, CodeAdminRequired, "invalid or expired admin token")
				return
			}
		}
		next(w, r)
	}
}

// JSONResponse writes a JSON response.
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response.
func ErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	JSONResponse(w, statusCode, ErrorBody{
		Error:   http.StatusText(statusCode),
		Code:    code,
		Message: message,
	})
}

// WriteError maps a use-case error onto its status code and error body.
func WriteError(w http.ResponseWriter, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			ErrorResponse(w, m.status, m.code, err.Error())
			return
		}
	}
	slog.Error("request failed", "error", err)
	ErrorResponse(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

// ParseJSONBody parses the request body into the given struct.
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
