package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"jatrackr/core"

	"go.uber.org/zap"
)

var (
	connectionStringPattern = regexp.MustCompile(`(?:mongodb(?:\+srv)?|redis|rediss)://[^\s"']+`)
	privateIPPattern        = regexp.MustCompile(`\b(?:10|127)(?:\.\d{1,3}){3}(?::\d{1,5})?\b|\b172\.(?:1[6-9]|2[0-9]|3[01])(?:\.\d{1,3}){2}(?::\d{1,5})?\b|\b192\.168(?:\.\d{1,3}){2}(?::\d{1,5})?\b`)
	secretPattern           = regexp.MustCompile(`(?i)(password|secret|token|credential)[:=]\s*["']?[^"'\s]+["']?`)
	stackTracePattern       = regexp.MustCompile(`(?m)^goroutine \d+.*$`)
	controlCharPattern      = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// sanitizeErrorMessage removes connection strings, private addresses and
// secrets from a message before it is sent to a client
func sanitizeErrorMessage(message string) string {
	message = connectionStringPattern.ReplaceAllString(message, "[DATABASE_CONNECTION]")
	message = privateIPPattern.ReplaceAllString(message, "[PRIVATE_IP]")
	message = secretPattern.ReplaceAllString(message, "$1=[REDACTED]")
	message = stackTracePattern.ReplaceAllString(message, "[STACK_TRACE]")

	// Limit message length to prevent information disclosure through verbose errors
	if len(message) > core.MaxErrorMessageLength {
		message = truncateUTF8(message, core.MaxErrorMessageLength-3) + "..."
	}

	return message
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// sanitizeLogMessage strips control characters and secrets so request data
// cannot forge log entries
func sanitizeLogMessage(message string) string {
	message = strings.ReplaceAll(message, "\n", "\\n")
	message = strings.ReplaceAll(message, "\r", "\\r")
	message = strings.ReplaceAll(message, "\t", "\\t")
	message = controlCharPattern.ReplaceAllString(message, "")
	message = secretPattern.ReplaceAllString(message, "$1=[REDACTED]")
	return connectionStringPattern.ReplaceAllString(message, "[DB_CONNECTION]")
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error" example:"user not found"`
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response to the client and logs it with proper sanitization
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	// Log the FULL error internally (unsanitized for debugging)
	if logger != nil {
		if err != nil {
			logger.Errorw(message,
				"error", err.Error(),
				"status_code", statusCode,
			)
		} else {
			logger.Errorw(message,
				"status_code", statusCode,
			)
		}
	}

	writeJSON(w, statusCode, ErrorResponse{Error: sanitizeErrorMessage(message)})
}

// writeServiceError maps service errors onto HTTP statuses. Client errors
// carry the error text; unexpected failures get a generic message.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: sanitizeErrorMessage(err.Error())})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: sanitizeErrorMessage(err.Error())})
	case errors.Is(err, core.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "a user with that username or email already exists"})
	case errors.Is(err, core.ErrStorageUnavailable):
		LogWithRequestID(r.Context(), a.logger).Warnw("Storage unavailable", "error", sanitizeLogMessage(err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: sanitizeErrorMessage(err.Error())})
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error", err, LogWithRequestID(r.Context(), a.logger))
	}
}

// decodeJSONBody decodes a size-limited JSON request body into dst, rejecting
// unknown fields and trailing data
func (a *API) decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.API.MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			return fmt.Errorf("%w: request body must not exceed %d bytes", core.ErrValidation, maxBytesErr.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body must not be empty", core.ErrValidation)
		default:
			return fmt.Errorf("%w: invalid JSON body: %v", core.ErrValidation, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", core.ErrValidation)
	}
	return nil
}

// getRealIP extracts the client IP, honouring X-Forwarded-For and X-Real-IP
// only when the server sits behind a trusted proxy
func getRealIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			ip := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
