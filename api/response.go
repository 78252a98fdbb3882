package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Message string            `json:"message"`
	Errors  []string          `json:"errors,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", slog.Any("err", err))
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// errorResponder writes the generic 500 body. With detail set the error text
// is included, which is only wanted outside production.
type errorResponder struct {
	detail bool
}

func (e errorResponder) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.Error(msg, slog.Any("err", err), slog.String("request_id", RequestID(r.Context())))

	body := errorResponse{Message: "Server error"}
	if e.detail {
		body.Detail = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "Route not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
}
