package gateway

import (
	"encoding/json"
	"net/http"

	"llmgated/internal/engine"
	"llmgated/internal/models"
	"llmgated/pkg/types"
)

// statusForError maps domain errors onto HTTP status codes. Unreachable
// backends are 503 regardless of which operation tripped over them.
func statusForError(err error) int {
	switch {
	case engine.IsBackendUnreachable(err):
		return http.StatusServiceUnavailable
	case engine.IsModelNotFound(err), models.IsNotFound(err):
		return http.StatusNotFound
	case engine.IsInvalidRequest(err):
		return http.StatusBadRequest
	case engine.IsEngineNotAvailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeOllamaError writes the flat error envelope of the Ollama dialects.
func writeOllamaError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg})
}

// writeOpenAIError writes the nested error envelope of the OpenAI dialect.
func writeOpenAIError(w http.ResponseWriter, status int, msg string) {
	errType := "server_error"
	if status >= 400 && status < 500 {
		errType = "invalid_request_error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.OpenAIErrorResponse{
		Error: types.OpenAIErrorBody{Message: msg, Type: errType},
	})
}

// writeJSON writes a success body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
