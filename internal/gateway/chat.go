package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"llmgated/pkg/types"
)

// validateMessages rejects message lists the templates cannot render. It
// returns an error string suitable for either dialect envelope, or "".
func validateMessages(messages []types.ChatMessage) string {
	if len(messages) == 0 {
		return "messages is required"
	}
	for i, m := range messages {
		if m.Role == "" {
			return fmt.Sprintf("messages[%d]: role is required", i)
		}
	}
	return ""
}

// handleChat godoc
// @Summary Chat completion (Ollama dialect)
// @Tags inference
// @Accept json
// @Produce json
// @Param request body types.ChatAPIRequest true "chat request"
// @Success 200 {object} types.ChatAPIResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /api/chat [post]
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOllamaError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Model == "" {
		writeOllamaError(w, http.StatusBadRequest, "model is required")
		return
	}
	if msg := validateMessages(req.Messages); msg != "" {
		writeOllamaError(w, http.StatusBadRequest, msg)
		return
	}

	prompt := TemplateForModel(req.Model).Render(req.Messages)

	stream := true
	if req.Stream != nil {
		stream = *req.Stream
	}
	genReq := g.buildRequest(req.Model, prompt, req.Options, stream)

	if stream {
		g.streamGenerate(w, r, req.Model, genReq, chatFrames{model: req.Model}, "chat", writeOllamaError)
		return
	}

	start := time.Now()
	resp, err := g.generateOnce(r.Context(), req.Model, genReq)
	if err != nil {
		writeOllamaError(w, statusForError(err), err.Error())
		return
	}
	duration := time.Since(start).Nanoseconds()
	evalCount := resp.Stats.GeneratedTokens
	writeJSON(w, http.StatusOK, types.ChatAPIResponse{
		Model:         req.Model,
		Message:       types.AssistantMessage(resp.Text),
		Done:          true,
		TotalDuration: &duration,
		EvalCount:     &evalCount,
	})
}
