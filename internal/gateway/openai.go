package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"llmgated/pkg/types"
)

func newChatCompletionID() string {
	return fmt.Sprintf("chatcmpl-%x", time.Now().UnixNano())
}

// handleOpenAIChat godoc
// @Summary Chat completion (OpenAI dialect)
// @Tags inference
// @Accept json
// @Produce json
// @Param request body types.OpenAIChatRequest true "chat completion request"
// @Success 200 {object} types.OpenAIChatResponse
// @Failure 400 {object} types.OpenAIErrorResponse
// @Failure 404 {object} types.OpenAIErrorResponse
// @Failure 503 {object} types.OpenAIErrorResponse
// @Router /v1/chat/completions [post]
func (g *Gateway) handleOpenAIChat(w http.ResponseWriter, r *http.Request) {
	var req types.OpenAIChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOpenAIError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Model == "" {
		writeOpenAIError(w, http.StatusBadRequest, "model is required")
		return
	}
	if msg := validateMessages(req.Messages); msg != "" {
		writeOpenAIError(w, http.StatusBadRequest, msg)
		return
	}

	prompt := TemplateForModel(req.Model).Render(req.Messages)

	opts := &types.GenerateOptionsAPI{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	// OpenAI dialect does not stream unless asked to.
	genReq := g.buildRequest(req.Model, prompt, opts, req.Stream)

	id := newChatCompletionID()
	created := time.Now().Unix()

	if req.Stream {
		shaper := openAIFrames{id: id, created: created, model: req.Model}
		g.streamGenerate(w, r, req.Model, genReq, shaper, "openai", writeOpenAIError)
		return
	}

	resp, err := g.generateOnce(r.Context(), req.Model, genReq)
	if err != nil {
		writeOpenAIError(w, statusForError(err), err.Error())
		return
	}

	finishReason := resp.FinishReason
	if finishReason == "" {
		finishReason = "stop"
	}
	writeJSON(w, http.StatusOK, types.OpenAIChatResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   req.Model,
		Choices: []types.OpenAIChoice{{
			Index:        0,
			Message:      types.AssistantMessage(resp.Text),
			FinishReason: finishReason,
		}},
		Usage: &types.OpenAIUsage{
			PromptTokens:     resp.Stats.PromptTokens,
			CompletionTokens: resp.Stats.GeneratedTokens,
			TotalTokens:      resp.Stats.TotalTokens,
		},
	})
}
