package types

// GenerateAPIRequest is the Ollama-style /api/generate payload.
type GenerateAPIRequest struct {
	// Model identifier known to the gateway.
	// example: demo
	Model string `json:"model" example:"demo"`
	// Prompt text to complete.
	// example: Why is the sky blue?
	Prompt string `json:"prompt" example:"Why is the sky blue?"`
	// Stream results as SSE frames. Defaults to true when omitted.
	Stream *bool `json:"stream,omitempty"`
	// Optional sampling overrides.
	Options *GenerateOptionsAPI `json:"options,omitempty"`
}

// GenerateOptionsAPI is the sampling subset the Ollama dialects accept.
type GenerateOptionsAPI struct {
	Temperature *float32 `json:"temperature,omitempty" example:"0.7"`
	TopP        *float32 `json:"top_p,omitempty" example:"0.9"`
	TopK        *int     `json:"top_k,omitempty" example:"40"`
	MaxTokens   *int     `json:"max_tokens,omitempty" example:"128"`
	Stop        []string `json:"stop,omitempty"`
}

// GenerateAPIResponse is one /api/generate response body or stream frame.
type GenerateAPIResponse struct {
	Model         string `json:"model"`
	Response      string `json:"response"`
	Done          bool   `json:"done"`
	TotalDuration *int64 `json:"total_duration,omitempty"`
	EvalCount     *int   `json:"eval_count,omitempty"`
}

// ChatAPIRequest is the Ollama-style /api/chat payload.
type ChatAPIRequest struct {
	Model    string              `json:"model" example:"demo"`
	Messages []ChatMessage       `json:"messages"`
	Stream   *bool               `json:"stream,omitempty"`
	Options  *GenerateOptionsAPI `json:"options,omitempty"`
}

// ChatAPIResponse is one /api/chat response body or stream frame.
type ChatAPIResponse struct {
	Model         string      `json:"model"`
	Message       ChatMessage `json:"message"`
	Done          bool        `json:"done"`
	TotalDuration *int64      `json:"total_duration,omitempty"`
	EvalCount     *int        `json:"eval_count,omitempty"`
}

// OpenAIChatRequest is the /v1/chat/completions payload.
type OpenAIChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float32      `json:"temperature,omitempty"`
}

// OpenAIChatResponse is the non-streaming /v1/chat/completions body.
type OpenAIChatResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   *OpenAIUsage   `json:"usage,omitempty"`
}

// OpenAIChoice is one completed choice.
type OpenAIChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// OpenAIUsage is OpenAI-shaped token accounting.
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAIChatChunk is one streamed /v1/chat/completions frame.
type OpenAIChatChunk struct {
	ID      string              `json:"id"`
	Object  string              `json:"object"`
	Created int64               `json:"created"`
	Model   string              `json:"model"`
	Choices []OpenAIChunkChoice `json:"choices"`
}

// OpenAIChunkChoice carries the delta for one streamed frame. FinishReason is
// null until the terminal chunk.
type OpenAIChunkChoice struct {
	Index        int         `json:"index"`
	Delta        OpenAIDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// OpenAIDelta is the incremental message content of a streamed frame.
type OpenAIDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ModelInfo describes one known model for /api/tags.
type ModelInfo struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
}

// TagsResponse wraps GET /api/tags.
type TagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelDetails mirrors the Ollama model metadata block.
type ModelDetails struct {
	ParentModel       string `json:"parent_model"`
	Format            string `json:"format"`
	Family            string `json:"family"`
	ParameterSize     string `json:"parameter_size"`
	QuantizationLevel string `json:"quantization_level"`
}

// ProcessInfo describes one loaded model for /api/ps.
type ProcessInfo struct {
	Name    string       `json:"name"`
	Model   string       `json:"model"`
	Size    int64        `json:"size"`
	Digest  string       `json:"digest,omitempty"`
	Details ModelDetails `json:"details"`
}

// PsResponse wraps GET /api/ps.
type PsResponse struct {
	Models []ProcessInfo `json:"models"`
}

// PullAPIRequest is the /api/pull payload. "name" is accepted as an alias for
// "model" by the handler.
type PullAPIRequest struct {
	Model  string `json:"model"`
	Name   string `json:"name,omitempty"`
	Stream *bool  `json:"stream,omitempty"`
}

// PullAPIResponse is one /api/pull body or progress frame.
type PullAPIResponse struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     *int64 `json:"total,omitempty"`
	Completed *int64 `json:"completed,omitempty"`
}

// VersionResponse wraps GET /api/version.
type VersionResponse struct {
	Version string `json:"version" example:"0.3.0"`
}

// ErrorResponse is the flat error envelope used by the Ollama dialects.
type ErrorResponse struct {
	// Error message.
	// example: model not found: demo
	Error string `json:"error"`
}

// OpenAIErrorResponse is the nested error envelope of the OpenAI dialect.
type OpenAIErrorResponse struct {
	Error OpenAIErrorBody `json:"error"`
}

// OpenAIErrorBody carries the OpenAI error message and machine-readable type.
type OpenAIErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
