package types

import "time"

// RequestID identifies one canonical generation request inside the gateway.
type RequestID uint64

// ChatRole is the speaker of a chat message.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleTool      ChatRole = "tool"
)

// ChatMessage is a single turn in a chat conversation.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// SamplingParams holds the sampling knobs forwarded opaquely to the backend.
type SamplingParams struct {
	Temperature       float32  `json:"temperature"`
	TopP              float32  `json:"top_p"`
	TopK              int      `json:"top_k,omitempty"`
	RepetitionPenalty float32  `json:"repetition_penalty"`
	FrequencyPenalty  float32  `json:"frequency_penalty"`
	PresencePenalty   float32  `json:"presence_penalty"`
	MaxTokens         int      `json:"max_tokens,omitempty"`
	StopSequences     []string `json:"stop_sequences,omitempty"`
}

// DefaultSampling returns the sampling defaults applied when a dialect omits options.
func DefaultSampling() SamplingParams {
	return SamplingParams{
		Temperature:       0.7,
		TopP:              0.9,
		RepetitionPenalty: 1.0,
	}
}

// GenerateOptions carries everything beyond model and prompt for one request.
type GenerateOptions struct {
	Stream         bool           `json:"stream"`
	Sampling       SamplingParams `json:"sampling"`
	ReturnLogprobs bool           `json:"return_logprobs,omitempty"`
	EchoPrompt     bool           `json:"echo_prompt,omitempty"`
}

// DefaultGenerateOptions returns options with default sampling and streaming off.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{Sampling: DefaultSampling()}
}

// GenerateRequest is the canonical generation request every inbound dialect
// is translated into. Immutable after construction.
type GenerateRequest struct {
	ID      RequestID       `json:"id"`
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Options GenerateOptions `json:"options"`
}

// GenerationStats is token accounting and timing for one response.
type GenerationStats struct {
	PromptTokens     int     `json:"prompt_tokens"`
	GeneratedTokens  int     `json:"generated_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	PromptTimeMs     int64   `json:"prompt_time_ms"`
	GenerationTimeMs int64   `json:"generation_time_ms"`
	TokensPerSecond  float64 `json:"tokens_per_second"`
}

// NewGenerationStats builds stats from token counts.
func NewGenerationStats(promptTokens, generatedTokens int) GenerationStats {
	return GenerationStats{
		PromptTokens:    promptTokens,
		GeneratedTokens: generatedTokens,
		TotalTokens:     promptTokens + generatedTokens,
	}
}

// WithTimings fills duration fields and the derived tokens/sec rate.
func (s GenerationStats) WithTimings(promptTime, generationTime time.Duration) GenerationStats {
	s.PromptTimeMs = promptTime.Milliseconds()
	s.GenerationTimeMs = generationTime.Milliseconds()
	if generationTime > 0 {
		s.TokensPerSecond = float64(s.GeneratedTokens) / generationTime.Seconds()
	}
	return s
}

// GenerateResponse is one canonical response or stream chunk. A non-streaming
// call yields exactly one response with Finished=true; a stream yields zero or
// more unfinished chunks, then the channel closes (the gateway emits the
// dialect terminal frame on exhaustion).
type GenerateResponse struct {
	ID           RequestID       `json:"id"`
	Model        string          `json:"model"`
	Text         string          `json:"text"`
	Stats        GenerationStats `json:"stats"`
	Finished     bool            `json:"finished"`
	FinishReason string          `json:"finish_reason,omitempty"`
}
