package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"llmgated/internal/hardware"
	"llmgated/pkg/types"
)

// /v1/completions wire shapes.
type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	Stream      bool    `json:"stream"`
}

type completionChoice struct {
	Text         string  `json:"text"`
	FinishReason *string `json:"finish_reason"`
}

type completionResponse struct {
	Choices []completionChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type completionChunk struct {
	Choices []completionChoice `json:"choices"`
}

// VLLMOpenAI adapts vLLM's OpenAI-compatible server to the uniform contract.
// The backend owns its model lifecycle: it loads one model at startup, so
// LoadModel is a local bookkeeping operation that records the name and mints
// a handle without any I/O.
type VLLMOpenAI struct {
	httpClient *http.Client
	baseURL    string
	log        zerolog.Logger

	mu         sync.Mutex
	loaded     map[ModelHandle]string
	nextHandle atomic.Uint64
}

// NewVLLMOpenAI builds an adapter rooted at baseURL.
func NewVLLMOpenAI(baseURL string, log zerolog.Logger) *VLLMOpenAI {
	return &VLLMOpenAI{
		httpClient: newBackendHTTPClient(),
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        log,
		loaded:     make(map[ModelHandle]string),
	}
}

func (e *VLLMOpenAI) Type() Type { return TypeVLLMOpenAI }

func (e *VLLMOpenAI) Capabilities() Capabilities {
	return Capabilities{
		ContinuousBatching:  true,
		FlashAttention:      true,
		PagedAttention:      true,
		SpeculativeDecoding: false,
		Quantization:        []string{"awq", "gptq", "squeezellm", "fp8"},
		MaxBatchSize:        256,
		MaxSequenceLength:   32768,
	}
}

// SupportsHardware requires a GPU; the OpenAI-compatible server refuses to
// start without one.
func (e *VLLMOpenAI) SupportsHardware(hw hardware.Hardware) bool {
	return hw.HasGPU()
}

// LoadModel records the model name and mints a handle. The backend loaded its
// model at startup, so there is nothing to ask it for.
func (e *VLLMOpenAI) LoadModel(ctx context.Context, path string) (ModelHandle, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if name == "" {
		name = path
	}

	handle := ModelHandle(e.nextHandle.Add(1))
	e.mu.Lock()
	e.loaded[handle] = name
	e.mu.Unlock()

	e.log.Info().Str("engine", "vllm-openai").Str("model", name).Uint64("handle", uint64(handle)).Msg("model registered")
	return handle, nil
}

// UnloadModel drops the local mapping. The backend keeps its model.
func (e *VLLMOpenAI) UnloadModel(ctx context.Context, handle ModelHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.loaded[handle]; !ok {
		return ErrModelNotFound(fmt.Sprintf("handle %d", handle))
	}
	delete(e.loaded, handle)
	return nil
}

// ModelID resolves a handle locally; no I/O.
func (e *VLLMOpenAI) ModelID(handle ModelHandle) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.loaded[handle]
	return id, ok
}

func (e *VLLMOpenAI) postCompletion(ctx context.Context, req types.GenerateRequest, stream bool) (*http.Response, error) {
	body, err := json.Marshal(completionRequest{
		Model:       req.Model,
		Prompt:      req.Prompt,
		MaxTokens:   req.Options.Sampling.MaxTokens,
		Temperature: req.Options.Sampling.Temperature,
		TopP:        req.Options.Sampling.TopP,
		Stream:      stream,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/completions", strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return e.httpClient.Do(httpReq)
}

// Generate performs one non-streaming completion.
func (e *VLLMOpenAI) Generate(ctx context.Context, req types.GenerateRequest) (types.GenerateResponse, error) {
	start := time.Now()
	resp, err := e.postCompletion(ctx, req, false)
	if err != nil {
		return types.GenerateResponse{}, ErrInferenceFailed(0, "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.GenerateResponse{}, ErrInferenceFailed(resp.StatusCode, readErrorBody(resp), nil)
	}

	var result completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return types.GenerateResponse{}, ErrInferenceFailed(resp.StatusCode, "", fmt.Errorf("decode completion: %w", err))
	}

	out := types.GenerateResponse{
		ID:       req.ID,
		Model:    req.Model,
		Finished: true,
	}
	if len(result.Choices) > 0 {
		out.Text = result.Choices[0].Text
		if fr := result.Choices[0].FinishReason; fr != nil {
			out.FinishReason = *fr
		}
	}
	out.Stats = types.NewGenerationStats(result.Usage.PromptTokens, result.Usage.CompletionTokens).
		WithTimings(0, time.Since(start))
	return out, nil
}

// GenerateStream streams completion deltas. The stream ends at the backend's
// "[DONE]" sentinel or EOF.
func (e *VLLMOpenAI) GenerateStream(ctx context.Context, req types.GenerateRequest) (<-chan StreamChunk, error) {
	resp, err := e.postCompletion(ctx, req, true)
	if err != nil {
		return nil, ErrInferenceFailed(0, "", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := readErrorBody(resp)
		resp.Body.Close()
		return nil, ErrInferenceFailed(resp.StatusCode, body, nil)
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}
			if data == "[DONE]" {
				return
			}
			var chunk completionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			out := StreamChunk{Resp: types.GenerateResponse{ID: req.ID, Model: req.Model}}
			if len(chunk.Choices) > 0 {
				out.Resp.Text = chunk.Choices[0].Text
				if fr := chunk.Choices[0].FinishReason; fr != nil {
					out.Resp.Finished = true
					out.Resp.FinishReason = *fr
				}
			}
			select {
			case ch <- out:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil && ctx.Err() == nil {
			select {
			case ch <- StreamChunk{Err: ErrInferenceFailed(0, "", err)}:
			case <-ctx.Done():
			}
		}
	}()
	return ch, nil
}

// HealthCheck reports whether GET /health answers 2xx.
func (e *VLLMOpenAI) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
