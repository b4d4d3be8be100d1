package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"llmgated/pkg/types"
)

// Backend wire payloads. All engines that speak the native REST dialect
// share these shapes.
type loadModelPayload struct {
	ModelPath string `json:"model_path"`
	MaxLength int    `json:"max_length"`
}

type loadModelResult struct {
	ModelID string `json:"model_id"`
	Status  string `json:"status"`
}

type generatePayload struct {
	ModelID     string  `json:"model_id"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	Stream      bool    `json:"stream"`
}

type generateResult struct {
	Text            string `json:"text"`
	TokensGenerated int    `json:"tokens_generated"`
	PromptTokens    int    `json:"prompt_tokens"`
}

// defaultMaxLength is the fixed max-context length sent with every load.
const defaultMaxLength = 32768

// newBackendHTTPClient builds the shared transport for engine clients.
// Timeout stays 0 on purpose: streamed responses have no overall deadline,
// every request carries a context instead.
func newBackendHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 0,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
		},
	}
}

// restClient implements the uniform contract against a backend exposing the
// native REST surface: POST /models/load, POST /models/unload,
// POST /generate (JSON or SSE), GET /health.
type restClient struct {
	httpClient *http.Client
	baseURL    string
	name       string
	// healthField is the backend-specific boolean availability field read
	// from GET /health.
	healthField string
	log         zerolog.Logger

	mu         sync.Mutex
	loaded     map[ModelHandle]string
	nextHandle atomic.Uint64
}

func newRESTClient(baseURL, name, healthField string, log zerolog.Logger) *restClient {
	return &restClient{
		httpClient:  newBackendHTTPClient(),
		baseURL:     strings.TrimRight(baseURL, "/"),
		name:        name,
		healthField: healthField,
		log:         log,
		loaded:      make(map[ModelHandle]string),
	}
}

func (c *restClient) mintHandle() ModelHandle {
	return ModelHandle(c.nextHandle.Add(1))
}

// ModelID resolves a handle locally; no I/O.
func (c *restClient) ModelID(handle ModelHandle) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.loaded[handle]
	return id, ok
}

func (c *restClient) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

// readErrorBody drains up to 4KiB of an error response for diagnostics.
func readErrorBody(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return string(b)
}

// LoadModel POSTs the model path and mints a handle for the backend's id.
func (c *restClient) LoadModel(ctx context.Context, path string) (ModelHandle, error) {
	c.log.Info().Str("engine", c.name).Str("path", path).Msg("loading model")

	resp, err := c.postJSON(ctx, "/models/load", loadModelPayload{ModelPath: path, MaxLength: defaultMaxLength})
	if err != nil {
		return 0, ErrModelLoadFailed(0, "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, ErrModelLoadFailed(resp.StatusCode, readErrorBody(resp), nil)
	}

	var result loadModelResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, ErrModelLoadFailed(resp.StatusCode, "", fmt.Errorf("decode load response: %w", err))
	}

	handle := c.mintHandle()
	c.mu.Lock()
	c.loaded[handle] = result.ModelID
	c.mu.Unlock()

	c.log.Info().Str("engine", c.name).Str("model_id", result.ModelID).Uint64("handle", uint64(handle)).Msg("model loaded")
	return handle, nil
}

// UnloadModel releases the handle's model. The local mapping is removed only
// after the backend confirms.
func (c *restClient) UnloadModel(ctx context.Context, handle ModelHandle) error {
	c.mu.Lock()
	modelID, ok := c.loaded[handle]
	c.mu.Unlock()
	if !ok {
		return ErrModelNotFound(fmt.Sprintf("handle %d", handle))
	}

	path := "/models/unload?model_id=" + url.QueryEscape(modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return ErrInferenceFailed(0, "", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrInferenceFailed(0, "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ErrInferenceFailed(resp.StatusCode, readErrorBody(resp), nil)
	}

	c.mu.Lock()
	delete(c.loaded, handle)
	c.mu.Unlock()
	c.log.Info().Str("engine", c.name).Str("model_id", modelID).Msg("model unloaded")
	return nil
}

// Generate performs one non-streaming generation and translates the backend
// payload into the canonical response.
func (c *restClient) Generate(ctx context.Context, req types.GenerateRequest) (types.GenerateResponse, error) {
	start := time.Now()
	resp, err := c.postJSON(ctx, "/generate", generatePayload{
		ModelID:     req.Model,
		Prompt:      req.Prompt,
		MaxTokens:   req.Options.Sampling.MaxTokens,
		Temperature: req.Options.Sampling.Temperature,
		TopP:        req.Options.Sampling.TopP,
		Stream:      false,
	})
	if err != nil {
		return types.GenerateResponse{}, ErrInferenceFailed(0, "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.GenerateResponse{}, ErrInferenceFailed(resp.StatusCode, readErrorBody(resp), nil)
	}

	var result generateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return types.GenerateResponse{}, ErrInferenceFailed(resp.StatusCode, "", fmt.Errorf("decode generate response: %w", err))
	}

	stats := types.NewGenerationStats(result.PromptTokens, result.TokensGenerated).
		WithTimings(0, time.Since(start))
	return types.GenerateResponse{
		ID:           req.ID,
		Model:        req.Model,
		Text:         result.Text,
		Stats:        stats,
		Finished:     true,
		FinishReason: "stop",
	}, nil
}

// GenerateStream POSTs with stream=true and maps the backend's SSE byte
// stream into chunks. Lines that are not well-formed "data: {json}" frames
// yield an empty-text chunk so keep-alive noise never aborts the stream.
func (c *restClient) GenerateStream(ctx context.Context, req types.GenerateRequest) (<-chan StreamChunk, error) {
	resp, err := c.postJSON(ctx, "/generate", generatePayload{
		ModelID:     req.Model,
		Prompt:      req.Prompt,
		MaxTokens:   req.Options.Sampling.MaxTokens,
		Temperature: req.Options.Sampling.Temperature,
		TopP:        req.Options.Sampling.TopP,
		Stream:      true,
	})
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

		chunkFor := func(text string) StreamChunk {
			return StreamChunk{Resp: types.GenerateResponse{ID: req.ID, Model: req.Model, Text: text}}
		}

		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			out := chunkFor("")
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var frag struct {
					Text string `json:"text"`
				}
				if err := json.Unmarshal([]byte(data), &frag); err == nil {
					out = chunkFor(frag.Text)
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

// HealthCheck reads the named boolean field from GET /health. Any transport
// or parse failure degrades to unhealthy.
func (c *restClient) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var fields map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return false
	}
	v, ok := fields[c.healthField].(bool)
	return ok && v
}
