package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"llmgated/internal/engine"
	"llmgated/internal/hardware"
	"llmgated/internal/models"
	"llmgated/pkg/types"
)

type fakeEngine struct {
	mu      sync.Mutex
	handles map[engine.ModelHandle]string
	next    uint64
	loads   int

	lastPrompt string
	lastModel  string

	generateFn func(req types.GenerateRequest) (types.GenerateResponse, error)
	streamFn   func(ctx context.Context, req types.GenerateRequest) (<-chan engine.StreamChunk, error)

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (f *fakeEngine) Type() engine.Type                          { return engine.TypeVLLM }
func (f *fakeEngine) Capabilities() engine.Capabilities          { return engine.Capabilities{} }
func (f *fakeEngine) SupportsHardware(hw hardware.Hardware) bool { return true }

func (f *fakeEngine) LoadModel(ctx context.Context, path string) (engine.ModelHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	f.next++
	h := engine.ModelHandle(f.next)
	if f.handles == nil {
		f.handles = make(map[engine.ModelHandle]string)
	}
	f.handles[h] = strings.TrimSuffix(filepath.Base(path), ".gguf")
	return h, nil
}

func (f *fakeEngine) UnloadModel(ctx context.Context, h engine.ModelHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handles, h)
	return nil
}

func (f *fakeEngine) ModelID(h engine.ModelHandle) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.handles[h]
	return id, ok
}

func (f *fakeEngine) trackInflight() func() {
	n := f.inflight.Add(1)
	for {
		max := f.maxInflight.Load()
		if n <= max || f.maxInflight.CompareAndSwap(max, n) {
			break
		}
	}
	return func() { f.inflight.Add(-1) }
}

func (f *fakeEngine) Generate(ctx context.Context, req types.GenerateRequest) (types.GenerateResponse, error) {
	done := f.trackInflight()
	defer done()
	f.mu.Lock()
	f.lastPrompt = req.Prompt
	f.lastModel = req.Model
	fn := f.generateFn
	f.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return types.GenerateResponse{
		ID:       req.ID,
		Model:    req.Model,
		Text:     "hello",
		Stats:    types.NewGenerationStats(3, 2),
		Finished: true,
	}, nil
}

func (f *fakeEngine) GenerateStream(ctx context.Context, req types.GenerateRequest) (<-chan engine.StreamChunk, error) {
	f.mu.Lock()
	f.lastPrompt = req.Prompt
	f.lastModel = req.Model
	fn := f.streamFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return chunkStream("hel", "lo"), nil
}

func (f *fakeEngine) HealthCheck(ctx context.Context) bool { return true }

func chunkStream(texts ...string) <-chan engine.StreamChunk {
	ch := make(chan engine.StreamChunk, len(texts))
	for _, text := range texts {
		ch <- engine.StreamChunk{Resp: types.GenerateResponse{Text: text}}
	}
	close(ch)
	return ch
}

func newTestGateway(t *testing.T) (*Gateway, *fakeEngine) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"demo.gguf", "llama-chat.gguf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("weights"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	resolver, err := models.NewLocalDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	eng := &fakeEngine{}
	return New(eng, resolver, "0.3.0", zerolog.Nop()), eng
}

func postJSON(t *testing.T, mux http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

// parseSSE extracts the JSON payload of each "data:" frame.
func parseSSE(t *testing.T, body string) []string {
	t.Helper()
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			out = append(out, data)
		}
	}
	return out
}

func TestGenerateNonStreaming(t *testing.T) {
	g, _ := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/api/generate", map[string]any{
		"model": "demo", "prompt": "hi", "stream": false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp types.GenerateAPIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Model != "demo" || resp.Response != "hello" || !resp.Done {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if resp.TotalDuration == nil || *resp.TotalDuration < 0 {
		t.Fatalf("total_duration=%v", resp.TotalDuration)
	}
	if resp.EvalCount == nil || *resp.EvalCount != 2 {
		t.Fatalf("eval_count=%v", resp.EvalCount)
	}
}

func TestGenerateDefaultsToStreaming(t *testing.T) {
	g, _ := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/api/generate", map[string]any{"model": "demo", "prompt": "hi"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Fatalf("content-type=%s", ct)
	}
}

func TestGenerateStreamFrames(t *testing.T) {
	g, _ := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/api/generate", map[string]any{"model": "demo", "prompt": "hi", "stream": true})

	frames := parseSSE(t, w.Body.String())
	if len(frames) != 3 {
		t.Fatalf("frames=%d body=%s", len(frames), w.Body.String())
	}
	var text string
	var doneFrames int
	for _, raw := range frames {
		var f types.GenerateAPIResponse
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			t.Fatalf("frame json: %v", err)
		}
		if f.Model != "demo" {
			t.Fatalf("frame model=%q", f.Model)
		}
		text += f.Response
		if f.Done {
			doneFrames++
			if f.EvalCount == nil || *f.EvalCount != 2 {
				t.Fatalf("terminal eval_count=%v", f.EvalCount)
			}
		}
	}
	if text != "hello" {
		t.Fatalf("concatenated=%q", text)
	}
	if doneFrames != 1 {
		t.Fatalf("done frames=%d", doneFrames)
	}
	var last types.GenerateAPIResponse
	_ = json.Unmarshal([]byte(frames[len(frames)-1]), &last)
	if !last.Done {
		t.Fatal("last frame not terminal")
	}
}

func TestGenerateStreamErrorNoTerminal(t *testing.T) {
	g, eng := newTestGateway(t)
	eng.streamFn = func(ctx context.Context, req types.GenerateRequest) (<-chan engine.StreamChunk, error) {
		ch := make(chan engine.StreamChunk, 2)
		ch <- engine.StreamChunk{Resp: types.GenerateResponse{Text: "partial"}}
		ch <- engine.StreamChunk{Err: engine.ErrInferenceFailed(500, "backend blew up", nil)}
		close(ch)
		return ch, nil
	}
	w := postJSON(t, g.NewMux(), "/api/generate", map[string]any{"model": "demo", "prompt": "hi"})

	frames := parseSSE(t, w.Body.String())
	if len(frames) != 1 {
		t.Fatalf("frames=%d", len(frames))
	}
	var f types.GenerateAPIResponse
	_ = json.Unmarshal([]byte(frames[0]), &f)
	if f.Done {
		t.Fatal("terminal frame emitted after stream error")
	}
}

func TestGenerateStreamStartFailure(t *testing.T) {
	g, eng := newTestGateway(t)
	eng.streamFn = func(ctx context.Context, req types.GenerateRequest) (<-chan engine.StreamChunk, error) {
		return nil, engine.ErrInferenceFailed(0, "", errors.New("connection refused"))
	}
	w := postJSON(t, g.NewMux(), "/api/generate", map[string]any{"model": "demo", "prompt": "hi"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	var e types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Error == "" {
		t.Fatalf("error body=%s", w.Body.String())
	}
}

func TestGenerateUnknownModel(t *testing.T) {
	g, _ := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/api/generate", map[string]any{"model": "missing", "prompt": "hi", "stream": false})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	var e types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(e.Error, "missing") {
		t.Fatalf("error=%q", e.Error)
	}
}

func TestGenerateMissingModelField(t *testing.T) {
	g, _ := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/api/generate", map[string]any{"prompt": "hi"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerateBackendUnreachable(t *testing.T) {
	g, eng := newTestGateway(t)
	eng.generateFn = func(req types.GenerateRequest) (types.GenerateResponse, error) {
		return types.GenerateResponse{}, engine.ErrInferenceFailed(0, "", errors.New("dial tcp: connection refused"))
	}
	w := postJSON(t, g.NewMux(), "/api/generate", map[string]any{"model": "demo", "prompt": "hi", "stream": false})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestModelLoadedOncePerName(t *testing.T) {
	g, eng := newTestGateway(t)
	mux := g.NewMux()
	for i := 0; i < 3; i++ {
		w := postJSON(t, mux, "/api/generate", map[string]any{"model": "demo", "prompt": "hi", "stream": false})
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d", w.Code)
		}
	}
	if eng.loads != 1 {
		t.Fatalf("loads=%d", eng.loads)
	}
	// Backend model id, not the gateway name, goes over the wire.
	if eng.lastModel != "demo" {
		t.Fatalf("backend model=%q", eng.lastModel)
	}
}

func TestEngineAccessSerialized(t *testing.T) {
	g, eng := newTestGateway(t)
	eng.generateFn = func(req types.GenerateRequest) (types.GenerateResponse, error) {
		time.Sleep(30 * time.Millisecond)
		return types.GenerateResponse{Text: "ok", Finished: true}, nil
	}
	srv := httptest.NewServer(g.NewMux())
	defer srv.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := strings.NewReader(`{"model":"demo","prompt":"hi","stream":false}`)
			resp, err := http.Post(srv.URL+"/api/generate", "application/json", body)
			if err != nil {
				t.Error(err)
				return
			}
			resp.Body.Close()
		}()
	}
	wg.Wait()

	if max := eng.maxInflight.Load(); max != 1 {
		t.Fatalf("max inflight=%d", max)
	}
}

func TestChatUsesSimpleTemplate(t *testing.T) {
	g, eng := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/api/chat", map[string]any{
		"model":  "demo",
		"stream": false,
		"messages": []map[string]string{
			{"role": "system", "content": "Be brief."},
			{"role": "user", "content": "Hi"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if want := "System: Be brief.\n\nUser: Hi"; eng.lastPrompt != want {
		t.Fatalf("prompt=%q", eng.lastPrompt)
	}
	var resp types.ChatAPIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Message.Role != types.RoleAssistant || resp.Message.Content != "hello" || !resp.Done {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestChatUsesLlamaTemplate(t *testing.T) {
	g, eng := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/api/chat", map[string]any{
		"model":    "llama-chat",
		"stream":   false,
		"messages": []map[string]string{{"role": "user", "content": "Hi"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(eng.lastPrompt, "<|begin_of_text|>") {
		t.Fatalf("prompt=%q", eng.lastPrompt)
	}
}

func TestChatStreamFrames(t *testing.T) {
	g, _ := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/api/chat", map[string]any{
		"model":    "demo",
		"messages": []map[string]string{{"role": "user", "content": "Hi"}},
	})
	frames := parseSSE(t, w.Body.String())
	if len(frames) != 3 {
		t.Fatalf("frames=%d", len(frames))
	}
	var last types.ChatAPIResponse
	if err := json.Unmarshal([]byte(frames[2]), &last); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !last.Done || last.Message.Content != "" {
		t.Fatalf("terminal frame: %+v", last)
	}
}

func TestOpenAIChatNonStreaming(t *testing.T) {
	g, _ := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/v1/chat/completions", map[string]any{
		"model":    "demo",
		"messages": []map[string]string{{"role": "user", "content": "Hi"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp types.OpenAIChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "chatcmpl-") {
		t.Fatalf("id=%q", resp.ID)
	}
	if resp.Object != "chat.completion" || resp.Created == 0 {
		t.Fatalf("envelope: %+v", resp)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].FinishReason != "stop" {
		t.Fatalf("choices: %+v", resp.Choices)
	}
	if resp.Choices[0].Message.Content != "hello" {
		t.Fatalf("content=%q", resp.Choices[0].Message.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 5 {
		t.Fatalf("usage=%+v", resp.Usage)
	}
}

func TestOpenAIChatStreaming(t *testing.T) {
	g, _ := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/v1/chat/completions", map[string]any{
		"model":    "demo",
		"stream":   true,
		"messages": []map[string]string{{"role": "user", "content": "Hi"}},
	})
	frames := parseSSE(t, w.Body.String())
	if len(frames) != 3 {
		t.Fatalf("frames=%d body=%s", len(frames), w.Body.String())
	}
	if strings.Contains(w.Body.String(), "[DONE]") {
		t.Fatal("unexpected [DONE] sentinel")
	}
	for i, raw := range frames {
		var f types.OpenAIChatChunk
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			t.Fatalf("frame json: %v", err)
		}
		terminal := i == len(frames)-1
		if terminal && (f.Choices[0].FinishReason == nil || *f.Choices[0].FinishReason != "stop") {
			t.Fatalf("terminal finish_reason=%v", f.Choices[0].FinishReason)
		}
		if !terminal && f.Choices[0].FinishReason != nil {
			t.Fatalf("frame %d has finish_reason", i)
		}
	}
}

func TestChatRejectsMessageWithoutRole(t *testing.T) {
	g, eng := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/api/chat", map[string]any{
		"model":    "demo",
		"messages": []map[string]string{{"content": "hi"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var e types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(e.Error, "role is required") {
		t.Fatalf("error=%q", e.Error)
	}
	if eng.lastPrompt != "" {
		t.Fatalf("engine reached with prompt %q", eng.lastPrompt)
	}
}

func TestOpenAIChatRejectsMessageWithoutRole(t *testing.T) {
	g, _ := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/v1/chat/completions", map[string]any{
		"model":    "demo",
		"messages": []map[string]string{{"role": "user", "content": "hi"}, {"content": "again"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var e types.OpenAIErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(e.Error.Message, "messages[1]") || e.Error.Type != "invalid_request_error" {
		t.Fatalf("error body: %+v", e)
	}
}

func TestOpenAIErrorShape(t *testing.T) {
	g, _ := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/v1/chat/completions", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "Hi"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	var e types.OpenAIErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("json: %v", err)
	}
	if e.Error.Message == "" || e.Error.Type != "invalid_request_error" {
		t.Fatalf("error body: %+v", e)
	}
}

func TestTags(t *testing.T) {
	g, _ := newTestGateway(t)
	w := httptest.NewRecorder()
	g.NewMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tags", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp types.TagsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Models) != 2 {
		t.Fatalf("models=%d", len(resp.Models))
	}
	for _, m := range resp.Models {
		if m.Digest != nameDigest(m.Name) {
			t.Fatalf("digest mismatch for %q", m.Name)
		}
		if m.Size == 0 {
			t.Fatalf("size missing for %q", m.Name)
		}
	}
}

func TestPsListsLoadedModels(t *testing.T) {
	g, _ := newTestGateway(t)
	mux := g.NewMux()

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ps", nil))
	var resp types.PsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Models) != 0 {
		t.Fatalf("preload models=%d", len(resp.Models))
	}

	postJSON(t, mux, "/api/generate", map[string]any{"model": "llama-chat", "prompt": "hi", "stream": false})

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ps", nil))
	resp = types.PsResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Models) != 1 || resp.Models[0].Name != "llama-chat" {
		t.Fatalf("models: %+v", resp.Models)
	}
	if resp.Models[0].Details.Family != "llama" {
		t.Fatalf("family=%q", resp.Models[0].Details.Family)
	}
}

func TestPullStream(t *testing.T) {
	g, eng := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/api/pull", map[string]any{"model": "demo"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	frames := parseSSE(t, w.Body.String())
	if len(frames) < 2 {
		t.Fatalf("frames=%d", len(frames))
	}
	var last types.PullAPIResponse
	if err := json.Unmarshal([]byte(frames[len(frames)-1]), &last); err != nil {
		t.Fatalf("json: %v", err)
	}
	if last.Status != "success" {
		t.Fatalf("status=%q", last.Status)
	}
	if eng.loads != 1 {
		t.Fatalf("loads=%d", eng.loads)
	}
}

func TestPullAlreadyLoaded(t *testing.T) {
	g, eng := newTestGateway(t)
	mux := g.NewMux()
	postJSON(t, mux, "/api/generate", map[string]any{"model": "demo", "prompt": "hi", "stream": false})

	w := postJSON(t, mux, "/api/pull", map[string]any{"name": "demo"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp types.PullAPIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Status != "success" {
		t.Fatalf("status=%q", resp.Status)
	}
	if eng.loads != 1 {
		t.Fatalf("loads=%d", eng.loads)
	}
}

func TestPullUnknownModel(t *testing.T) {
	g, _ := newTestGateway(t)
	w := postJSON(t, g.NewMux(), "/api/pull", map[string]any{"model": "missing"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestVersion(t *testing.T) {
	g, _ := newTestGateway(t)
	w := httptest.NewRecorder()
	g.NewMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp types.VersionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Version != "0.3.0" {
		t.Fatalf("version=%q", resp.Version)
	}
}

func TestHealth(t *testing.T) {
	g, _ := newTestGateway(t)
	w := httptest.NewRecorder()
	g.NewMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	g, _ := newTestGateway(t)
	mux := g.NewMux()
	postJSON(t, mux, "/api/generate", map[string]any{"model": "demo", "prompt": "hi", "stream": false})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "llmgated_http_requests_total") {
		t.Fatal("request counter missing from /metrics")
	}
}
