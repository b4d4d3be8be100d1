// Package gateway exposes the inference engine over three inbound dialects:
// Ollama generate, Ollama chat, and OpenAI chat completions.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"llmgated/internal/engine"
	"llmgated/internal/models"
	"llmgated/pkg/types"
)

// Gateway owns the selected engine and the name -> handle cache. The engine
// contract is not concurrency-safe, so every engine call (including a whole
// stream drive) happens under mu: at most one request is in flight against
// the backend at any time.
type Gateway struct {
	mu       sync.Mutex
	engine   engine.Client
	loaded   sync.Map // model name -> engine.ModelHandle
	resolver models.Resolver
	log      zerolog.Logger
	version  string
	reqID    atomic.Uint64
}

// New builds a gateway over the selected engine.
func New(eng engine.Client, resolver models.Resolver, version string, log zerolog.Logger) *Gateway {
	return &Gateway{
		engine:   eng,
		resolver: resolver,
		log:      log,
		version:  version,
	}
}

func (g *Gateway) nextRequestID() types.RequestID {
	return types.RequestID(g.reqID.Add(1))
}

// resolveHandle returns the handle for a model name, loading the model on
// first use. Caller must hold g.mu.
func (g *Gateway) resolveHandle(ctx context.Context, name string) (engine.ModelHandle, error) {
	if v, ok := g.loaded.Load(name); ok {
		return v.(engine.ModelHandle), nil
	}
	m, err := g.resolver.Resolve(name)
	if err != nil {
		return 0, err
	}
	handle, err := g.engine.LoadModel(ctx, m.Path)
	if err != nil {
		return 0, err
	}
	g.loaded.Store(name, handle)
	return handle, nil
}

// backendModelID maps a handle back to the id the backend knows the model by.
// A miss here means the handle map and the engine disagree, which only
// happens after a backend restart invalidated the engine's state.
func (g *Gateway) backendModelID(handle engine.ModelHandle, name string) (string, error) {
	id, ok := g.engine.ModelID(handle)
	if !ok {
		return "", engine.ErrModelNotFound(name)
	}
	return id, nil
}

// requestLogger tags each request with an id and logs its outcome.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			if reqID == "" {
				reqID = uuid.NewString()
			}
			sr := &statusRecorder{ResponseWriter: w, status: 200}
			start := time.Now()
			next.ServeHTTP(sr, r)
			log.Info().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sr.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// NewMux wires the full route table with the standard middleware stack.
func (g *Gateway) NewMux() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(g.log))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Post("/api/generate", g.handleGenerate)
	r.Post("/api/chat", g.handleChat)
	r.Post("/api/pull", g.handlePull)
	r.Post("/v1/chat/completions", g.handleOpenAIChat)

	r.Get("/api/tags", g.handleTags)
	r.Get("/api/ps", g.handlePs)
	r.Get("/api/version", g.handleVersion)
	r.Get("/health", g.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	MountSwagger(r)
	return r
}

// handleHealth godoc
// @Summary Liveness probe
// @Tags ops
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleVersion godoc
// @Summary Gateway version
// @Tags ops
// @Produce json
// @Success 200 {object} types.VersionResponse
// @Router /api/version [get]
func (g *Gateway) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.VersionResponse{Version: g.version})
}
