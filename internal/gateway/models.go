package gateway

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	"llmgated/internal/models"
	"llmgated/pkg/types"
)

// nameDigest produces the stable pseudo-digest shown for a model name.
func nameDigest(name string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return fmt.Sprintf("%x", h.Sum64())
}

func familyFor(name string) string {
	if strings.Contains(strings.ToLower(name), "llama") {
		return "llama"
	}
	return "unknown"
}

// handleTags godoc
// @Summary List known models
// @Tags models
// @Produce json
// @Success 200 {object} types.TagsResponse
// @Router /api/tags [get]
func (g *Gateway) handleTags(w http.ResponseWriter, r *http.Request) {
	out := types.TagsResponse{Models: []types.ModelInfo{}}
	seen := map[string]bool{}

	all, err := g.resolver.List()
	if err != nil {
		g.log.Warn().Err(err).Msg("model listing failed")
	}
	for _, m := range all {
		seen[m.Name] = true
		out.Models = append(out.Models, types.ModelInfo{
			Name:   m.Name,
			Size:   m.Size,
			Digest: nameDigest(m.Name),
		})
	}

	// Loaded models the resolver no longer sees still count.
	g.loaded.Range(func(key, _ any) bool {
		name := key.(string)
		if !seen[name] {
			out.Models = append(out.Models, types.ModelInfo{
				Name:   name,
				Digest: nameDigest(name),
			})
		}
		return true
	})

	writeJSON(w, http.StatusOK, out)
}

// handlePs godoc
// @Summary List loaded models
// @Tags models
// @Produce json
// @Success 200 {object} types.PsResponse
// @Router /api/ps [get]
func (g *Gateway) handlePs(w http.ResponseWriter, r *http.Request) {
	out := types.PsResponse{Models: []types.ProcessInfo{}}
	g.loaded.Range(func(key, _ any) bool {
		name := key.(string)
		info := types.ProcessInfo{
			Name:   name,
			Model:  name,
			Digest: nameDigest(name),
			Details: types.ModelDetails{
				Format:            "gguf",
				Family:            familyFor(name),
				ParameterSize:     "unknown",
				QuantizationLevel: "unknown",
			},
		}
		if m, err := g.resolver.Resolve(name); err == nil {
			info.Size = m.Size
		}
		out.Models = append(out.Models, info)
		return true
	})
	writeJSON(w, http.StatusOK, out)
}

// handlePull godoc
// @Summary Fetch and load a model
// @Tags models
// @Accept json
// @Produce json
// @Param request body types.PullAPIRequest true "pull request"
// @Success 200 {object} types.PullAPIResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /api/pull [post]
func (g *Gateway) handlePull(w http.ResponseWriter, r *http.Request) {
	var req types.PullAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOllamaError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	name := req.Model
	if name == "" {
		name = req.Name
	}
	if name == "" {
		writeOllamaError(w, http.StatusBadRequest, "model is required")
		return
	}

	success := types.PullAPIResponse{Status: "success"}

	// Already loaded: nothing to do, streaming or not.
	if _, ok := g.loaded.Load(name); ok {
		writeJSON(w, http.StatusOK, success)
		return
	}

	stream := true
	if req.Stream != nil {
		stream = *req.Stream
	}

	if !stream {
		if _, err := g.resolver.Fetch(r.Context(), name, nil); err != nil {
			writeOllamaError(w, statusForError(err), err.Error())
			return
		}
		if err := g.loadByName(r, name); err != nil {
			writeOllamaError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, success)
		return
	}

	// Probe before committing to SSE so a missing model still gets a JSON 404.
	if _, err := g.resolver.Resolve(name); err != nil && models.IsNotFound(err) {
		writeOllamaError(w, statusForError(err), err.Error())
		return
	}

	sseHeaders(w)
	_, err := g.resolver.Fetch(r.Context(), name, func(status string, completed, total int64) {
		frame := types.PullAPIResponse{Status: status}
		if total > 0 {
			frame.Total = &total
		}
		if completed > 0 {
			frame.Completed = &completed
		}
		if writeErr := writeSSEData(w, frame); writeErr == nil {
			countStreamChunk("pull")
		}
	})
	if err != nil {
		_ = writeSSEData(w, types.PullAPIResponse{Status: "error: " + err.Error()})
		return
	}
	if err := g.loadByName(r, name); err != nil {
		_ = writeSSEData(w, types.PullAPIResponse{Status: "error: " + err.Error()})
		return
	}
	if writeErr := writeSSEData(w, success); writeErr == nil {
		countStreamChunk("pull")
	}
}

// loadByName loads a fetched model into the engine under the engine mutex.
func (g *Gateway) loadByName(r *http.Request, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, err := g.resolveHandle(r.Context(), name)
	return err
}
