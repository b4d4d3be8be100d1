package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"llmgated/pkg/types"
)

// buildRequest translates dialect-level options into a canonical request.
func (g *Gateway) buildRequest(model, prompt string, opts *types.GenerateOptionsAPI, stream bool) types.GenerateRequest {
	genOpts := types.DefaultGenerateOptions()
	genOpts.Stream = stream
	if opts != nil {
		if opts.Temperature != nil {
			genOpts.Sampling.Temperature = *opts.Temperature
		}
		if opts.TopP != nil {
			genOpts.Sampling.TopP = *opts.TopP
		}
		if opts.TopK != nil {
			genOpts.Sampling.TopK = *opts.TopK
		}
		if opts.MaxTokens != nil {
			genOpts.Sampling.MaxTokens = *opts.MaxTokens
		}
		if len(opts.Stop) > 0 {
			genOpts.Sampling.StopSequences = opts.Stop
		}
	}
	return types.GenerateRequest{
		ID:      g.nextRequestID(),
		Model:   model,
		Prompt:  prompt,
		Options: genOpts,
	}
}

// generateOnce runs one non-streaming generation under the engine mutex.
func (g *Gateway) generateOnce(ctx context.Context, name string, genReq types.GenerateRequest) (types.GenerateResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	handle, err := g.resolveHandle(ctx, name)
	if err != nil {
		return types.GenerateResponse{}, err
	}
	id, err := g.backendModelID(handle, name)
	if err != nil {
		return types.GenerateResponse{}, err
	}
	genReq.Model = id
	resp, err := g.engine.Generate(ctx, genReq)
	if err != nil {
		return types.GenerateResponse{}, err
	}
	countTokens(resp.Stats.PromptTokens, resp.Stats.GeneratedTokens)
	return resp, nil
}

// streamGenerate drives one dialect stream end to end. The engine mutex is
// held for the whole drive; SSE headers go out only after the backend stream
// is known to have started, so failures before the first token still get a
// proper dialect error body.
func (g *Gateway) streamGenerate(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	genReq types.GenerateRequest,
	shaper frameShaper,
	dialect string,
	writeErr func(http.ResponseWriter, int, string),
) {
	ctx := r.Context()

	g.mu.Lock()
	defer g.mu.Unlock()

	handle, err := g.resolveHandle(ctx, name)
	if err != nil {
		writeErr(w, statusForError(err), err.Error())
		return
	}
	id, err := g.backendModelID(handle, name)
	if err != nil {
		writeErr(w, statusForError(err), err.Error())
		return
	}
	genReq.Model = id

	ch, err := g.engine.GenerateStream(ctx, genReq)
	if err != nil {
		writeErr(w, statusForError(err), err.Error())
		return
	}

	sseHeaders(w)
	tr := newStreamTranslator(shaper)
	for chunk := range ch {
		if chunk.Err != nil {
			// Mid-stream failure: stop without a terminal frame so the
			// client never sees a fake completion.
			g.log.Error().Err(chunk.Err).Str("dialect", dialect).Msg("stream aborted")
			tr.Abort()
			return
		}
		frame := tr.Feed(chunk.Resp)
		if frame == nil {
			continue
		}
		if err := writeSSEData(w, frame); err != nil {
			tr.Abort()
			return
		}
		countStreamChunk(dialect)
		if ctx.Err() != nil {
			tr.Abort()
			return
		}
	}
	if frame := tr.Finish(); frame != nil {
		if err := writeSSEData(w, frame); err == nil {
			countStreamChunk(dialect)
		}
	}
}

// handleGenerate godoc
// @Summary Text completion (Ollama dialect)
// @Tags inference
// @Accept json
// @Produce json
// @Param request body types.GenerateAPIRequest true "generation request"
// @Success 200 {object} types.GenerateAPIResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /api/generate [post]
func (g *Gateway) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOllamaError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Model == "" {
		writeOllamaError(w, http.StatusBadRequest, "model is required")
		return
	}

	// Ollama dialect streams unless told otherwise.
	stream := true
	if req.Stream != nil {
		stream = *req.Stream
	}
	genReq := g.buildRequest(req.Model, req.Prompt, req.Options, stream)

	if stream {
		g.streamGenerate(w, r, req.Model, genReq, generateFrames{model: req.Model}, "generate", writeOllamaError)
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
	writeJSON(w, http.StatusOK, types.GenerateAPIResponse{
		Model:         req.Model,
		Response:      resp.Text,
		Done:          true,
		TotalDuration: &duration,
		EvalCount:     &evalCount,
	})
}
