package gateway

import (
	"llmgated/pkg/types"
)

// streamState tracks where a dialect stream is in its lifecycle. Every stream
// moves streaming -> finishing -> done; the terminal frame is emitted exactly
// once, on the streaming -> finishing edge. An aborted stream jumps straight
// to done and never emits a terminal frame.
type streamState int

const (
	stateStreaming streamState = iota
	stateFinishing
	stateDone
)

// frameShaper renders canonical responses into one dialect's wire frames.
type frameShaper interface {
	// chunk shapes one intermediate frame.
	chunk(resp types.GenerateResponse) any
	// terminal shapes the final frame; chunks is how many intermediate
	// frames preceded it.
	terminal(chunks int) any
}

// streamTranslator drives one dialect stream over a backend token stream.
type streamTranslator struct {
	shaper frameShaper
	state  streamState
	chunks int
}

func newStreamTranslator(shaper frameShaper) *streamTranslator {
	return &streamTranslator{shaper: shaper, state: stateStreaming}
}

// Feed shapes one backend chunk. It returns nil once the stream has left the
// streaming state; late chunks are dropped, never reframed.
func (t *streamTranslator) Feed(resp types.GenerateResponse) any {
	if t.state != stateStreaming {
		return nil
	}
	t.chunks++
	return t.shaper.chunk(resp)
}

// Finish emits the terminal frame. Only the first call returns a frame.
func (t *streamTranslator) Finish() any {
	if t.state != stateStreaming {
		return nil
	}
	t.state = stateFinishing
	frame := t.shaper.terminal(t.chunks)
	t.state = stateDone
	return frame
}

// Abort ends the stream without a terminal frame.
func (t *streamTranslator) Abort() {
	t.state = stateDone
}

// Done reports whether the stream can accept more frames.
func (t *streamTranslator) Done() bool {
	return t.state == stateDone
}

// generateFrames shapes /api/generate stream frames.
type generateFrames struct {
	model string
}

func (s generateFrames) chunk(resp types.GenerateResponse) any {
	return types.GenerateAPIResponse{
		Model:    s.model,
		Response: resp.Text,
		Done:     false,
	}
}

func (s generateFrames) terminal(chunks int) any {
	return types.GenerateAPIResponse{
		Model:     s.model,
		Response:  "",
		Done:      true,
		EvalCount: &chunks,
	}
}

// chatFrames shapes /api/chat stream frames.
type chatFrames struct {
	model string
}

func (s chatFrames) chunk(resp types.GenerateResponse) any {
	return types.ChatAPIResponse{
		Model:   s.model,
		Message: types.AssistantMessage(resp.Text),
		Done:    false,
	}
}

func (s chatFrames) terminal(chunks int) any {
	return types.ChatAPIResponse{
		Model:     s.model,
		Message:   types.AssistantMessage(""),
		Done:      true,
		EvalCount: &chunks,
	}
}

// openAIFrames shapes /v1/chat/completions stream frames. The finish reason
// is null on every frame except the terminal one.
type openAIFrames struct {
	id      string
	created int64
	model   string
}

func (s openAIFrames) chunk(resp types.GenerateResponse) any {
	return types.OpenAIChatChunk{
		ID:      s.id,
		Object:  "chat.completion.chunk",
		Created: s.created,
		Model:   s.model,
		Choices: []types.OpenAIChunkChoice{{
			Index: 0,
			Delta: types.OpenAIDelta{Content: resp.Text},
		}},
	}
}

func (s openAIFrames) terminal(chunks int) any {
	stop := "stop"
	return types.OpenAIChatChunk{
		ID:      s.id,
		Object:  "chat.completion.chunk",
		Created: s.created,
		Model:   s.model,
		Choices: []types.OpenAIChunkChoice{{
			Index:        0,
			Delta:        types.OpenAIDelta{},
			FinishReason: &stop,
		}},
	}
}
