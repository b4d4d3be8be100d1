// Package engine defines the uniform client contract every inference backend
// is adapted to, plus the orchestrator that picks one client by capability.
package engine

import (
	"context"

	"llmgated/internal/hardware"
	"llmgated/pkg/types"
)

// Type names a backend engine implementation.
type Type string

const (
	TypeVLLMOpenAI Type = "vllm-openai"
	TypeVLLM       Type = "vllm"
	TypeMAX        Type = "max"
	TypeLlamaCpp   Type = "llamacpp"
)

// Capabilities is the static per-engine descriptor used for selection only.
type Capabilities struct {
	ContinuousBatching  bool     `json:"continuous_batching"`
	FlashAttention      bool     `json:"flash_attention"`
	PagedAttention      bool     `json:"paged_attention"`
	SpeculativeDecoding bool     `json:"speculative_decoding"`
	Quantization        []string `json:"quantization"`
	MaxBatchSize        int      `json:"max_batch_size"`
	MaxSequenceLength   int      `json:"max_sequence_length"`
}

// ModelHandle is an opaque token referencing a loaded model inside one
// client's private map. Handles are only meaningful to the client that
// minted them and are invalidated by unload or a backend restart.
type ModelHandle uint64

// StreamChunk is one element of a generation stream. Err, when set, is the
// last element delivered before the channel closes; the stream then ended
// without completing.
type StreamChunk struct {
	Resp types.GenerateResponse
	Err  error
}

// Client is the uniform engine contract. Implementations are not required to
// be safe for concurrent use; the gateway serializes all access behind one
// mutex.
type Client interface {
	Type() Type
	Capabilities() Capabilities
	SupportsHardware(hw hardware.Hardware) bool

	// LoadModel loads the model at path and mints a handle for it.
	LoadModel(ctx context.Context, path string) (ModelHandle, error)
	// UnloadModel releases the handle's model. The local mapping is removed
	// only after the backend confirms.
	UnloadModel(ctx context.Context, handle ModelHandle) error
	// Generate performs one non-streaming generation.
	Generate(ctx context.Context, req types.GenerateRequest) (types.GenerateResponse, error)
	// GenerateStream starts a streaming generation. The returned channel is
	// closed when the backend stream ends; a read error arrives as a final
	// chunk with Err set.
	GenerateStream(ctx context.Context, req types.GenerateRequest) (<-chan StreamChunk, error)
	// HealthCheck reports backend availability. It never fails: transport
	// and parse errors degrade to false.
	HealthCheck(ctx context.Context) bool
	// ModelID resolves a handle to the backend-reported model id. Pure local
	// lookup, no I/O.
	ModelID(handle ModelHandle) (string, bool)
}
