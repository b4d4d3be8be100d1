package engine

import (
	"github.com/rs/zerolog"

	"llmgated/internal/hardware"
)

// LlamaCpp speaks the native REST dialect of a llama.cpp sidecar. Its health
// endpoint reports availability under "available". It runs on anything, so it
// is the fallback of last resort.
type LlamaCpp struct {
	*restClient
}

// NewLlamaCpp builds a llama.cpp client rooted at baseURL.
func NewLlamaCpp(baseURL string, log zerolog.Logger) *LlamaCpp {
	return &LlamaCpp{restClient: newRESTClient(baseURL, "llamacpp", "available", log)}
}

func (e *LlamaCpp) Type() Type { return TypeLlamaCpp }

func (e *LlamaCpp) Capabilities() Capabilities {
	return Capabilities{
		ContinuousBatching:  false,
		FlashAttention:      false,
		PagedAttention:      false,
		SpeculativeDecoding: false,
		Quantization:        []string{"q4_0", "q4_1", "q5_0", "q5_1", "q8_0"},
		MaxBatchSize:        512,
		MaxSequenceLength:   4096,
	}
}

// SupportsHardware always succeeds; llama.cpp runs on any host.
func (e *LlamaCpp) SupportsHardware(hw hardware.Hardware) bool { return true }
