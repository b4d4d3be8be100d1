package engine

import (
	"github.com/rs/zerolog"

	"llmgated/internal/hardware"
)

// VLLM speaks the native REST dialect of a vLLM sidecar. Its health endpoint
// reports availability under "vllm_available".
type VLLM struct {
	*restClient
}

// NewVLLM builds a vLLM client rooted at baseURL.
func NewVLLM(baseURL string, log zerolog.Logger) *VLLM {
	return &VLLM{restClient: newRESTClient(baseURL, "vllm", "vllm_available", log)}
}

func (e *VLLM) Type() Type { return TypeVLLM }

func (e *VLLM) Capabilities() Capabilities {
	return Capabilities{
		ContinuousBatching:  true,
		FlashAttention:      true,
		PagedAttention:      true,
		SpeculativeDecoding: true,
		Quantization:        []string{"awq", "gptq", "squeezellm", "gguf"},
		MaxBatchSize:        256,
		MaxSequenceLength:   32768,
	}
}

// SupportsHardware accepts a GPU, or a CPU with at least 4 cores.
func (e *VLLM) SupportsHardware(hw hardware.Hardware) bool {
	return hw.HasGPU() || hw.CPUCores >= 4
}
