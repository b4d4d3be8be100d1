package engine

import (
	"github.com/rs/zerolog"

	"llmgated/internal/hardware"
)

// MAX speaks the native REST dialect of a Modular MAX sidecar. Its health
// endpoint reports availability under "max_available".
type MAX struct {
	*restClient
}

// NewMAX builds a MAX client rooted at baseURL.
func NewMAX(baseURL string, log zerolog.Logger) *MAX {
	return &MAX{restClient: newRESTClient(baseURL, "max", "max_available", log)}
}

func (e *MAX) Type() Type { return TypeMAX }

func (e *MAX) Capabilities() Capabilities {
	return Capabilities{
		ContinuousBatching:  true,
		FlashAttention:      true,
		PagedAttention:      false,
		SpeculativeDecoding: false,
		Quantization:        []string{"int8", "int4"},
		MaxBatchSize:        128,
		MaxSequenceLength:   16384,
	}
}

// SupportsHardware accepts a GPU, or a CPU with at least 4 cores.
func (e *MAX) SupportsHardware(hw hardware.Hardware) bool {
	return hw.HasGPU() || hw.CPUCores >= 4
}
