package engine

import (
	"github.com/rs/zerolog"

	"llmgated/internal/hardware"
)

// preferenceOrder ranks engine types for selection, best first.
var preferenceOrder = []Type{TypeVLLMOpenAI, TypeVLLM, TypeMAX, TypeLlamaCpp}

// Orchestrator holds the registered engine clients and picks one by hardware
// compatibility. Registration order does not matter; selection follows the
// fixed preference order.
type Orchestrator struct {
	engines []Client
	log     zerolog.Logger
}

// NewOrchestrator builds an orchestrator over the given clients.
func NewOrchestrator(log zerolog.Logger, engines ...Client) *Orchestrator {
	return &Orchestrator{engines: engines, log: log}
}

// Initialize drops every engine incompatible with hw. It fails only when
// nothing is left.
func (o *Orchestrator) Initialize(hw hardware.Hardware) error {
	retained := make([]Client, 0, len(o.engines))
	for _, eng := range o.engines {
		if !eng.SupportsHardware(hw) {
			o.log.Debug().Str("engine", string(eng.Type())).Str("hardware", string(hw.Type)).Msg("engine incompatible with hardware")
			continue
		}
		retained = append(retained, eng)
	}
	if len(retained) == 0 {
		return ErrHardwareUnsupported(string(hw.Type))
	}

	o.engines = retained
	for _, eng := range o.engines {
		o.log.Info().Str("engine", string(eng.Type())).Msg("engine available")
	}
	return nil
}

// SelectEngine returns the best retained engine: the first match in preference
// order, or the first retained engine when none of the preferred types made
// the cut.
func (o *Orchestrator) SelectEngine() (Client, error) {
	if len(o.engines) == 0 {
		return nil, ErrEngineNotAvailable("no engines registered")
	}
	for _, t := range preferenceOrder {
		for _, eng := range o.engines {
			if eng.Type() == t {
				return eng, nil
			}
		}
	}
	return o.engines[0], nil
}

// AvailableEngines lists the retained engine types.
func (o *Orchestrator) AvailableEngines() []Type {
	out := make([]Type, 0, len(o.engines))
	for _, eng := range o.engines {
		out = append(out, eng.Type())
	}
	return out
}
