// Package hardware provides the static hardware descriptor the engine
// orchestrator selects against. Detection is intentionally shallow; callers
// that know better can construct the descriptor themselves.
package hardware

import (
	"bufio"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Type classifies the primary compute device.
type Type string

const (
	TypeCPU          Type = "cpu"
	TypeNvidiaGPU    Type = "nvidia_gpu"
	TypeAMDGPU       Type = "amd_gpu"
	TypeAppleSilicon Type = "apple_silicon"
)

// GPUInfo describes a detected GPU.
type GPUInfo struct {
	Name            string `json:"name"`
	VRAMTotalMB     uint64 `json:"vram_total_mb"`
	VRAMAvailableMB uint64 `json:"vram_available_mb"`
}

// Hardware is the opaque descriptor consumed by engine selection. It is
// detected (or constructed) once at startup and never mutated.
type Hardware struct {
	Type           Type     `json:"type"`
	CPUCores       int      `json:"cpu_cores"`
	RAMTotalMB     uint64   `json:"ram_total_mb"`
	RAMAvailableMB uint64   `json:"ram_available_mb"`
	GPU            *GPUInfo `json:"gpu,omitempty"`
}

// HasGPU reports whether any GPU was detected.
func (h Hardware) HasGPU() bool {
	return h.GPU != nil || h.Type == TypeNvidiaGPU || h.Type == TypeAMDGPU || h.Type == TypeAppleSilicon
}

// Detect builds a best-effort descriptor for the current host.
func Detect() Hardware {
	hw := Hardware{Type: TypeCPU, CPUCores: runtime.NumCPU()}
	hw.RAMTotalMB, hw.RAMAvailableMB = readMemInfo()

	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		hw.Type = TypeAppleSilicon
		return hw
	}
	if _, err := exec.LookPath("nvidia-smi"); err == nil {
		hw.Type = TypeNvidiaGPU
		hw.GPU = &GPUInfo{Name: "nvidia"}
	}
	return hw
}

// readMemInfo parses /proc/meminfo on Linux; elsewhere it returns zeros,
// which selection treats as unknown.
func readMemInfo() (totalMB, availableMB uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalMB = kb / 1024
		case "MemAvailable:":
			availableMB = kb / 1024
		}
	}
	return totalMB, availableMB
}
