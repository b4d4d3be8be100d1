// Package supervisor spawns and tears down the out-of-process inference
// backend. The backend is placed in its own process group so teardown can
// reach workers the entrypoint forked.
package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Tuning carries the backend performance knobs that become command-line flags.
type Tuning struct {
	MaxNumSeqs           int
	MaxBatchedTokens     int
	MaxModelLen          int
	GPUMemoryUtilization float64
	ChunkedPrefill       bool
	PrefixCaching        bool
}

// DefaultTuning returns the flag values used when the operator sets nothing.
func DefaultTuning() Tuning {
	return Tuning{
		MaxNumSeqs:           256,
		MaxBatchedTokens:     16384,
		MaxModelLen:          4096,
		GPUMemoryUtilization: 0.9,
		ChunkedPrefill:       true,
		PrefixCaching:        true,
	}
}

// Config describes one backend launch.
type Config struct {
	// Command is the executable and leading args. Empty means the stock
	// vLLM OpenAI entrypoint.
	Command []string
	Model   string
	Host    string
	Port    int
	// LogPath receives the backend's combined stdout and stderr. Empty
	// discards output.
	LogPath string
	Tuning  Tuning

	// HealthInterval and HealthAttempts gate AwaitHealthy. Zero values take
	// the defaults (1s, 60 attempts).
	HealthInterval time.Duration
	HealthAttempts int
}

func defaultCommand() []string {
	return []string{"python", "-m", "vllm.entrypoints.openai.api_server"}
}

// BuildArgs produces the full deterministic argv for cfg.
func BuildArgs(cfg Config) []string {
	cmd := cfg.Command
	if len(cmd) == 0 {
		cmd = defaultCommand()
	}
	args := append([]string{}, cmd...)
	args = append(args,
		"--model", cfg.Model,
		"--host", cfg.Host,
		"--port", strconv.Itoa(cfg.Port),
		"--max-num-seqs", strconv.Itoa(cfg.Tuning.MaxNumSeqs),
		"--max-num-batched-tokens", strconv.Itoa(cfg.Tuning.MaxBatchedTokens),
		"--max-model-len", strconv.Itoa(cfg.Tuning.MaxModelLen),
		"--gpu-memory-utilization", strconv.FormatFloat(cfg.Tuning.GPUMemoryUtilization, 'f', -1, 64),
	)
	if cfg.Tuning.ChunkedPrefill {
		args = append(args, "--enable-chunked-prefill")
	}
	if cfg.Tuning.PrefixCaching {
		args = append(args, "--enable-prefix-caching")
	}
	return args
}

// Process is one running supervised backend.
type Process struct {
	cmd     *exec.Cmd
	pgid    int
	logSink *lumberjack.Logger
	// waitCh delivers the exit error exactly once; the process has been
	// reaped when it fires.
	waitCh chan error
	log    zerolog.Logger
}

// Pid returns the backend's process id.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Exited returns a channel that fires when the backend exits.
func (p *Process) Exited() <-chan error { return p.waitCh }

// Supervisor launches and terminates backend processes.
type Supervisor struct {
	log        zerolog.Logger
	httpClient *http.Client
}

// New builds a supervisor.
func New(log zerolog.Logger) *Supervisor {
	return &Supervisor{
		log:        log,
		httpClient: &http.Client{Timeout: 0},
	}
}

// Start launches the backend described by cfg in its own process group and
// returns immediately; readiness is AwaitHealthy's job.
func (s *Supervisor) Start(cfg Config) (*Process, error) {
	argv := BuildArgs(cfg)
	cmd := exec.Command(argv[0], argv[1:]...)

	var sink *lumberjack.Logger
	if cfg.LogPath != "" {
		sink = &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    50,
			MaxBackups: 3,
			Compress:   true,
		}
		cmd.Stdout = sink
		cmd.Stderr = sink
	}

	setSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		if sink != nil {
			sink.Close()
		}
		return nil, fmt.Errorf("start backend: %w", err)
	}

	p := &Process{
		cmd:     cmd,
		pgid:    processGroup(cmd),
		logSink: sink,
		waitCh:  make(chan error, 1),
		log:     s.log,
	}
	go func() {
		p.waitCh <- cmd.Wait()
	}()

	s.log.Info().Int("pid", p.Pid()).Strs("argv", argv).Msg("backend started")
	return p, nil
}

// AwaitHealthy polls GET {baseURL}/health until it answers 2xx, the backend
// exits, the attempts run out, or ctx is done. It reports whether the backend
// became healthy.
func (s *Supervisor) AwaitHealthy(ctx context.Context, p *Process, cfg Config, baseURL string) bool {
	interval := cfg.HealthInterval
	if interval <= 0 {
		interval = 1 * time.Second
	}
	attempts := cfg.HealthAttempts
	if attempts <= 0 {
		attempts = 60
	}
	return s.awaitHealthy(ctx, p, baseURL, interval, attempts)
}

func (s *Supervisor) awaitHealthy(ctx context.Context, p *Process, baseURL string, interval time.Duration, attempts int) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < attempts; i++ {
		if s.probe(ctx, baseURL) {
			s.log.Info().Int("pid", p.Pid()).Str("url", baseURL).Msg("backend healthy")
			return true
		}
		select {
		case err := <-p.waitCh:
			// Put the exit result back for Terminate.
			p.waitCh <- err
			s.log.Error().Int("pid", p.Pid()).AnErr("exit", err).Msg("backend exited before becoming healthy")
			return false
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
	s.log.Error().Int("pid", p.Pid()).Str("url", baseURL).Msg("backend never became healthy")
	return false
}

func (s *Supervisor) probe(ctx context.Context, baseURL string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Terminate asks the backend's whole process group to exit, waits up to two
// seconds, then kills the group. It always reaps the child. Teardown failures
// are logged, never returned: shutdown must not stall on a stuck backend.
func (s *Supervisor) Terminate(p *Process) {
	if p == nil || p.cmd.Process == nil {
		return
	}
	defer func() {
		if p.logSink != nil {
			p.logSink.Close()
		}
	}()

	select {
	case <-p.waitCh:
		s.log.Info().Int("pid", p.Pid()).Msg("backend already exited")
		return
	default:
	}

	if err := interruptGroup(p); err != nil {
		s.log.Warn().Int("pid", p.Pid()).Err(err).Msg("backend interrupt failed")
	}
	select {
	case <-p.waitCh:
		s.log.Info().Int("pid", p.Pid()).Msg("backend exited gracefully")
		return
	case <-time.After(2 * time.Second):
	}

	if err := killGroup(p); err != nil {
		s.log.Warn().Int("pid", p.Pid()).Err(err).Msg("backend kill failed")
	}
	<-p.waitCh
	s.log.Info().Int("pid", p.Pid()).Msg("backend killed")
}

// StartupFailure renders the operator-facing remediation message shown when
// the backend never becomes healthy.
func StartupFailure(cfg Config) string {
	if cfg.LogPath != "" {
		return fmt.Sprintf("backend failed to become healthy on %s:%d; check %s for details", cfg.Host, cfg.Port, cfg.LogPath)
	}
	return fmt.Sprintf("backend failed to become healthy on %s:%d; rerun with a backend log path to capture its output", cfg.Host, cfg.Port)
}
