package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"llmgated/internal/config"
	"llmgated/internal/engine"
	"llmgated/internal/gateway"
	"llmgated/internal/hardware"
	"llmgated/internal/models"
	"llmgated/internal/supervisor"
)

const version = "0.3.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var flagCfg config.Config

	cmd := &cobra.Command{
		Use:           "llmgated",
		Short:         "Inference gateway over a supervised LLM backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{}
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			mergeFlags(cmd, &cfg, &flagCfg)
			cfg.ApplyDefaults()
			return run(cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "config file (.yaml, .json or .toml)")
	f.StringVar(&flagCfg.Addr, "addr", "", "HTTP listen address, e.g. :11434")
	f.StringVar(&flagCfg.Model, "model", "", "model to serve through the spawned backend")
	f.StringVar(&flagCfg.ModelsDir, "models-dir", "", "directory to scan for *.gguf model files")
	f.StringVar(&flagCfg.BackendURL, "backend-url", "", "base URL of an already-running backend")
	f.StringVar(&flagCfg.BackendHost, "backend-host", "", "host for the spawned backend")
	f.IntVar(&flagCfg.BackendPort, "backend-port", 0, "port for the spawned backend")
	f.BoolVar(&flagCfg.NoSpawn, "no-spawn", false, "never spawn a backend, connect only")
	f.StringVar(&flagCfg.BackendLog, "backend-log", "", "file receiving the backend's output")
	f.IntVar(&flagCfg.MaxNumSeqs, "max-num-seqs", 0, "backend max concurrent sequences")
	f.IntVar(&flagCfg.MaxBatchedTokens, "max-batched-tokens", 0, "backend max batched tokens")
	f.IntVar(&flagCfg.MaxModelLen, "max-model-len", 0, "backend max model context length")
	f.Float64Var(&flagCfg.GPUMemoryUtilization, "gpu-memory-utilization", 0, "backend GPU memory fraction")
	f.IntVar(&flagCfg.HealthTimeoutSec, "health-timeout", 0, "seconds to wait for the backend to become healthy")
	f.StringVar(&flagCfg.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	return cmd
}

// mergeFlags overlays explicitly-set flags on top of the config file.
func mergeFlags(cmd *cobra.Command, cfg, flagCfg *config.Config) {
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if set("addr") {
		cfg.Addr = flagCfg.Addr
	}
	if set("model") {
		cfg.Model = flagCfg.Model
	}
	if set("models-dir") {
		cfg.ModelsDir = flagCfg.ModelsDir
	}
	if set("backend-url") {
		cfg.BackendURL = flagCfg.BackendURL
	}
	if set("backend-host") {
		cfg.BackendHost = flagCfg.BackendHost
	}
	if set("backend-port") {
		cfg.BackendPort = flagCfg.BackendPort
	}
	if set("no-spawn") {
		cfg.NoSpawn = flagCfg.NoSpawn
	}
	if set("backend-log") {
		cfg.BackendLog = flagCfg.BackendLog
	}
	if set("max-num-seqs") {
		cfg.MaxNumSeqs = flagCfg.MaxNumSeqs
	}
	if set("max-batched-tokens") {
		cfg.MaxBatchedTokens = flagCfg.MaxBatchedTokens
	}
	if set("max-model-len") {
		cfg.MaxModelLen = flagCfg.MaxModelLen
	}
	if set("gpu-memory-utilization") {
		cfg.GPUMemoryUtilization = flagCfg.GPUMemoryUtilization
	}
	if set("health-timeout") {
		cfg.HealthTimeoutSec = flagCfg.HealthTimeoutSec
	}
	if set("log-level") {
		cfg.LogLevel = flagCfg.LogLevel
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

func run(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)

	hw := hardware.Detect()
	log.Info().
		Str("hardware", string(hw.Type)).
		Int("cpu_cores", hw.CPUCores).
		Uint64("ram_mb", hw.RAMTotalMB).
		Msg("hardware detected")

	orch := engine.NewOrchestrator(log,
		engine.NewVLLMOpenAI(cfg.BackendURL, log),
		engine.NewVLLM(cfg.BackendURL, log),
		engine.NewMAX(cfg.BackendURL, log),
		engine.NewLlamaCpp(cfg.BackendURL, log),
	)
	if err := orch.Initialize(hw); err != nil {
		return err
	}
	selected, err := orch.SelectEngine()
	if err != nil {
		return err
	}
	log.Info().Str("engine", string(selected.Type())).Msg("engine selected")

	sup := supervisor.New(log)
	var backend *supervisor.Process
	supCfg := supervisor.Config{
		Command: cfg.BackendCommand,
		Model:   cfg.Model,
		Host:    cfg.BackendHost,
		Port:    cfg.BackendPort,
		LogPath: cfg.BackendLog,
		Tuning: supervisor.Tuning{
			MaxNumSeqs:           cfg.MaxNumSeqs,
			MaxBatchedTokens:     cfg.MaxBatchedTokens,
			MaxModelLen:          cfg.MaxModelLen,
			GPUMemoryUtilization: cfg.GPUMemoryUtilization,
			ChunkedPrefill:       true,
			PrefixCaching:        true,
		},
		HealthAttempts: cfg.HealthTimeoutSec,
	}
	if !cfg.NoSpawn && cfg.Model != "" {
		backend, err = sup.Start(supCfg)
		if err != nil {
			return err
		}
		if !sup.AwaitHealthy(context.Background(), backend, supCfg, cfg.BackendURL) {
			sup.Terminate(backend)
			return fmt.Errorf("%s", supervisor.StartupFailure(supCfg))
		}
	}

	resolver, err := models.NewLocalDir(cfg.ModelsDir)
	if err != nil {
		if backend != nil {
			sup.Terminate(backend)
		}
		return err
	}

	gw := gateway.New(selected, resolver, version, log)
	srv := &http.Server{Addr: cfg.Addr, Handler: gw.NewMux()}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", resolver.Dir()).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if backend != nil {
			sup.Terminate(backend)
		}
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	if backend != nil {
		sup.Terminate(backend)
	}
	return nil
}
