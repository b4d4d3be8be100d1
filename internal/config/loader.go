// Package config loads the gateway configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the gateway. Zero values mean
// "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	Model     string `json:"model" yaml:"model" toml:"model"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`

	BackendURL     string   `json:"backend_url" yaml:"backend_url" toml:"backend_url"`
	BackendHost    string   `json:"backend_host" yaml:"backend_host" toml:"backend_host"`
	BackendPort    int      `json:"backend_port" yaml:"backend_port" toml:"backend_port"`
	NoSpawn        bool     `json:"no_spawn" yaml:"no_spawn" toml:"no_spawn"`
	BackendCommand []string `json:"backend_command" yaml:"backend_command" toml:"backend_command"`
	BackendLog     string   `json:"backend_log" yaml:"backend_log" toml:"backend_log"`

	MaxNumSeqs           int     `json:"max_num_seqs" yaml:"max_num_seqs" toml:"max_num_seqs"`
	MaxBatchedTokens     int     `json:"max_batched_tokens" yaml:"max_batched_tokens" toml:"max_batched_tokens"`
	MaxModelLen          int     `json:"max_model_len" yaml:"max_model_len" toml:"max_model_len"`
	GPUMemoryUtilization float64 `json:"gpu_memory_utilization" yaml:"gpu_memory_utilization" toml:"gpu_memory_utilization"`

	HealthTimeoutSec int    `json:"health_timeout_sec" yaml:"health_timeout_sec" toml:"health_timeout_sec"`
	LogLevel         string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// schemaJSON constrains field types and the few ranges that would otherwise
// fail late and confusingly inside the supervisor.
const schemaJSON = `{
  "type": "object",
  "properties": {
    "addr": {"type": "string"},
    "model": {"type": "string"},
    "models_dir": {"type": "string"},
    "backend_url": {"type": "string"},
    "backend_host": {"type": "string"},
    "backend_port": {"type": "integer", "minimum": 0, "maximum": 65535},
    "no_spawn": {"type": "boolean"},
    "backend_command": {"type": "array", "items": {"type": "string"}},
    "backend_log": {"type": "string"},
    "max_num_seqs": {"type": "integer", "minimum": 1},
    "max_batched_tokens": {"type": "integer", "minimum": 1},
    "max_model_len": {"type": "integer", "minimum": 1},
    "gpu_memory_utilization": {"type": "number", "exclusiveMinimum": 0, "maximum": 1},
    "health_timeout_sec": {"type": "integer", "minimum": 1},
    "log_level": {"type": "string", "enum": ["trace", "debug", "info", "warn", "error"]}
  },
  "additionalProperties": false
}`

type configError struct {
	path string
	err  error
}

func (e configError) Error() string { return fmt.Sprintf("config %s: %v", e.path, e.err) }
func (e configError) Unwrap() error { return e.err }

// IsConfigError reports whether err came from config loading or validation.
func IsConfigError(err error) bool {
	_, ok := err.(configError)
	return ok
}

// Load reads a configuration file based on its extension and validates it
// against the embedded schema. Supports .yaml/.yml, .json, .toml.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, configError{path: path, err: fmt.Errorf("empty config path")}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, configError{path: path, err: err}
	}

	var raw map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &raw)
	case ".json":
		err = json.Unmarshal(b, &raw)
	case ".toml":
		err = toml.Unmarshal(b, &raw)
	default:
		return cfg, configError{path: path, err: fmt.Errorf("unsupported config extension: %s", ext)}
	}
	if err != nil {
		return cfg, configError{path: path, err: err}
	}

	if err := validate(raw); err != nil {
		return cfg, configError{path: path, err: err}
	}

	// Round-trip through JSON so one set of tags drives every format.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return cfg, configError{path: path, err: err}
	}
	if err := json.Unmarshal(normalized, &cfg); err != nil {
		return cfg, configError{path: path, err: err}
	}
	return cfg, nil
}

// validate checks raw against the embedded schema. The value is normalized
// through JSON first because the YAML and TOML decoders produce Go types the
// schema engine does not expect.
func validate(raw map[string]any) error {
	schema, err := jsonschema.CompileString("config.schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}

// ApplyDefaults fills unspecified fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":11434"
	}
	if c.ModelsDir == "" {
		c.ModelsDir = "~/models"
	}
	if c.BackendHost == "" {
		c.BackendHost = "127.0.0.1"
	}
	if c.BackendPort == 0 {
		c.BackendPort = 8100
	}
	if c.BackendURL == "" {
		c.BackendURL = fmt.Sprintf("http://%s:%d", c.BackendHost, c.BackendPort)
	}
	if c.MaxNumSeqs == 0 {
		c.MaxNumSeqs = 256
	}
	if c.MaxBatchedTokens == 0 {
		c.MaxBatchedTokens = 16384
	}
	if c.MaxModelLen == 0 {
		c.MaxModelLen = 4096
	}
	if c.GPUMemoryUtilization == 0 {
		c.GPUMemoryUtilization = 0.9
	}
	if c.HealthTimeoutSec == 0 {
		c.HealthTimeoutSec = 60
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
