package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

type Config struct {
	Install InstallConfig         `json:"install"`
	Tools   map[string]ToolConfig `json:"tools,omitempty"`
	Batch   BatchConfig           `json:"batch"`
	History HistoryConfig         `json:"history"`
	Log     LogConfig             `json:"log"`
}

// InstallConfig locates the bundled tool installation on disk.
type InstallConfig struct {
	Root     string `json:"root,omitempty"`      // install root, default: directory of the gtmulti binary
	ToolsDir string `json:"tools_dir,omitempty"` // default: <root>/external/pez2k
	DataDir  string `json:"data_dir,omitempty"`  // default: <root>/logic/data
}

// ToolConfig overrides settings for a single wrapped tool, keyed by tool ID.
type ToolConfig struct {
	Path      string   `json:"path,omitempty"`       // absolute path to the executable
	Timeout   string   `json:"timeout,omitempty"`    // per-launch timeout (default: "10m")
	ExtraArgs []string `json:"extra_args,omitempty"` // appended after operation args
	Disabled  bool     `json:"disabled,omitempty"`
}

type BatchConfig struct {
	MaxFailures int `json:"max_failures,omitempty"` // consecutive failures before a batch pauses (default: 3)
}

type HistoryConfig struct {
	MaxRows int `json:"max_rows,omitempty"` // run history rows kept in the state db (default: 500)
}

type LogConfig struct {
	Level string `json:"level,omitempty"`
	File  string `json:"file,omitempty"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return match
	})
}

func expandEnvInBytes(data []byte) []byte {
	return []byte(expandEnvVars(string(data)))
}

func Home() string {
	if h := os.Getenv("GTMULTI_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".gtmulti")
	}
	return filepath.Join(home, ".gtmulti")
}

func DefaultConfigPath() string {
	return filepath.Join(Home(), "config.json")
}

func DefaultStatePath() string {
	return filepath.Join(Home(), "state.db")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	data = expandEnvInBytes(data)

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Default returns a config with defaults applied and no file read,
// used when the shell starts before 'gtmulti init' has run.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Install.Root == "" {
		if exe, err := os.Executable(); err == nil {
			cfg.Install.Root = filepath.Dir(exe)
		} else {
			cfg.Install.Root = "."
		}
	}
	if cfg.Install.ToolsDir == "" {
		cfg.Install.ToolsDir = filepath.Join(cfg.Install.Root, "external", "pez2k")
	}
	if cfg.Install.DataDir == "" {
		cfg.Install.DataDir = filepath.Join(cfg.Install.Root, "logic", "data")
	}
	if cfg.Batch.MaxFailures == 0 {
		cfg.Batch.MaxFailures = 3
	}
	if cfg.History.MaxRows == 0 {
		cfg.History.MaxRows = 500
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func validate(cfg *Config) error {
	for id, tc := range cfg.Tools {
		if id == "" {
			return fmt.Errorf("tool override with empty id")
		}
		if tc.Timeout != "" {
			if _, err := time.ParseDuration(tc.Timeout); err != nil {
				return fmt.Errorf("tool %s: invalid timeout %q: %w", id, tc.Timeout, err)
			}
		}
	}
	if cfg.Batch.MaxFailures < 0 {
		return fmt.Errorf("batch.max_failures must not be negative")
	}
	if cfg.History.MaxRows < 0 {
		return fmt.Errorf("history.max_rows must not be negative")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.Log.Level)
	}
	return nil
}

// ToolTimeout returns the configured launch timeout for a tool, or the default.
func (c *Config) ToolTimeout(id string) time.Duration {
	if tc, ok := c.Tools[id]; ok && tc.Timeout != "" {
		if d, err := time.ParseDuration(tc.Timeout); err == nil {
			return d
		}
	}
	return 10 * time.Minute
}
