package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// SourceConfig declares one monitored service: its display id, the
// service-type tag selecting metric patterns, and the log file to tail.
// Sources without a log path are fetched through the agent API instead.
type SourceConfig struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	LogPath string `toml:"log_path"`
}

// Config captures the deck-wide settings plus the list of monitored sources.
type Config struct {
	AgentBind      string
	HTTPBind       string
	PollInterval   time.Duration
	FetchLimit     int
	BufferCapacity int
	LogLevel       string
	LogFile        string
	Sources        []SourceConfig
}

const (
	defaultConfigPath     = "~/.config/nodedeck/config.toml"
	defaultAgentBind      = "127.0.0.1:7580"
	defaultHTTPBind       = "127.0.0.1:7581"
	defaultPollIntervalMS = 500
	defaultFetchLimit     = 200
	defaultBufferCap      = 10000
	defaultLogLevel       = "info"
	defaultLogFile        = "~/.local/state/nodedeck/nodedeck.log"
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load locates and parses the config, falling back to defaults when missing.
// A missing file yields a usable config with no sources.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := defaults()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		AgentBind      string         `toml:"agent_bind"`
		HTTPBind       string         `toml:"http_bind"`
		PollIntervalMS int            `toml:"poll_interval_ms"`
		FetchLimit     int            `toml:"fetch_limit"`
		BufferCapacity int            `toml:"buffer_capacity"`
		LogLevel       string         `toml:"log_level"`
		LogFile        string         `toml:"log_file"`
		Sources        []SourceConfig `toml:"sources"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if bind := strings.TrimSpace(raw.AgentBind); bind != "" {
		cfg.AgentBind = bind
	}
	if bind := strings.TrimSpace(raw.HTTPBind); bind != "" {
		cfg.HTTPBind = bind
	}
	if raw.PollIntervalMS > 0 {
		cfg.PollInterval = time.Duration(raw.PollIntervalMS) * time.Millisecond
	}
	if raw.FetchLimit > 0 {
		cfg.FetchLimit = raw.FetchLimit
	}
	if raw.BufferCapacity > 0 {
		cfg.BufferCapacity = raw.BufferCapacity
	}
	if level := strings.TrimSpace(raw.LogLevel); level != "" {
		cfg.LogLevel = level
	}
	if logFile := strings.TrimSpace(raw.LogFile); logFile != "" {
		cfg.LogFile = logFile
	}
	cfg.LogFile = mustExpand(cfg.LogFile)

	for i, src := range raw.Sources {
		name := strings.TrimSpace(src.Name)
		if name == "" {
			return Config{}, fmt.Errorf("config: sources[%d] has no name", i)
		}
		if strings.TrimSpace(src.Type) == "" {
			return Config{}, fmt.Errorf("config: source %q has no type", name)
		}
		cfg.Sources = append(cfg.Sources, SourceConfig{
			Name:    name,
			Type:    strings.TrimSpace(src.Type),
			LogPath: mustExpandIfSet(src.LogPath),
		})
	}

	return cfg, nil
}

// ServiceTypes returns the source id to service-type map for the registry.
func (c Config) ServiceTypes() map[string]string {
	types := make(map[string]string, len(c.Sources))
	for _, src := range c.Sources {
		types[src.Name] = src.Type
	}
	return types
}

// LogPaths returns the id to log-file map for sources tailed from disk.
func (c Config) LogPaths() map[string]string {
	paths := make(map[string]string, len(c.Sources))
	for _, src := range c.Sources {
		if src.LogPath != "" {
			paths[src.Name] = src.LogPath
		}
	}
	return paths
}

func defaults() Config {
	return Config{
		AgentBind:      defaultAgentBind,
		HTTPBind:       defaultHTTPBind,
		PollInterval:   defaultPollIntervalMS * time.Millisecond,
		FetchLimit:     defaultFetchLimit,
		BufferCapacity: defaultBufferCap,
		LogLevel:       defaultLogLevel,
		LogFile:        mustExpand(defaultLogFile),
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpandIfSet(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return mustExpand(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
