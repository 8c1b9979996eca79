// Package config loads the janus CLI configuration.
//
// The configuration is one YAML file under os.UserConfigDir():
//
//	~/Library/Application Support/janus/config.yaml   (macOS)
//	~/.config/janus/config.yaml                       (Linux)
//	%AppData%/janus/config.yaml                       (Windows)
//
// A missing file yields the defaults; command-line flags override
// individual fields.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/januslink/janus/pkg/link"
)

const (
	appDir     = "janus"
	configFile = "config.yaml"
)

// Link configures the simulated radio link.
type Link struct {
	// Network is "tcp" or "udp".
	Network string `yaml:"network"`

	// Addr is the peer address for send and the bind address for recv.
	Addr string `yaml:"addr"`

	// BitsPerSecond is the throttled link rate.
	BitsPerSecond int `yaml:"bits_per_second"`
}

// Audio configures capture and playback.
type Audio struct {
	// ChunkSamples is the capture chunk size in samples.
	ChunkSamples int `yaml:"chunk_samples"`
}

// VAD selects the voice activity detector for streamed capture.
type VAD struct {
	// Backend is "rms" or "webrtc".
	Backend string `yaml:"backend"`

	// Mode is the webrtc aggressiveness, 0 to 3.
	Mode int `yaml:"mode"`
}

// Models configures the out-of-process speech model commands. Each is
// an argv; see the speech package for the placeholder contract.
type Models struct {
	ASR []string `yaml:"asr"`
	TTS []string `yaml:"tts"`
}

// Config is the whole CLI configuration.
type Config struct {
	Link   Link   `yaml:"link"`
	Audio  Audio  `yaml:"audio"`
	VAD    VAD    `yaml:"vad"`
	Models Models `yaml:"models"`

	// WSAddr, when set, serves the WebSocket control bridge.
	WSAddr string `yaml:"ws_addr"`

	// HistoryDir holds the transcript log. Empty disables history.
	HistoryDir string `yaml:"history_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Link: Link{
			Network:       "tcp",
			Addr:          "127.0.0.1:7300",
			BitsPerSecond: link.DefaultBitrate,
		},
		Audio: Audio{ChunkSamples: 1536},
		VAD:   VAD{Backend: "rms", Mode: 2},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, configFile), nil
}

// Load reads the configuration from the default location. A missing
// file is not an error; it yields Default().
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from a specific file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the given file, creating parent
// directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
