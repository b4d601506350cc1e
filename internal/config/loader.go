// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader. configPath may be empty, in
// which case only environment variables and defaults apply.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load loads configuration in strict order: defaults, then file, then env,
// then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := mergeFile(&cfg, l.configPath); err != nil {
			return AppConfig{}, err
		}
	}

	mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func mergeEnv(cfg *AppConfig) {
	cfg.DataDir = ParseString("VIDEOWALL_DATA", cfg.DataDir)
	cfg.VideoPath = ParseString("VIDEOWALL_VIDEO", cfg.VideoPath)
	cfg.MulticastGroup = ParseString("VIDEOWALL_MCAST_GROUP", cfg.MulticastGroup)
	cfg.MulticastPort = ParseInt("VIDEOWALL_MCAST_PORT", cfg.MulticastPort)
	cfg.MulticastInterface = ParseString("VIDEOWALL_MCAST_IFACE", cfg.MulticastInterface)
	cfg.TransferPort = ParseInt("VIDEOWALL_TRANSFER_PORT", cfg.TransferPort)
	cfg.TransferMaxBytes = ParseInt64("VIDEOWALL_TRANSFER_MAX_BYTES", cfg.TransferMaxBytes)
	cfg.TransferTimeout = ParseDuration("VIDEOWALL_TRANSFER_TIMEOUT", cfg.TransferTimeout)
	cfg.ListenAddr = ParseString("VIDEOWALL_LISTEN", cfg.ListenAddr)
	cfg.PlayerBin = ParseString("VIDEOWALL_PLAYER_BIN", cfg.PlayerBin)
	cfg.PlayerAudio = ParseString("VIDEOWALL_PLAYER_AUDIO", cfg.PlayerAudio)
	cfg.PreloadPauseDelay = ParseDuration("VIDEOWALL_PRELOAD_PAUSE_DELAY", cfg.PreloadPauseDelay)
	cfg.StopGrace = ParseDuration("VIDEOWALL_STOP_GRACE", cfg.StopGrace)
	cfg.HistoryPath = ParseString("VIDEOWALL_HISTORY_DB", cfg.HistoryPath)
	cfg.LogLevel = ParseString("VIDEOWALL_LOG_LEVEL", cfg.LogLevel)
}
