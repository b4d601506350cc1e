// SPDX-License-Identifier: MIT

// Package config loads videowall configuration with precedence
// ENV > file > defaults and supports hot reloading of the config file.
package config

import (
	"path/filepath"
	"time"
)

// AppConfig is the complete runtime configuration of videowalld.
type AppConfig struct {
	// Storage
	DataDir   string `yaml:"dataDir"`
	VideoPath string `yaml:"videoPath"` // defaults to <dataDir>/current.mp4

	// Multicast command channel
	MulticastGroup     string `yaml:"multicastGroup"`
	MulticastPort      int    `yaml:"multicastPort"`
	MulticastInterface string `yaml:"multicastInterface"` // empty = system default

	// File transfer channel
	TransferPort     int           `yaml:"transferPort"`
	TransferMaxBytes int64         `yaml:"transferMaxBytes"`
	TransferTimeout  time.Duration `yaml:"transferTimeout"`

	// HTTP status API; empty ListenAddr disables the server
	ListenAddr string `yaml:"listenAddr"`

	// External decoder process
	PlayerBin         string        `yaml:"playerBin"`
	PlayerAudio       string        `yaml:"playerAudio"` // hdmi, local or both
	PlayerExtraArgs   []string      `yaml:"playerExtraArgs"`
	PreloadPauseDelay time.Duration `yaml:"preloadPauseDelay"`
	StopGrace         time.Duration `yaml:"stopGrace"`

	// Event journal; empty disables
	HistoryPath string `yaml:"historyPath"`

	// Logging
	LogLevel string `yaml:"logLevel"`

	// Version is injected by the loader, never read from file or env.
	Version string `yaml:"-"`
}

// Defaults returns the built-in configuration. The multicast and transfer
// defaults match the wire protocol documentation (239.255.42.1:5000 / 5001).
func Defaults() AppConfig {
	return AppConfig{
		DataDir:           "/var/lib/videowall",
		MulticastGroup:    "239.255.42.1",
		MulticastPort:     5000,
		TransferPort:      5001,
		TransferMaxBytes:  4 << 30, // 4 GiB
		TransferTimeout:   10 * time.Minute,
		ListenAddr:        ":8080",
		PlayerBin:         "omxplayer",
		PlayerAudio:       "hdmi",
		PreloadPauseDelay: 500 * time.Millisecond,
		StopGrace:         2 * time.Second,
		LogLevel:          "info",
	}
}

// CurrentVideoPath resolves the effective video file location.
func (c AppConfig) CurrentVideoPath() string {
	if c.VideoPath != "" {
		return c.VideoPath
	}
	return filepath.Join(c.DataDir, "current.mp4")
}

// EventDBPath resolves the event journal location ("" = disabled).
func (c AppConfig) EventDBPath() string {
	return c.HistoryPath
}
