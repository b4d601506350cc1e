// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"net"
)

// Validate rejects configurations the daemon cannot safely run with.
// It is called on initial load and on every hot reload; a failing reload
// keeps the previous configuration.
func Validate(cfg AppConfig) error {
	if cfg.DataDir == "" && cfg.VideoPath == "" {
		return fmt.Errorf("config: dataDir or videoPath must be set")
	}

	ip := net.ParseIP(cfg.MulticastGroup)
	if ip == nil {
		return fmt.Errorf("config: invalid multicast group %q", cfg.MulticastGroup)
	}
	if !ip.IsMulticast() {
		return fmt.Errorf("config: %q is not a multicast address", cfg.MulticastGroup)
	}

	if err := validatePort("multicastPort", cfg.MulticastPort); err != nil {
		return err
	}
	if err := validatePort("transferPort", cfg.TransferPort); err != nil {
		return err
	}
	if cfg.MulticastPort == cfg.TransferPort {
		return fmt.Errorf("config: multicastPort and transferPort must differ (both %d)", cfg.MulticastPort)
	}

	if cfg.TransferMaxBytes <= 0 {
		return fmt.Errorf("config: transferMaxBytes must be positive (got %d)", cfg.TransferMaxBytes)
	}
	if cfg.TransferTimeout <= 0 {
		return fmt.Errorf("config: transferTimeout must be positive (got %s)", cfg.TransferTimeout)
	}

	if cfg.PlayerBin == "" {
		return fmt.Errorf("config: playerBin must be set")
	}
	switch cfg.PlayerAudio {
	case "hdmi", "local", "both":
	default:
		return fmt.Errorf("config: playerAudio must be hdmi, local or both (got %q)", cfg.PlayerAudio)
	}

	if cfg.StopGrace <= 0 {
		return fmt.Errorf("config: stopGrace must be positive (got %s)", cfg.StopGrace)
	}
	if cfg.PreloadPauseDelay < 0 {
		return fmt.Errorf("config: preloadPauseDelay must not be negative (got %s)", cfg.PreloadPauseDelay)
	}

	return nil
}

func validatePort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("config: %s out of range: %d", name, port)
	}
	return nil
}
