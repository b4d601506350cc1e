// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		envSet       bool
		defaultValue string
		want         string
	}{
		{"set", "from-env", true, "default", "from-env"},
		{"unset", "", false, "default", "default"},
		{"empty falls back", "", true, "default", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "VIDEOWALL_TEST_STRING"
			if tt.envSet {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseString(key, tt.defaultValue); got != tt.want {
				t.Errorf("ParseString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		envSet   bool
		want     int
	}{
		{"valid", "6000", true, 6000},
		{"negative", "-1", true, -1},
		{"garbage falls back", "not-a-number", true, 42},
		{"unset", "", false, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "VIDEOWALL_TEST_INT"
			if tt.envSet {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseInt(key, 42); got != tt.want {
				t.Errorf("ParseInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseInt64(t *testing.T) {
	key := "VIDEOWALL_TEST_INT64"
	t.Setenv(key, "4294967296")
	if got := ParseInt64(key, 0); got != 4294967296 {
		t.Errorf("ParseInt64() = %v, want 4294967296", got)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		envSet   bool
		want     time.Duration
	}{
		{"seconds", "5s", true, 5 * time.Second},
		{"compound", "1m30s", true, 90 * time.Second},
		{"millis", "250ms", true, 250 * time.Millisecond},
		{"bare number falls back", "5", true, time.Second},
		{"garbage falls back", "soon", true, time.Second},
		{"unset", "", false, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "VIDEOWALL_TEST_DURATION"
			if tt.envSet {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseDuration(key, time.Second); got != tt.want {
				t.Errorf("ParseDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
