// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, path, group string) {
	t.Helper()
	content := "dataDir: /data/wall\nmulticastGroup: " + group + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestHolderGetReturnsInitial(t *testing.T) {
	initial := Defaults()
	initial.MulticastGroup = "239.9.9.9"
	h := NewHolder(initial, NewLoader("", "test"), "")

	assert.Equal(t, "239.9.9.9", h.Get().MulticastGroup)
}

func TestReloadPicksUpFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "239.1.1.1")

	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader, path)

	writeConfigFile(t, path, "239.2.2.2")
	require.NoError(t, h.Reload(context.Background()))
	assert.Equal(t, "239.2.2.2", h.Get().MulticastGroup)
}

func TestReloadKeepsOldConfigOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "239.1.1.1")

	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader, path)

	// Unicast group fails validation; the holder must keep the old config.
	writeConfigFile(t, path, "192.168.1.1")
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, "239.1.1.1", h.Get().MulticastGroup)
}

func TestReloadNotifiesListeners(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "239.1.1.1")

	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader, path)

	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	writeConfigFile(t, path, "239.3.3.3")
	require.NoError(t, h.Reload(context.Background()))

	select {
	case cfg := <-ch:
		assert.Equal(t, "239.3.3.3", cfg.MulticastGroup)
	default:
		t.Fatal("listener was not notified")
	}
}

func TestStartWatcherWithoutPathIsNoop(t *testing.T) {
	h := NewHolder(Defaults(), NewLoader("", "test"), "")
	require.NoError(t, h.StartWatcher(context.Background()))
	h.Stop()
}

func TestStartWatcherMissingFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.yaml")
	h := NewHolder(Defaults(), NewLoader(path, "test"), path)
	require.Error(t, h.StartWatcher(context.Background()))
}
