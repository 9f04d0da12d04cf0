package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 60, cfg.Server.TimeoutSec)
	assert.Equal(t, 5, cfg.Server.TopK)
	assert.Empty(t, cfg.Server.BaseURL, "base URL defaults to empty, discovery fills it in")

	assert.Equal(t, 300, cfg.Suggest.DebounceMs)
	assert.Equal(t, 2, cfg.Suggest.MinPrefix)
	assert.Equal(t, 100, cfg.Suggest.CacheSize)
	assert.Equal(t, 8, cfg.Suggest.MaxCandidates)

	assert.True(t, cfg.CLI.ShowScores)
	assert.Equal(t, "zh", cfg.CLI.Language)
}

func TestInitConfigCreatesFileWithDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := InitConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = os.Stat(configPath)
	require.NoError(t, err, "init should write the file")

	// second init loads the file it just wrote
	again, err := InitConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Server.BaseURL = "http://127.0.0.1:18081"
	cfg.Suggest.DebounceMs = 150
	cfg.CLI.Language = "en"
	require.NoError(t, SaveConfig(cfg, configPath))

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	partial := "[suggest]\ndebounce_ms = 100\n"
	require.NoError(t, os.WriteFile(configPath, []byte(partial), 0o644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Suggest.DebounceMs)
	assert.Equal(t, 100, cfg.Suggest.CacheSize, "unset fields keep their defaults")
	assert.Equal(t, 5, cfg.Server.TopK)
}

func TestUpdate(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	require.NoError(t, SaveConfig(cfg, configPath))

	topK := 10
	debounce := 200
	show := false
	require.NoError(t, cfg.Update(configPath, &topK, &debounce, nil, &show))

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, 10, loaded.Server.TopK)
	assert.Equal(t, 200, loaded.Suggest.DebounceMs)
	assert.Equal(t, 8, loaded.Suggest.MaxCandidates, "nil pointer leaves the field untouched")
	assert.False(t, loaded.CLI.ShowScores)
}

func TestLoadConfigWithPriorityCustomPath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "custom.toml")
	custom := DefaultConfig()
	custom.Server.TopK = 7
	require.NoError(t, SaveConfig(custom, configPath))

	cfg, activePath, err := LoadConfigWithPriority(configPath)
	require.NoError(t, err)
	assert.Equal(t, configPath, activePath)
	assert.Equal(t, 7, cfg.Server.TopK)
}
