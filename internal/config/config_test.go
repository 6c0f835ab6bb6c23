package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromPathCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	// The file was written back so the user can edit it.
	_, err = os.Stat(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.DefaultProvider)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromPathReadsExistingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `llm:
  default_provider: openai
  providers:
    openai:
      model: gpt-4o
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.DefaultProvider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Providers["openai"].Model)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Sparse files inherit defaults for everything unset.
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 120, cfg.Chat.TurnTimeoutSec)
}

func TestValidateRejectsUnknownDefaultProvider(t *testing.T) {
	cfg := Default()
	cfg.LLM.DefaultProvider = "anthropic"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic")
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"
	require.Error(t, cfg.Validate())
}

func TestProviderLookup(t *testing.T) {
	cfg := Default()

	name, pc, err := cfg.Provider("")
	require.NoError(t, err)
	assert.Equal(t, "ollama", name)
	assert.Equal(t, "llama3", pc.Model)

	_, _, err = cfg.Provider("nope")
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Server.Addr = ":9999"
	require.NoError(t, cfg.SaveToPath(path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", loaded.Server.Addr)
}
