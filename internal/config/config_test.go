package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longregen/argo/internal/domain"
)

func TestDefaultConfig_Validates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	cfg.LLM.URL = "not-a-url"
	cfg.LLM.Family = "yaml"
	cfg.Memory.ShortTermMessages = 1

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfigInvalid))
	assert.Contains(t, err.Error(), "server port")
	assert.Contains(t, err.Error(), "valid URL")
	assert.Contains(t, err.Error(), "'xml' or 'json'")
	assert.Contains(t, err.Error(), "at least 2 messages")
}

func TestValidate_EmbeddingOptionalButConsistent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.URL = ""
	assert.NoError(t, cfg.Validate())

	cfg.Embedding.URL = "http://localhost:11434/v1"
	cfg.Embedding.Dimensions = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimensions")
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"llm": {"model": "from-file", "family": "json"},
		"memory": {"summary_interval": 30}
	}`), 0o644))

	t.Setenv("ARGO_CONFIG", path)
	t.Setenv("ARGO_LLM_MODEL", "from-env")
	t.Setenv("ARGO_SUMMARY_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	// env wins over file, file wins over defaults
	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.Equal(t, "json", cfg.LLM.Family)
	assert.Equal(t, 30, cfg.Memory.SummaryInterval)
	assert.Equal(t, 6, cfg.Memory.ShortTermMessages)
}

func TestLoad_InvalidEnvValueIgnored(t *testing.T) {
	t.Setenv("ARGO_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("ARGO_SERVER_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("ARGO_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("ARGO_LLM_FAMILY", "yaml")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfigInvalid))
}
