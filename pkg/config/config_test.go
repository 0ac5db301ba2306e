package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultHasSaneValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0.7, cfg.AutoCaptureMinConfidence)
	assert.Contains(t, cfg.SlotCategories, "profile")
}

func TestLoadFromFileMissingIsNotError(t *testing.T) {
	cfg, err := LoadFromFile("/nonexistent/path/config.yaml")
	assert.NoError(t, err)
	assert.Equal(t, Default().VectorPort, cfg.VectorPort)
}

func TestLoadEnvOverridesBase(t *testing.T) {
	t.Setenv("AGENTMEMORY_VECTOR_PORT", "7000")
	cfg := Load(Default())
	assert.Equal(t, 7000, cfg.VectorPort)
}
