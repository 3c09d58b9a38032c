package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kvistgaard/agentlab/internal/config"
	"github.com/kvistgaard/agentlab/internal/log"
)

func TestModelClientConfig(t *testing.T) {
	cfg := &config.Config{
		Provider:    config.ProviderOllama,
		ModelName:   "llama3.2",
		Temperature: 0.7,
		MaxTokens:   2048,
	}
	logger := log.NewNop()

	got := modelClientConfig(nil, logger, cfg)

	assert.Equal(t, cfg.FullModelName(), got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-6)
	assert.Equal(t, 2048, got.MaxTokens)
	assert.Same(t, logger, got.Logger)
}
