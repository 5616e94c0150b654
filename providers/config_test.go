package providers

import (
	"testing"
	"time"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/providers/providertest"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := Config{}.Normalize("https://api.example.com")

	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.Transport)
	assert.Equal(t, common.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
}

func TestNormalizeKeepsOverrides(t *testing.T) {
	poster := &providertest.Poster{}
	cfg := Config{
		Transport: poster,
		Timeout:   5 * time.Second,
		BaseURL:   "http://127.0.0.1:8080",
	}.Normalize("https://api.example.com")

	assert.Same(t, poster, cfg.Transport)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.BaseURL)
}
