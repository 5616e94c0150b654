package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingResponseJSON(t *testing.T) {
	resp := &EmbeddingResponse{Embedding: []float64{0.1, -0.2, 3}}
	out, err := resp.JSON()
	require.NoError(t, err)
	assert.Equal(t, "[0.1,-0.2,3]", out)

	empty := &EmbeddingResponse{}
	out, err = empty.JSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestNewUsage(t *testing.T) {
	assert.Equal(t, &Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}, NewUsage(3, 4, 0))
	assert.Equal(t, 10, NewUsage(3, 4, 10).TotalTokens)
}
