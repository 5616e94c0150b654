package models

import "github.com/bytedance/sonic"

// EmbeddingResponse represents the response from an embedding request.
type EmbeddingResponse struct {
	Embedding []float64
	Usage     *Usage
	Provider  string
	Model     string
}

// JSON renders the vector as a compact JSON array, the form returned to SQL.
// An empty vector renders as [].
func (r *EmbeddingResponse) JSON() (string, error) {
	values := r.Embedding
	if values == nil {
		values = []float64{}
	}
	out, err := sonic.ConfigStd.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
