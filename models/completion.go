package models

// ChatMessage represents a message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents the response from a completion request.
type CompletionResponse struct {
	Text     string
	Usage    *Usage
	Provider string // Indicates which provider generated the response
	Model    string
}

// Usage represents the token usage reported by a provider. Nil when the
// provider did not report any.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage fills TotalTokens when the provider only reports the two halves.
func NewUsage(prompt, completion, total int) *Usage {
	if total == 0 {
		total = prompt + completion
	}
	return &Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}
