package llm

// ChatRequest is an OpenAI-compatible chat completion request body.
type ChatRequest struct {
	// Model name (e.g., "qwen-plus")
	Model string `json:"model"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// Whether to stream the response as data: frames
	Stream bool `json:"stream"`

	// Generation parameters
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}
