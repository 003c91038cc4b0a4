package llm

// CompletionOption is a functional option for configuring completion requests.
type CompletionOption func(*CompletionRequest)

// WithTemperature sets the sampling temperature. Query synthesis wants low
// values; 0 leaves the provider default in place.
func WithTemperature(temperature float64) CompletionOption {
	return func(req *CompletionRequest) {
		req.Temperature = temperature
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int) CompletionOption {
	return func(req *CompletionRequest) {
		req.MaxTokens = maxTokens
	}
}

// NewCompletionRequest creates a new completion request with the given model and messages.
//
// Example:
//
//	req := NewCompletionRequest("gpt-4o",
//	    []Message{NewUserMessage("MATCH (n) RETURN count(n)")},
//	    WithTemperature(0),
//	    WithMaxTokens(1000),
//	)
func NewCompletionRequest(model string, messages []Message, opts ...CompletionOption) CompletionRequest {
	req := CompletionRequest{
		Model:    model,
		Messages: messages,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}
