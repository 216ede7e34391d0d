package ai

// CompletionRequest describes one model call.
type CompletionRequest struct {
	// System is the instruction prompt, sent as the system message when
	// non-empty.
	System string

	// Prompt is the user-facing content of the call.
	Prompt string

	// Temperature controls sampling randomness. Zero for deterministic
	// structured output.
	Temperature float64

	// JSONMode requests structured JSON output from models that support it.
	JSONMode bool
}

// Completion is the model's reply to one request.
type Completion struct {
	// Text is the raw completion text. Callers must not assume it is
	// well-formed JSON even when JSONMode was requested.
	Text string

	// TokensUsed is the total token usage reported by the provider,
	// zero when the provider does not report usage.
	TokensUsed int
}
