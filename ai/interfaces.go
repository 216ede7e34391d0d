package ai

import "context"

// ModelClient is the model-call capability the engine depends on: prompt in,
// text plus usage out. Implementations must be thread-safe for concurrent use.
type ModelClient interface {
	// Complete sends one prompt to the model and returns its completion.
	// Fails with an error wrapping ErrProvider on network or auth failure.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// Provider aggregates the model clients used by a query execution and manages
// their lifecycle. The engine never branches on which concrete provider backs
// it; escalation is expressed as a second abstract client.
type Provider interface {
	// Primary returns the client used for segmentation, segment execution
	// and synthesis. Safe for concurrent use.
	Primary() ModelClient

	// Escalation returns the client used when a segment's first attempt
	// fails or scores below the confidence threshold. May be backed by the
	// same model as Primary. Safe for concurrent use.
	Escalation() ModelClient

	// ModelID identifies the primary model; it participates in query
	// fingerprints so cached results never cross models.
	ModelID() string

	// Close releases resources held by the provider and its clients.
	Close() error
}
