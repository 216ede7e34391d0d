package ai

import "errors"

var (
	// ErrProvider indicates a model call failed at the provider level
	// (network, auth, or service error). The engine recovers per segment
	// via bounded escalation.
	ErrProvider = errors.New("model provider call failed")

	// ErrNoChoices indicates the model returned an empty choice list.
	ErrNoChoices = errors.New("model returned no choices")
)
