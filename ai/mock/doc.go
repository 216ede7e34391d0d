// Package mock provides test double implementations of the ai interfaces.
//
// This package contains mock implementations of ai.ModelClient and
// ai.Provider for use in unit tests. The mocks allow tests to run without a
// live model endpoint and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default echo behavior
//	provider := mock.NewMockProvider()
//
//	// Scripted behavior injection
//	primary := mock.NewMockClient()
//	primary.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
//	    return &ai.Completion{Text: `{"findings": []}`}, nil
//	}
//	provider = mock.NewMockProviderWithClients(primary, mock.NewMockClient())
//
//	// Check call counts
//	count := primary.CallCount()
//
// Mock clients are safe for concurrent use; the stage scheduler calls them
// from multiple workers at once.
package mock
