// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mock

import "github.com/poiesic/answerit/ai"

// MockProvider is a test double for ai.Provider.
// It aggregates mock primary and escalation clients.
type MockProvider struct {
	primary    *MockClient
	escalation *MockClient
}

// NewMockProvider creates a new mock provider with default mock clients.
//
// Returns ai.Provider interface for consistency with production constructors.
// Use GetPrimary()/GetEscalation() to access concrete types for test
// assertions.
func NewMockProvider() ai.Provider {
	return &MockProvider{
		primary:    NewMockClient(),
		escalation: NewMockClient(),
	}
}

// NewMockProviderWithClients creates a mock provider with custom mock clients.
// This allows full control over the behavior of each client.
func NewMockProviderWithClients(primary, escalation *MockClient) ai.Provider {
	return &MockProvider{
		primary:    primary,
		escalation: escalation,
	}
}

// Primary returns the mock primary client.
func (p *MockProvider) Primary() ai.ModelClient {
	return p.primary
}

// Escalation returns the mock escalation client.
func (p *MockProvider) Escalation() ai.ModelClient {
	return p.escalation
}

// ModelID identifies the mock model.
func (p *MockProvider) ModelID() string {
	return "mock-model"
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetPrimary returns the underlying mock primary client for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetPrimary() *MockClient {
	return p.primary
}

// GetEscalation returns the underlying mock escalation client for test
// assertions.
func (p *MockProvider) GetEscalation() *MockClient {
	return p.escalation
}
