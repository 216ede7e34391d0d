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


package openai

import (
	"log/slog"

	"github.com/poiesic/answerit/ai"
)

// Provider implements ai.Provider using OpenAI-compatible services.
// It manages a primary client and an escalation client.
type Provider struct {
	config     *ai.Config
	primary    *Client
	escalation *Client
	logger     *slog.Logger
}

// NewProvider creates a model provider backed by OpenAI-compatible services.
// The config is validated and normalized before use; when no escalation
// model is configured the escalation client shares the primary model.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	primary, err := newClient(config.Host, config.Token, config.Model)
	if err != nil {
		return nil, err
	}

	escalation, err := newClient(config.Host, config.Token, config.EscalationModel)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:     config,
		primary:    primary,
		escalation: escalation,
		logger:     slog.Default().With("component", "openai-provider"),
	}, nil
}

// Primary returns the primary model client.
func (p *Provider) Primary() ai.ModelClient {
	return p.primary
}

// Escalation returns the escalation model client.
func (p *Provider) Escalation() ai.ModelClient {
	return p.escalation
}

// ModelID identifies the primary model for fingerprinting.
func (p *Provider) ModelID() string {
	return p.config.Model
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
