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


// Package ai provides the model-call abstractions used by Answerit.
//
// The engine depends on two interfaces defined here rather than on any
// concrete model provider:
//
//   - ModelClient: one completion call (prompt in, text plus usage out)
//   - Provider: aggregates a primary client and an escalation client and
//     manages their lifecycle
//
// # Implementation Packages
//
//   - ai/openai: production implementation for OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//
// Public constructors (openai.NewProvider) return interface types to enforce
// abstraction; mock constructors return concrete types so tests can inject
// behavior and assert call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),
//	    ai.WithModel("qwen2.5:7b"),
//	    ai.WithEscalationModel("qwen2.5:14b"),
//	)
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	completion, err := provider.Primary().Complete(ctx, ai.CompletionRequest{
//	    Prompt: "What is the capital of France?",
//	})
package ai
