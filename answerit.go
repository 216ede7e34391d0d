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


// Package answerit answers complex search queries by decomposing them into a
// DAG of sub-questions, running the sub-questions in parallel stages against
// an LLM, and synthesizing one final answer with source attribution.
package answerit

import (
	"context"
	"log/slog"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/ai/openai"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/engine"
	"github.com/poiesic/answerit/storage"
	"github.com/poiesic/answerit/storage/badger"
)

// App bundles the storage backend, the model provider and the execution
// engine behind one handle.
type App struct {
	backend  *badger.Backend
	cache    storage.Cache
	history  storage.HistoryStore
	provider ai.Provider
	engine   *engine.Engine
	logger   *slog.Logger
}

// AppOption configures an App.
type AppOption func(*appOptions)

type appOptions struct {
	aiConfig   *ai.Config
	engineOpts []engine.Option
}

// WithAIConfig overrides the default model provider configuration.
func WithAIConfig(config *ai.Config) AppOption {
	return func(o *appOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithEngineOptions passes options through to the execution engine.
func WithEngineOptions(opts ...engine.Option) AppOption {
	return func(o *appOptions) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// Open creates an App persisting to the badger database at filePath,
// creating it when absent.
func Open(filePath string, opts ...AppOption) (*App, error) {
	options := &appOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	cache, err := badger.NewCache(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	history, err := badger.NewHistoryStore(backend)
	if err != nil {
		cache.Close()
		backend.Close()
		return nil, err
	}

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		history.Close()
		cache.Close()
		backend.Close()
		return nil, err
	}

	eng, err := engine.NewEngine(provider, cache, history, options.engineOpts...)
	if err != nil {
		provider.Close()
		history.Close()
		cache.Close()
		backend.Close()
		return nil, err
	}

	return &App{
		backend:  backend,
		cache:    cache,
		history:  history,
		provider: provider,
		engine:   eng,
		logger:   slog.Default(),
	}, nil
}

// Search answers one query end to end.
func (a *App) Search(ctx context.Context, userID, queryText string, opts engine.RunOptions) (*core.SearchOutcome, error) {
	return a.engine.Run(ctx, userID, queryText, opts)
}

// History returns up to limit previously synthesized answers, most recent
// first.
func (a *App) History(ctx context.Context, limit int) ([]*core.SynthesisRecord, error) {
	return a.history.RecentAnswers(ctx, limit)
}

// Close releases the engine's worker pool and closes the provider and
// storage.
func (a *App) Close() error {
	a.engine.Release()

	if err := a.provider.Close(); err != nil {
		a.logger.Error("error closing AI provider", "err", err)
	}

	if err := a.history.Close(); err != nil {
		a.logger.Error("error closing history store", "err", err)
		return err
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("error closing cache", "err", err)
		return err
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
