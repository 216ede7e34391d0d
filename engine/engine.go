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

package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/storage"
)

const (
	// DefaultCacheTTL bounds how long segmentations and segment results
	// are served from the cache before recomputation.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultEscalationThreshold is the confidence below which a segment
	// attempt is escalated.
	DefaultEscalationThreshold = 0.4

	// DefaultMaxConcurrent caps concurrent model calls per stage.
	DefaultMaxConcurrent = 8
)

// Engine is the query segmentation and staged parallel execution pipeline:
// it decomposes a query into a segment DAG, executes the segments stage by
// stage with bounded concurrency, escalation and caching, and synthesizes
// one final answer.
type Engine struct {
	provider    ai.Provider
	cache       storage.Cache
	history     storage.HistoryStore
	pool        *ants.Pool
	segmenter   *Segmenter
	scheduler   *StageScheduler
	synthesizer *Synthesizer
	logger      *slog.Logger

	cacheTTL      time.Duration
	threshold     float64
	maxConcurrent int
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithMaxConcurrent caps the number of model calls in flight at once.
// Segments beyond the cap queue within their stage instead of failing.
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			n = 1
		}
		e.maxConcurrent = n
		return nil
	}
}

// WithEscalationThreshold sets the confidence below which a segment attempt
// is retried on the escalation model. Values outside [0,1] are clamped.
func WithEscalationThreshold(threshold float64) Option {
	return func(e *Engine) error {
		e.threshold = clamp01(threshold)
		return nil
	}
}

// WithCacheTTL sets the time-to-live for cached segmentations and segment
// results.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) error {
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		e.cacheTTL = ttl
		return nil
	}
}

// NewEngine creates the pipeline from its three collaborators: the model
// provider, the cache, and the persistence sink for execution history.
func NewEngine(provider ai.Provider, cache storage.Cache, history storage.HistoryStore, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}
	if history == nil {
		return nil, ErrHistoryRequired
	}

	e := &Engine{
		provider:      provider,
		cache:         cache,
		history:       history,
		logger:        slog.Default(),
		cacheTTL:      DefaultCacheTTL,
		threshold:     DefaultEscalationThreshold,
		maxConcurrent: DefaultMaxConcurrent,
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(e.maxConcurrent)
	if err != nil {
		return nil, err
	}
	e.pool = pool

	runner := NewSegmentRunner(provider, cache, history, e.threshold, e.cacheTTL, e.logger)
	e.segmenter = NewSegmenter(provider.Primary(), cache, e.cacheTTL, e.logger)
	e.scheduler = NewStageScheduler(runner, pool, e.logger)
	e.synthesizer = NewSynthesizer(provider.Primary(), e.logger)

	return e, nil
}

// RunOptions holds per-query options.
type RunOptions struct {
	// UseCache enables reads of cached segmentations and segment results.
	// Writes happen regardless, so later queries benefit.
	UseCache bool

	// MaxStages limits how many stages execute; zero means all. Segments
	// in stages beyond the limit are reported as failed results.
	MaxStages int
}

// Run answers one query end to end: segmentation, staged execution,
// synthesis. Partial results always beat no results, so every stage degrades
// gracefully; the only error Run returns is a model provider that cannot be
// reached before segmentation even starts.
func (e *Engine) Run(ctx context.Context, userID, queryText string, opts RunOptions) (*core.SearchOutcome, error) {
	query := core.NewQuery(userID, queryText, e.provider.ModelID())
	logger := e.logger.With("fingerprint", query.Fingerprint)

	segmentation, err := e.segmenter.Segment(ctx, query, opts.UseCache)
	if err != nil {
		if !errors.Is(err, ErrSegmentation) {
			// Provider unreachable before segmentation: the one
			// user-visible failure of the pipeline.
			return nil, err
		}
		logger.Warn("decomposition invalid, falling back to a single segment", "err", err)
		segmentation = core.SingleSegmentFallback(query)
	}

	if err := e.history.RecordSegmentation(ctx, segmentation); err != nil {
		logger.Warn("error recording segmentation", "err", err)
	}

	results := e.scheduler.Execute(ctx, segmentation, opts.UseCache, opts.MaxStages)

	answer := e.synthesizer.Synthesize(ctx, query, segmentation.Segments, results)

	if err := e.history.RecordSynthesis(ctx, &core.SynthesisRecord{
		Fingerprint: query.Fingerprint,
		QueryText:   query.Text,
		Answer:      *answer,
		RecordedAt:  time.Now().UTC(),
	}); err != nil {
		logger.Warn("error recording synthesis", "err", err)
	}

	logger.Info("query answered",
		"segments", len(segmentation.Segments),
		"stages", segmentation.Graph.StageCount,
		"confidence", answer.Confidence)

	return &core.SearchOutcome{
		Query:        query,
		Segmentation: segmentation,
		Results:      results,
		Answer:       answer,
	}, nil
}

// Release releases the worker pool. The engine should not be used after
// calling Release.
func (e *Engine) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}
