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
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/storage"
)

// Segmenter decomposes a query into independently answerable segments with a
// dependency graph, memoizing results by query fingerprint.
type Segmenter struct {
	model  ai.ModelClient
	cache  storage.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewSegmenter creates a segmenter. Cached segmentations live for ttl.
func NewSegmenter(model ai.ModelClient, cache storage.Cache, ttl time.Duration, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{
		model:  model,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With("component", "segmenter"),
	}
}

// Segment decomposes the query. With useCache set, a live cached
// segmentation for the query fingerprint is returned verbatim. The computed
// segmentation is always written back to the cache so later calls benefit,
// regardless of useCache.
//
// A malformed decomposition (unparsable output, unknown dependency, cycle)
// returns an error wrapping ErrSegmentation; callers fall back to a
// single-segment graph. A model call failure propagates as a provider error.
func (s *Segmenter) Segment(ctx context.Context, query core.Query, useCache bool) (*core.Segmentation, error) {
	if useCache {
		cached, err := s.cache.GetSegmentation(ctx, query.Fingerprint)
		if err == nil {
			s.logger.Debug("segmentation cache hit", "fingerprint", query.Fingerprint)
			return cached, nil
		}
		if !errors.Is(err, storage.ErrCacheMiss) {
			s.logger.Warn("segmentation cache read failed", "err", err)
		}
	}

	completion, err := s.model.Complete(ctx, ai.CompletionRequest{
		System:      buildSegmentationPrompt(),
		Prompt:      query.Text,
		Temperature: 0.0,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	payload, err := parseSegmentation(completion.Text)
	if err != nil {
		s.logger.Warn("error parsing segmentation response",
			"response", completion.Text,
			"err", err)
		return nil, fmt.Errorf("%w: %v", ErrSegmentation, err)
	}

	segments := make([]core.Segment, 0, len(payload.Segments))
	for _, p := range payload.Segments {
		segments = append(segments, core.Segment{
			ID:        p.ID,
			Type:      p.Type,
			Text:      p.Text,
			DependsOn: p.DependsOn,
		})
	}

	graph, err := core.BuildExecutionGraph(segments)
	if err != nil {
		s.logger.Warn("decomposition produced an invalid graph", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrSegmentation, err)
	}

	segmentation := &core.Segmentation{
		Fingerprint: query.Fingerprint,
		QueryText:   query.Text,
		Segments:    segments,
		Graph:       *graph,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.cache.PutSegmentation(ctx, segmentation, s.ttl); err != nil {
		s.logger.Warn("segmentation cache write failed", "err", err)
	}

	s.logger.Debug("query segmented",
		"fingerprint", query.Fingerprint,
		"segments", len(segments),
		"stages", graph.StageCount)
	return segmentation, nil
}
