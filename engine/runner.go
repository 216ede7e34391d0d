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

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/storage"
)

// DependencyFindings is the read-only context one segment receives from a
// dependency. A failed dependency appears with empty findings and zero
// confidence rather than blocking the dependent.
type DependencyFindings struct {
	SegmentID  string
	Findings   []core.Finding
	Confidence float64
}

// SegmentRunner executes one segment: it builds the sub-prompt from the
// segment text and dependency findings, calls the model, parses structured
// findings and scores confidence. A low-confidence or failed attempt is
// escalated once to the provider's escalation client; the better of the two
// attempts is kept, ties favoring the later one.
type SegmentRunner struct {
	provider  ai.Provider
	cache     storage.Cache
	history   storage.HistoryStore
	threshold float64
	cacheTTL  time.Duration
	logger    *slog.Logger
}

// NewSegmentRunner creates a runner. threshold is the confidence below which
// a segment attempt is escalated.
func NewSegmentRunner(provider ai.Provider, cache storage.Cache, history storage.HistoryStore, threshold float64, cacheTTL time.Duration, logger *slog.Logger) *SegmentRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &SegmentRunner{
		provider:  provider,
		cache:     cache,
		history:   history,
		threshold: threshold,
		cacheTTL:  cacheTTL,
		logger:    logger.With("component", "segment-runner"),
	}
}

// Run executes one segment and returns its result. Run never returns an
// error: a model failure after the escalation attempt surfaces as a failed
// result with zero confidence. Every attempt is persisted to the history
// store, including failed ones.
func (r *SegmentRunner) Run(ctx context.Context, fp core.Fingerprint, segment core.Segment, deps []DependencyFindings, useCache bool) core.SegmentResult {
	if useCache {
		if cached, err := r.cache.GetSegmentResult(ctx, fp, segment.ID); err == nil {
			r.logger.Debug("segment result cache hit", "segment", segment.ID)
			return *cached
		} else if !errors.Is(err, storage.ErrCacheMiss) {
			r.logger.Warn("segment result cache read failed", "segment", segment.ID, "err", err)
		}
	}

	consumed := 0
	for _, dep := range deps {
		if len(dep.Findings) > 0 {
			consumed++
		}
	}

	first := r.attempt(ctx, r.provider.Primary(), segment, deps, false)
	first.CoordinationEvents = consumed
	r.persist(ctx, fp, &first, 1)

	result := first
	if !first.Success || first.Confidence < r.threshold {
		r.logger.Debug("escalating segment",
			"segment", segment.ID,
			"confidence", first.Confidence,
			"failed", !first.Success)

		second := r.attempt(ctx, r.provider.Escalation(), segment, deps, true)
		second.CoordinationEvents = consumed
		r.persist(ctx, fp, &second, 2)

		// Keep the better attempt; ties favor the later one.
		if second.Confidence >= first.Confidence {
			result = second
		}
		result.WasEscalated = true
		result.TokensUsed = first.TokensUsed + second.TokensUsed
	}

	if result.Success {
		if err := r.cache.PutSegmentResult(ctx, fp, &result, r.cacheTTL); err != nil {
			r.logger.Warn("segment result cache write failed", "segment", segment.ID, "err", err)
		}
	}

	return result
}

// attempt performs a single model call for the segment. No error return:
// failures become failed results.
func (r *SegmentRunner) attempt(ctx context.Context, model ai.ModelClient, segment core.Segment, deps []DependencyFindings, escalated bool) core.SegmentResult {
	system := buildSegmentSystemPrompt()
	if escalated {
		system += escalationSuffix
	}

	start := time.Now()
	completion, err := model.Complete(ctx, ai.CompletionRequest{
		System:      system,
		Prompt:      buildSegmentPrompt(segment, deps),
		Temperature: 0.0,
		JSONMode:    true,
	})
	elapsed := time.Since(start)

	if err != nil {
		r.logger.Warn("segment model call failed", "segment", segment.ID, "err", err)
		return core.SegmentResult{
			SegmentID:     segment.ID,
			Success:       false,
			Confidence:    0,
			FailureReason: err.Error(),
			Duration:      elapsed,
		}
	}

	result := core.SegmentResult{
		SegmentID:  segment.ID,
		Success:    true,
		TokensUsed: completion.TokensUsed,
		Duration:   elapsed,
	}

	payload, err := parseFindings(completion.Text)
	if err != nil {
		// Model output is never assumed well-formed: keep the raw text
		// as a single unattributed finding, capped at low confidence.
		r.logger.Debug("unparsable segment response, keeping raw text",
			"segment", segment.ID, "err", err)
		result.Findings = []core.Finding{{Fact: completion.Text}}
		result.Confidence = min(scoreConfidence(result.Findings, 0), 0.5)
		return result
	}

	result.Findings = make([]core.Finding, 0, len(payload.Findings))
	for _, f := range payload.Findings {
		result.Findings = append(result.Findings, core.Finding{
			Fact:   f.Fact,
			Source: f.Source,
		})
	}
	result.Confidence = scoreConfidence(result.Findings, payload.Confidence)
	if len(result.Findings) == 0 {
		result.Success = false
		result.FailureReason = "model returned no findings"
		result.Confidence = 0
	}

	return result
}

// scoreConfidence combines a findings-based heuristic with the model's
// self-reported certainty, clamped to [0,1]. The heuristic rewards having
// findings at all, having several, and having cited sources; when the model
// reports its own certainty the blend weights it at 60%.
func scoreConfidence(findings []core.Finding, selfReported float64) float64 {
	if len(findings) == 0 {
		return 0
	}

	score := 0.3
	score += 0.1 * float64(min(len(findings), 3))
	for _, f := range findings {
		if f.Source != "" {
			score += 0.2
			break
		}
	}

	if selfReported > 0 {
		score = 0.6*clamp01(selfReported) + 0.4*score
	}
	return clamp01(score)
}

func (r *SegmentRunner) persist(ctx context.Context, fp core.Fingerprint, result *core.SegmentResult, attempt int) {
	rec := &core.ExecutionRecord{
		Fingerprint: fp,
		Attempt:     attempt,
		Result:      *result,
		RecordedAt:  time.Now().UTC(),
	}
	if err := r.history.RecordSegmentExecution(ctx, rec); err != nil {
		r.logger.Warn("error recording segment execution",
			"segment", result.SegmentID,
			"attempt", attempt,
			"err", err)
	}
}
