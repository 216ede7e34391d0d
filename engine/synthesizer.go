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
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/core"
)

// fallbackSynthesisConfidence is the self-reported confidence assumed when
// the synthesis output cannot be parsed as the structured shape.
const fallbackSynthesisConfidence = 0.7

// degradedSynthesisConfidence is the self-reported confidence assumed when
// the synthesis model call itself fails and the answer is assembled locally
// from the findings.
const degradedSynthesisConfidence = 0.3

// Synthesizer merges all segment findings into one final answer with
// aggregate confidence and deduplicated source attribution. Synthesis never
// fails the pipeline: every failure mode degrades to a usable answer.
type Synthesizer struct {
	model  ai.ModelClient
	logger *slog.Logger
}

// NewSynthesizer creates a synthesizer using the given model client.
func NewSynthesizer(model ai.ModelClient, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		model:  model,
		logger: logger.With("component", "synthesizer"),
	}
}

// Synthesize produces the final answer from every segment's findings,
// including zero-confidence ones, which the prompt weights down.
//
// The surfaced confidence is synthesis confidence scaled by coverage:
//
//	confidence = selfReported * (0.5 + 0.5*coverage)
//
// where coverage is the fraction of segments that succeeded. The formula is
// monotonic in both inputs, so low segment success pulls the final
// confidence down even when the synthesis call reports high certainty.
func (s *Synthesizer) Synthesize(ctx context.Context, query core.Query, segments []core.Segment, results []core.SegmentResult) *core.SynthesizedAnswer {
	completion, err := s.model.Complete(ctx, ai.CompletionRequest{
		System:      buildSynthesisSystemPrompt(),
		Prompt:      buildSynthesisPrompt(query, segments, results),
		Temperature: 0.2,
		JSONMode:    true,
	})
	if err != nil {
		s.logger.Warn("synthesis model call failed, assembling degraded answer", "err", err)
		return s.degradedAnswer(results)
	}

	answer := &core.SynthesizedAnswer{
		TokensUsed: completion.TokensUsed,
		CreatedAt:  time.Now().UTC(),
	}

	payload, perr := parseSynthesis(completion.Text)
	if perr != nil {
		// Raw text is still an answer; only the structure was lost.
		s.logger.Debug("unparsable synthesis response, keeping raw text", "err", perr)
		answer.Text = strings.TrimSpace(completion.Text)
		answer.Confidence = aggregateConfidence(fallbackSynthesisConfidence, results)
		answer.Sources = []string{}
		return answer
	}

	answer.Text = payload.Answer
	answer.Confidence = aggregateConfidence(payload.Confidence, results)
	answer.Sources = mergeSources(results, payload.Sources)
	answer.KeyPoints = payload.KeyPoints
	return answer
}

// degradedAnswer builds an answer locally when the synthesis call failed:
// the successful segments' findings, joined.
func (s *Synthesizer) degradedAnswer(results []core.SegmentResult) *core.SynthesizedAnswer {
	var b strings.Builder
	for _, result := range results {
		if !result.Success {
			continue
		}
		for _, f := range result.Findings {
			b.WriteString("- ")
			b.WriteString(f.Fact)
			b.WriteString("\n")
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		text = "No reliable findings were produced for this query."
	}

	return &core.SynthesizedAnswer{
		Text:       text,
		Confidence: aggregateConfidence(degradedSynthesisConfidence, results),
		Sources:    mergeSources(results, nil),
		CreatedAt:  time.Now().UTC(),
	}
}

// aggregateConfidence scales the synthesis step's self-reported confidence
// by segment coverage. Both inputs increase the output monotonically.
func aggregateConfidence(selfReported float64, results []core.SegmentResult) float64 {
	if len(results) == 0 {
		return clamp01(selfReported)
	}
	succeeded := 0
	for _, result := range results {
		if result.Success {
			succeeded++
		}
	}
	coverage := float64(succeeded) / float64(len(results))
	return clamp01(clamp01(selfReported) * (0.5 + 0.5*coverage))
}

// mergeSources returns the deduplicated union of every segment's finding
// sources, in first-seen order, followed by any extra sources the synthesis
// model reported.
func mergeSources(results []core.SegmentResult, reported []string) []string {
	seen := make(map[string]struct{})
	sources := make([]string, 0, len(reported))

	add := func(source string) {
		source = strings.TrimSpace(source)
		if source == "" {
			return
		}
		if _, dup := seen[source]; dup {
			return
		}
		seen[source] = struct{}{}
		sources = append(sources, source)
	}

	for _, result := range results {
		for _, f := range result.Findings {
			add(f.Source)
		}
	}
	for _, source := range reported {
		add(source)
	}
	return sources
}
