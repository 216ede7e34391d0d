package engine

import (
	"context"
	"testing"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/ai/mock"
	"github.com/poiesic/answerit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizer_Synthesize(t *testing.T) {
	ctx := context.Background()
	query := core.NewQuery("user-1", "Compare the populations of France and Germany", "m")
	segments := []core.Segment{
		{ID: "s1", Type: "factual_lookup", Text: "Population of France"},
		{ID: "s2", Type: "factual_lookup", Text: "Population of Germany"},
	}
	results := []core.SegmentResult{
		{
			SegmentID:  "s1",
			Success:    true,
			Confidence: 0.8,
			Findings:   []core.Finding{{Fact: "France: 68 million", Source: "https://example.org/fr"}},
		},
		{
			SegmentID:  "s2",
			Success:    true,
			Confidence: 0.9,
			Findings:   []core.Finding{{Fact: "Germany: 84 million", Source: "https://example.org/de"}},
		},
	}

	t.Run("structured response", func(t *testing.T) {
		client := mock.NewMockClient()
		client.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: `{
				"answer": "Germany has about 16 million more inhabitants than France.",
				"confidence": 0.9,
				"sources": ["https://example.org/de"],
				"key_points": ["France: 68M", "Germany: 84M"]
			}`, TokensUsed: 55}, nil
		}
		synthesizer := NewSynthesizer(client, nil)

		answer := synthesizer.Synthesize(ctx, query, segments, results)

		require.NotNil(t, answer)
		assert.Contains(t, answer.Text, "16 million")
		assert.Len(t, answer.KeyPoints, 2)
		assert.Equal(t, 55, answer.TokensUsed)
		// Full coverage: confidence is the model's own, undiluted.
		assert.InDelta(t, 0.9, answer.Confidence, 1e-9)
	})

	t.Run("sources are the deduplicated union", func(t *testing.T) {
		client := mock.NewMockClient()
		client.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: `{
				"answer": "ok",
				"confidence": 0.8,
				"sources": ["https://example.org/de", "https://example.org/extra"]
			}`}, nil
		}
		synthesizer := NewSynthesizer(client, nil)

		answer := synthesizer.Synthesize(ctx, query, segments, results)

		assert.Equal(t, []string{
			"https://example.org/fr",
			"https://example.org/de",
			"https://example.org/extra",
		}, answer.Sources)
	})

	t.Run("partial failure scales confidence down", func(t *testing.T) {
		client := mock.NewMockClient()
		client.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: `{"answer": "best effort", "confidence": 0.9}`}, nil
		}
		synthesizer := NewSynthesizer(client, nil)

		degraded := []core.SegmentResult{
			results[0],
			{SegmentID: "s2", Success: false, FailureReason: "model unavailable"},
		}
		answer := synthesizer.Synthesize(ctx, query, segments, degraded)

		// Half coverage: 0.9 * (0.5 + 0.5*0.5) = 0.675.
		assert.InDelta(t, 0.675, answer.Confidence, 1e-9)
		assert.Less(t, answer.Confidence, 0.9)
	})

	t.Run("failed segments flagged low confidence in the prompt", func(t *testing.T) {
		var prompt string
		client := mock.NewMockClient()
		client.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			prompt = req.Prompt
			return &ai.Completion{Text: `{"answer": "x", "confidence": 0.5}`}, nil
		}
		synthesizer := NewSynthesizer(client, nil)

		degraded := []core.SegmentResult{
			results[0],
			{SegmentID: "s2", Success: false, FailureReason: "model unavailable"},
		}
		synthesizer.Synthesize(ctx, query, segments, degraded)

		assert.Contains(t, prompt, "[LOW CONFIDENCE]")
	})

	t.Run("unparsable response keeps raw text", func(t *testing.T) {
		client := mock.NewMockClient()
		client.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: "Germany is the larger country by population."}, nil
		}
		synthesizer := NewSynthesizer(client, nil)

		answer := synthesizer.Synthesize(ctx, query, segments, results)

		assert.Equal(t, "Germany is the larger country by population.", answer.Text)
		// Fallback confidence assumes 0.7, scaled by full coverage.
		assert.InDelta(t, 0.7, answer.Confidence, 1e-9)
		assert.Empty(t, answer.Sources)
	})

	t.Run("model failure assembles degraded answer from findings", func(t *testing.T) {
		client := mock.NewMockClient()
		client.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return nil, ai.ErrProvider
		}
		synthesizer := NewSynthesizer(client, nil)

		answer := synthesizer.Synthesize(ctx, query, segments, results)

		require.NotNil(t, answer)
		assert.Contains(t, answer.Text, "France: 68 million")
		assert.Contains(t, answer.Text, "Germany: 84 million")
		assert.Equal(t, []string{"https://example.org/fr", "https://example.org/de"}, answer.Sources)
		assert.InDelta(t, degradedSynthesisConfidence, answer.Confidence, 1e-9)
	})

	t.Run("no findings at all still answers", func(t *testing.T) {
		client := mock.NewMockClient()
		client.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return nil, ai.ErrProvider
		}
		synthesizer := NewSynthesizer(client, nil)

		failed := []core.SegmentResult{
			{SegmentID: "s1", Success: false},
			{SegmentID: "s2", Success: false},
		}
		answer := synthesizer.Synthesize(ctx, query, segments, failed)

		require.NotNil(t, answer)
		assert.NotEmpty(t, answer.Text)
		assert.Zero(t, len(answer.Sources))
	})
}

func TestAggregateConfidence(t *testing.T) {
	success := core.SegmentResult{Success: true}
	failure := core.SegmentResult{Success: false}

	t.Run("monotonic in coverage", func(t *testing.T) {
		none := aggregateConfidence(0.8, []core.SegmentResult{failure, failure})
		half := aggregateConfidence(0.8, []core.SegmentResult{success, failure})
		full := aggregateConfidence(0.8, []core.SegmentResult{success, success})
		assert.Less(t, none, half)
		assert.Less(t, half, full)
	})

	t.Run("monotonic in self-reported confidence", func(t *testing.T) {
		results := []core.SegmentResult{success, failure}
		assert.Less(t, aggregateConfidence(0.3, results), aggregateConfidence(0.8, results))
	})

	t.Run("clamped to unit interval", func(t *testing.T) {
		results := []core.SegmentResult{success}
		assert.LessOrEqual(t, aggregateConfidence(4.2, results), 1.0)
		assert.GreaterOrEqual(t, aggregateConfidence(-1.0, results), 0.0)
	})

	t.Run("no results passes self-reported through", func(t *testing.T) {
		assert.InDelta(t, 0.6, aggregateConfidence(0.6, nil), 1e-9)
	})
}
