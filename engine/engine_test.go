package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/ai/mock"
	"github.com/poiesic/answerit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const comparisonQuery = "Compare the populations of France and Germany"

// comparisonModel answers every request the pipeline makes for the
// comparison query: the decomposition, the three segment runs, and the
// synthesis.
func comparisonModel(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	switch {
	case req.Prompt == comparisonQuery:
		return &ai.Completion{Text: twoStageSegmentationJSON, TokensUsed: 40}, nil
	case strings.HasPrefix(req.Prompt, "Original question:"):
		return &ai.Completion{Text: `{
			"answer": "Germany has about 16 million more inhabitants than France.",
			"confidence": 0.9,
			"sources": ["https://example.org/0"],
			"key_points": ["France: 68M", "Germany: 84M"]
		}`, TokensUsed: 60}, nil
	case strings.Contains(req.Prompt, "Population of France"):
		return &ai.Completion{Text: findingsJSON(0.9, "France: 68 million"), TokensUsed: 20}, nil
	case strings.Contains(req.Prompt, "Population of Germany"):
		return &ai.Completion{Text: findingsJSON(0.9, "Germany: 84 million"), TokensUsed: 20}, nil
	default:
		return &ai.Completion{Text: findingsJSON(0.9, "Germany is larger by 16 million"), TokensUsed: 25}, nil
	}
}

func newTestEngine(t *testing.T, provider ai.Provider, opts ...Option) (*Engine, storage.HistoryStore) {
	t.Helper()
	cache, history := newTestStores(t)
	engine, err := NewEngine(provider, cache, history, opts...)
	require.NoError(t, err)
	t.Cleanup(engine.Release)
	return engine, history
}

func TestNewEngine(t *testing.T) {
	cache, history := newTestStores(t)
	provider := mock.NewMockProvider()

	t.Run("requires provider", func(t *testing.T) {
		_, err := NewEngine(nil, cache, history)
		assert.ErrorIs(t, err, ErrProviderRequired)
	})

	t.Run("requires cache", func(t *testing.T) {
		_, err := NewEngine(provider, nil, history)
		assert.ErrorIs(t, err, ErrCacheRequired)
	})

	t.Run("requires history", func(t *testing.T) {
		_, err := NewEngine(provider, cache, nil)
		assert.ErrorIs(t, err, ErrHistoryRequired)
	})

	t.Run("defaults applied", func(t *testing.T) {
		engine, err := NewEngine(provider, cache, history)
		require.NoError(t, err)
		t.Cleanup(engine.Release)
		assert.Equal(t, DefaultCacheTTL, engine.cacheTTL)
		assert.Equal(t, DefaultEscalationThreshold, engine.threshold)
		assert.Equal(t, DefaultMaxConcurrent, engine.maxConcurrent)
	})

	t.Run("options override defaults", func(t *testing.T) {
		engine, err := NewEngine(provider, cache, history,
			WithMaxConcurrent(2),
			WithEscalationThreshold(0.6))
		require.NoError(t, err)
		t.Cleanup(engine.Release)
		assert.Equal(t, 2, engine.maxConcurrent)
		assert.Equal(t, 0.6, engine.threshold)
	})
}

func TestEngine_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("comparison query end to end", func(t *testing.T) {
		client := mock.NewMockClient()
		client.CompleteFunc = comparisonModel
		engine, history := newTestEngine(t, mock.NewMockProviderWithClients(client, mock.NewMockClient()))

		outcome, err := engine.Run(ctx, "user-1", comparisonQuery, RunOptions{})
		require.NoError(t, err)

		// Two lookups in the first stage, the comparison in the second.
		require.NotNil(t, outcome.Segmentation)
		assert.Equal(t, 2, outcome.Segmentation.Graph.StageCount)
		assert.Equal(t, [][]string{{"s1", "s2"}, {"s3"}}, outcome.Segmentation.Graph.Stages)

		require.Len(t, outcome.Results, 3)
		for _, result := range outcome.Results {
			assert.True(t, result.Success)
		}
		comparison := outcome.ResultByID("s3")
		require.NotNil(t, comparison)
		assert.Equal(t, 2, comparison.CoordinationEvents, "comparison consumed both lookups")

		require.NotNil(t, outcome.Answer)
		assert.Contains(t, outcome.Answer.Text, "16 million")
		assert.Greater(t, outcome.Answer.Confidence, 0.5)

		// Sources are the deduplicated union of the segments' findings;
		// the synthesis model re-reported one of them.
		seen := map[string]int{}
		for _, source := range outcome.Answer.Sources {
			seen[source]++
		}
		for source, n := range seen {
			assert.Equal(t, 1, n, "source %q listed more than once", source)
		}

		// The synthesis landed in history.
		answers, err := history.RecentAnswers(ctx, 10)
		require.NoError(t, err)
		require.Len(t, answers, 1)
		assert.Equal(t, comparisonQuery, answers[0].QueryText)
	})

	t.Run("malformed decomposition falls back to one segment", func(t *testing.T) {
		client := mock.NewMockClient()
		client.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			switch {
			case req.Prompt == "Why is the sky blue?":
				return &ai.Completion{Text: "that question cannot be decomposed"}, nil
			case strings.HasPrefix(req.Prompt, "Original question:"):
				return &ai.Completion{Text: `{"answer": "Rayleigh scattering.", "confidence": 0.8}`}, nil
			default:
				return &ai.Completion{Text: findingsJSON(0.8, "Shorter wavelengths scatter more")}, nil
			}
		}
		engine, _ := newTestEngine(t, mock.NewMockProviderWithClients(client, mock.NewMockClient()))

		outcome, err := engine.Run(ctx, "user-1", "Why is the sky blue?", RunOptions{})
		require.NoError(t, err)

		assert.Equal(t, 1, outcome.Segmentation.Graph.StageCount)
		require.Len(t, outcome.Results, 1)
		assert.True(t, outcome.Results[0].Success)
		assert.Equal(t, "Rayleigh scattering.", outcome.Answer.Text)
	})

	t.Run("unreachable provider is the only user-visible failure", func(t *testing.T) {
		client := mock.NewMockClient()
		client.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return nil, ai.ErrProvider
		}
		escalation := mock.NewMockClient()
		escalation.CompleteFunc = client.CompleteFunc
		engine, _ := newTestEngine(t, mock.NewMockProviderWithClients(client, escalation))

		_, err := engine.Run(ctx, "user-1", "anything", RunOptions{})
		assert.ErrorIs(t, err, ai.ErrProvider)
	})

	t.Run("segment failures degrade instead of erroring", func(t *testing.T) {
		client := mock.NewMockClient()
		client.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			switch {
			case req.Prompt == comparisonQuery:
				return &ai.Completion{Text: twoStageSegmentationJSON}, nil
			case strings.HasPrefix(req.Prompt, "Original question:"):
				return nil, ai.ErrProvider
			case strings.Contains(req.Prompt, "Population of France"):
				return &ai.Completion{Text: findingsJSON(0.9, "France: 68 million")}, nil
			default:
				return nil, ai.ErrProvider
			}
		}
		escalation := mock.NewMockClient()
		escalation.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return nil, ai.ErrProvider
		}
		engine, _ := newTestEngine(t, mock.NewMockProviderWithClients(client, escalation))

		outcome, err := engine.Run(ctx, "user-1", comparisonQuery, RunOptions{})
		require.NoError(t, err)

		// Even with two failed segments and a failed synthesis call,
		// the surviving finding makes it into a degraded answer.
		require.NotNil(t, outcome.Answer)
		assert.Contains(t, outcome.Answer.Text, "France: 68 million")
		assert.Less(t, outcome.Answer.Confidence, 0.5)
	})

	t.Run("repeat query is served from cache", func(t *testing.T) {
		client := mock.NewMockClient()
		client.CompleteFunc = comparisonModel
		engine, _ := newTestEngine(t, mock.NewMockProviderWithClients(client, mock.NewMockClient()))

		_, err := engine.Run(ctx, "user-1", comparisonQuery, RunOptions{UseCache: true})
		require.NoError(t, err)
		callsAfterFirst := client.CallCount()

		outcome, err := engine.Run(ctx, "user-1", comparisonQuery, RunOptions{UseCache: true})
		require.NoError(t, err)

		// Only the synthesis call repeats; segmentation and segment
		// results come from the cache.
		assert.Equal(t, callsAfterFirst+1, client.CallCount())
		require.Len(t, outcome.Results, 3)
		for _, result := range outcome.Results {
			assert.True(t, result.Success)
		}
	})

	t.Run("stage limit", func(t *testing.T) {
		client := mock.NewMockClient()
		client.CompleteFunc = comparisonModel
		engine, _ := newTestEngine(t, mock.NewMockProviderWithClients(client, mock.NewMockClient()))

		outcome, err := engine.Run(ctx, "user-1", comparisonQuery, RunOptions{MaxStages: 1})
		require.NoError(t, err)

		comparison := outcome.ResultByID("s3")
		require.NotNil(t, comparison)
		assert.False(t, comparison.Success)
		assert.Equal(t, "segment not executed", comparison.FailureReason)
	})
}
