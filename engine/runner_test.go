package engine

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/answerit/ai"
	"github.com/poiesic/answerit/ai/mock"
	"github.com/poiesic/answerit/core"
	badgerstore "github.com/poiesic/answerit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, provider ai.Provider, threshold float64) (*SegmentRunner, *badgerstore.HistoryStore) {
	t.Helper()
	cache, history := newTestStores(t)
	runner := NewSegmentRunner(provider, cache, history, threshold, time.Minute, nil)
	return runner, history.(*badgerstore.HistoryStore)
}

func TestSegmentRunner_Run(t *testing.T) {
	ctx := context.Background()
	fp := core.QueryFingerprint("test query", "test-model")
	segment := core.Segment{ID: "s1", Type: "factual_lookup", Text: "Population of France"}

	t.Run("confident first attempt is not escalated", func(t *testing.T) {
		primary := mock.NewMockClient()
		primary.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: findingsJSON(0.9, "France has about 68 million inhabitants"), TokensUsed: 30}, nil
		}
		escalation := mock.NewMockClient()
		runner, _ := newTestRunner(t, mock.NewMockProviderWithClients(primary, escalation), 0.4)

		result := runner.Run(ctx, fp, segment, nil, false)

		assert.True(t, result.Success)
		assert.False(t, result.WasEscalated)
		assert.GreaterOrEqual(t, result.Confidence, 0.4)
		assert.LessOrEqual(t, result.Confidence, 1.0)
		assert.Equal(t, 1, primary.CallCount())
		assert.Equal(t, 0, escalation.CallCount())
		assert.Equal(t, 30, result.TokensUsed)
	})

	t.Run("low confidence escalates exactly once", func(t *testing.T) {
		weak := func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: findingsJSON(0.1, "maybe"), TokensUsed: 10}, nil
		}
		primary := mock.NewMockClient()
		primary.CompleteFunc = weak
		escalation := mock.NewMockClient()
		escalation.CompleteFunc = weak
		runner, _ := newTestRunner(t, mock.NewMockProviderWithClients(primary, escalation), 0.4)

		result := runner.Run(ctx, fp, segment, nil, false)

		// Two calls at most, even when the escalation stays weak.
		assert.Equal(t, 1, primary.CallCount())
		assert.Equal(t, 1, escalation.CallCount())
		assert.True(t, result.WasEscalated)
		assert.Equal(t, 20, result.TokensUsed, "tokens summed across attempts")
	})

	t.Run("escalation keeps the better attempt", func(t *testing.T) {
		primary := mock.NewMockClient()
		primary.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: findingsJSON(0.1, "guess")}, nil
		}
		escalation := mock.NewMockClient()
		escalation.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: findingsJSON(0.95, "France has about 68 million inhabitants")}, nil
		}
		runner, _ := newTestRunner(t, mock.NewMockProviderWithClients(primary, escalation), 0.4)

		result := runner.Run(ctx, fp, segment, nil, false)

		require.True(t, result.Success)
		assert.True(t, result.WasEscalated)
		assert.Equal(t, "France has about 68 million inhabitants", result.Findings[0].Fact)
	})

	t.Run("escalation prompt carries the retry instruction", func(t *testing.T) {
		primary := mock.NewMockClient()
		primary.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return nil, ai.ErrProvider
		}
		var escalatedSystem string
		escalation := mock.NewMockClient()
		escalation.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			escalatedSystem = req.System
			return &ai.Completion{Text: findingsJSON(0.8, "fact")}, nil
		}
		runner, _ := newTestRunner(t, mock.NewMockProviderWithClients(primary, escalation), 0.4)

		result := runner.Run(ctx, fp, segment, nil, false)

		require.True(t, result.Success)
		assert.Contains(t, escalatedSystem, escalationSuffix)
	})

	t.Run("both attempts failing yields failed result", func(t *testing.T) {
		fail := func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return nil, ai.ErrProvider
		}
		primary := mock.NewMockClient()
		primary.CompleteFunc = fail
		escalation := mock.NewMockClient()
		escalation.CompleteFunc = fail
		runner, _ := newTestRunner(t, mock.NewMockProviderWithClients(primary, escalation), 0.4)

		result := runner.Run(ctx, fp, segment, nil, false)

		assert.False(t, result.Success)
		assert.Zero(t, result.Confidence)
		assert.NotEmpty(t, result.FailureReason)
	})

	t.Run("unparsable output kept as raw finding at capped confidence", func(t *testing.T) {
		primary := mock.NewMockClient()
		primary.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: "France has roughly 68 million people."}, nil
		}
		escalation := mock.NewMockClient()
		escalation.CompleteFunc = primary.CompleteFunc
		runner, _ := newTestRunner(t, mock.NewMockProviderWithClients(primary, escalation), 0.4)

		result := runner.Run(ctx, fp, segment, nil, false)

		require.True(t, result.Success)
		require.Len(t, result.Findings, 1)
		assert.Equal(t, "France has roughly 68 million people.", result.Findings[0].Fact)
		assert.LessOrEqual(t, result.Confidence, 0.5)
	})

	t.Run("every attempt is persisted including failures", func(t *testing.T) {
		primary := mock.NewMockClient()
		primary.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return nil, ai.ErrProvider
		}
		escalation := mock.NewMockClient()
		escalation.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: findingsJSON(0.8, "fact")}, nil
		}
		runner, history := newTestRunner(t, mock.NewMockProviderWithClients(primary, escalation), 0.4)

		runner.Run(ctx, fp, segment, nil, false)

		records, err := history.ExecutionsFor(ctx, fp)
		require.NoError(t, err)
		require.Len(t, records, 2)

		failures := 0
		for _, rec := range records {
			if !rec.Result.Success {
				failures++
			}
		}
		assert.Equal(t, 1, failures)
	})

	t.Run("successful result served from cache on repeat", func(t *testing.T) {
		primary := mock.NewMockClient()
		primary.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: findingsJSON(0.9, "cached fact")}, nil
		}
		runner, _ := newTestRunner(t, mock.NewMockProviderWithClients(primary, mock.NewMockClient()), 0.4)

		first := runner.Run(ctx, fp, segment, nil, true)
		require.True(t, first.Success)
		require.Equal(t, 1, primary.CallCount())

		second := runner.Run(ctx, fp, segment, nil, true)
		assert.Equal(t, 1, primary.CallCount(), "repeat should hit the result cache")
		assert.Equal(t, first.Findings, second.Findings)
	})

	t.Run("counts consumed dependencies as coordination events", func(t *testing.T) {
		primary := mock.NewMockClient()
		primary.CompleteFunc = func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: findingsJSON(0.9, "combined")}, nil
		}
		runner, _ := newTestRunner(t, mock.NewMockProviderWithClients(primary, mock.NewMockClient()), 0.4)

		deps := []DependencyFindings{
			{SegmentID: "a", Findings: []core.Finding{{Fact: "x"}}, Confidence: 0.8},
			{SegmentID: "b"}, // failed dependency, no findings
			{SegmentID: "c", Findings: []core.Finding{{Fact: "y"}}, Confidence: 0.7},
		}
		result := runner.Run(ctx, fp, core.Segment{ID: "s9", Type: "comparison", Text: "compare", DependsOn: []string{"a", "b", "c"}}, deps, false)

		assert.Equal(t, 2, result.CoordinationEvents)
	})
}

func TestScoreConfidence(t *testing.T) {
	t.Run("no findings scores zero", func(t *testing.T) {
		assert.Zero(t, scoreConfidence(nil, 0.9))
	})

	t.Run("heuristic rewards volume and sources", func(t *testing.T) {
		bare := scoreConfidence([]core.Finding{{Fact: "a"}}, 0)
		sourced := scoreConfidence([]core.Finding{{Fact: "a", Source: "x"}}, 0)
		many := scoreConfidence([]core.Finding{
			{Fact: "a", Source: "x"},
			{Fact: "b"},
			{Fact: "c"},
		}, 0)
		assert.Greater(t, sourced, bare)
		assert.Greater(t, many, sourced)
	})

	t.Run("always within unit interval", func(t *testing.T) {
		findings := []core.Finding{
			{Fact: "a", Source: "x"},
			{Fact: "b", Source: "y"},
			{Fact: "c", Source: "z"},
			{Fact: "d"},
		}
		assert.LessOrEqual(t, scoreConfidence(findings, 5.0), 1.0)
		assert.GreaterOrEqual(t, scoreConfidence(findings, -3.0), 0.0)
	})
}
