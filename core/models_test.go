package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryFingerprint(t *testing.T) {
	t.Run("stable across whitespace and case", func(t *testing.T) {
		a := QueryFingerprint("Compare   X and Y", "m1")
		b := QueryFingerprint("compare x AND y", "m1")
		assert.Equal(t, a, b)
	})

	t.Run("model identity is part of the key", func(t *testing.T) {
		a := QueryFingerprint("compare x and y", "m1")
		b := QueryFingerprint("compare x and y", "m2")
		assert.NotEqual(t, a, b)
	})

	t.Run("different queries differ", func(t *testing.T) {
		a := QueryFingerprint("compare x and y", "m1")
		b := QueryFingerprint("compare y and z", "m1")
		assert.NotEqual(t, a, b)
	})
}

func TestNewQuery(t *testing.T) {
	query := NewQuery("user-1", "what is Go?", "m1")
	assert.Equal(t, "user-1", query.UserID)
	assert.Equal(t, QueryFingerprint("what is Go?", "m1"), query.Fingerprint)
	assert.False(t, query.SubmittedAt.IsZero())
}

func TestValidateSegments(t *testing.T) {
	t.Run("valid set", func(t *testing.T) {
		err := ValidateSegments([]Segment{
			{ID: "s1", Text: "a"},
			{ID: "s2", Text: "b", DependsOn: []string{"s1"}},
		})
		require.NoError(t, err)
	})

	t.Run("empty set", func(t *testing.T) {
		err := ValidateSegments(nil)
		assert.ErrorIs(t, err, ErrNoSegments)
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := ValidateSegments([]Segment{
			{ID: "s1", Text: "a"},
			{ID: "s1", Text: "b"},
		})
		assert.ErrorIs(t, err, ErrDuplicateSegmentID)
	})

	t.Run("empty text", func(t *testing.T) {
		err := ValidateSegments([]Segment{{ID: "s1"}})
		assert.ErrorIs(t, err, ErrEmptySegmentText)
	})

	t.Run("unknown dependency", func(t *testing.T) {
		err := ValidateSegments([]Segment{
			{ID: "s1", Text: "a", DependsOn: []string{"nope"}},
		})
		assert.ErrorIs(t, err, ErrUnknownDependency)
	})
}

func TestSearchOutcome_ResultByID(t *testing.T) {
	outcome := &SearchOutcome{
		Results: []SegmentResult{
			{SegmentID: "s1", Confidence: 0.9},
			{SegmentID: "s2", Confidence: 0.4},
		},
	}

	res := outcome.ResultByID("s2")
	require.NotNil(t, res)
	assert.Equal(t, 0.4, res.Confidence)
	assert.Nil(t, outcome.ResultByID("missing"))
}
