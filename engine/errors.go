package engine

import "errors"

var (
	// ErrSegmentation indicates the decomposition model produced output
	// that could not be turned into a valid segment DAG. Callers recover
	// by falling back to a single-segment graph.
	ErrSegmentation = errors.New("query segmentation failed")

	// ErrSynthesis indicates the synthesis model produced output that
	// could not be parsed into the structured answer shape. Recovered by
	// returning the raw text as the answer.
	ErrSynthesis = errors.New("synthesis output unparsable")

	// ErrProviderRequired indicates a nil model provider was passed.
	ErrProviderRequired = errors.New("model provider is required")

	// ErrCacheRequired indicates a nil cache was passed.
	ErrCacheRequired = errors.New("cache is required")

	// ErrHistoryRequired indicates a nil history store was passed.
	ErrHistoryRequired = errors.New("history store is required")
)
