package storage

import (
	"context"
	"time"

	"github.com/poiesic/answerit/core"
)

// Cache memoizes segmentation and segment execution results with a
// time-to-live. Entries are immutable once written except for replacement
// after expiry-driven recomputation; last-writer-wins is acceptable.
// Implementations must be thread-safe and support concurrent access.
type Cache interface {
	// GetSegmentation returns the live cached segmentation for a query
	// fingerprint. Returns ErrCacheMiss when absent or expired.
	GetSegmentation(ctx context.Context, fp core.Fingerprint) (*core.Segmentation, error)

	// PutSegmentation stores a segmentation under the query fingerprint
	// with the given TTL.
	PutSegmentation(ctx context.Context, seg *core.Segmentation, ttl time.Duration) error

	// GetSegmentResult returns the live cached result for one segment of a
	// query. Returns ErrCacheMiss when absent or expired.
	GetSegmentResult(ctx context.Context, fp core.Fingerprint, segmentID string) (*core.SegmentResult, error)

	// PutSegmentResult stores a segment result under (fingerprint,
	// segment id) with the given TTL.
	PutSegmentResult(ctx context.Context, fp core.Fingerprint, result *core.SegmentResult, ttl time.Duration) error

	// Close closes the cache and releases resources.
	Close() error
}

// HistoryStore is the persistence sink for execution history: append-only
// records of segmentations, segment execution attempts and synthesized
// answers. Writes are never contended and failures must never block the
// pipeline; the engine logs and ignores them.
type HistoryStore interface {
	// RecordSegmentation persists the segments and execution graph
	// produced for a query.
	RecordSegmentation(ctx context.Context, seg *core.Segmentation) error

	// RecordSegmentExecution persists one segment execution attempt,
	// including failed and escalated ones.
	RecordSegmentExecution(ctx context.Context, rec *core.ExecutionRecord) error

	// RecordSynthesis persists the final synthesized answer for a query
	// execution.
	RecordSynthesis(ctx context.Context, rec *core.SynthesisRecord) error

	// RecentAnswers returns up to limit synthesis records, most recent
	// first.
	RecentAnswers(ctx context.Context, limit int) ([]*core.SynthesisRecord, error)

	// Close closes the store and releases resources.
	Close() error
}
