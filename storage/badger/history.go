package badger

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/storage"
)

// HistoryStore implements storage.HistoryStore on BadgerDB. Records are
// append-only: keys embed a BigEndian timestamp so chronological scans are
// plain prefix iterations.
type HistoryStore struct {
	backend *Backend
	logger  *slog.Logger
}

// NewHistoryStore creates a history store on the given backend.
func NewHistoryStore(backend *Backend) (*HistoryStore, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &HistoryStore{
		backend: backend,
		logger:  slog.Default().With("component", "badger-history"),
	}, nil
}

var _ storage.HistoryStore = (*HistoryStore)(nil)

// RecordSegmentation persists the segmentation produced for a query.
func (h *HistoryStore) RecordSegmentation(ctx context.Context, seg *core.Segmentation) error {
	recordedAt := seg.CreatedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	return h.set(makeSegmentationHistKey(recordedAt, seg.Fingerprint), storage.MarshalSegmentation(seg))
}

// RecordSegmentExecution persists one segment execution attempt.
func (h *HistoryStore) RecordSegmentExecution(ctx context.Context, rec *core.ExecutionRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	key := makeExecutionHistKey(rec.RecordedAt, rec.Fingerprint, rec.Result.SegmentID, rec.Attempt)
	return h.set(key, storage.MarshalExecutionRecord(rec))
}

// RecordSynthesis persists the final synthesized answer.
func (h *HistoryStore) RecordSynthesis(ctx context.Context, rec *core.SynthesisRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	return h.set(makeSynthesisHistKey(rec.RecordedAt, rec.Fingerprint), storage.MarshalSynthesisRecord(rec))
}

// RecentAnswers retrieves up to limit synthesis records, most recent first.
func (h *HistoryStore) RecentAnswers(ctx context.Context, limit int) ([]*core.SynthesisRecord, error) {
	if h.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var results []*core.SynthesisRecord
	err := h.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent records first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key with the synthesis prefix
		startKey := makeSynthesisHistKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC), "")
		prefix := []byte(synthesisHistPrefix + ":")

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var rec *core.SynthesisRecord
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				rec, err = storage.UnmarshalSynthesisRecord(val)
				return err
			}); err != nil {
				return err
			}

			results = append(results, rec)
			count++
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ExecutionsFor retrieves every persisted execution attempt for a query, in
// chronological order. Used for audit inspection, not by the pipeline.
func (h *HistoryStore) ExecutionsFor(ctx context.Context, fp core.Fingerprint) ([]*core.ExecutionRecord, error) {
	if h.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var results []*core.ExecutionRecord
	err := h.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(executionHistPrefix + ":")

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var rec *core.ExecutionRecord
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				rec, err = storage.UnmarshalExecutionRecord(val)
				return err
			}); err != nil {
				return err
			}
			if rec.Fingerprint == fp {
				results = append(results, rec)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Close is a no-op; the shared backend owns the database lifecycle.
func (h *HistoryStore) Close() error {
	return nil
}

func (h *HistoryStore) set(key, val []byte) error {
	if h.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return h.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set(key, val)
	}, true)
}
