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


package badger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/storage"
)

// Cache implements storage.Cache on BadgerDB. Expiry uses badger's native
// entry TTL, so expired entries surface as key-not-found without any sweeper.
type Cache struct {
	backend *Backend
	logger  *slog.Logger
}

// NewCache creates a cache on the given backend.
func NewCache(backend *Backend) (*Cache, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &Cache{
		backend: backend,
		logger:  slog.Default().With("component", "badger-cache"),
	}, nil
}

var _ storage.Cache = (*Cache)(nil)

// GetSegmentation returns the live cached segmentation for a fingerprint.
func (c *Cache) GetSegmentation(ctx context.Context, fp core.Fingerprint) (*core.Segmentation, error) {
	var seg *core.Segmentation
	err := c.get(makeSegmentationCacheKey(fp), func(val []byte) error {
		var err error
		seg, err = storage.UnmarshalSegmentation(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// PutSegmentation stores a segmentation with the given TTL.
func (c *Cache) PutSegmentation(ctx context.Context, seg *core.Segmentation, ttl time.Duration) error {
	return c.put(makeSegmentationCacheKey(seg.Fingerprint), storage.MarshalSegmentation(seg), ttl)
}

// GetSegmentResult returns the live cached result for one segment.
func (c *Cache) GetSegmentResult(ctx context.Context, fp core.Fingerprint, segmentID string) (*core.SegmentResult, error) {
	var result *core.SegmentResult
	err := c.get(makeResultCacheKey(fp, segmentID), func(val []byte) error {
		var err error
		result, err = storage.UnmarshalSegmentResult(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PutSegmentResult stores a segment result with the given TTL.
func (c *Cache) PutSegmentResult(ctx context.Context, fp core.Fingerprint, result *core.SegmentResult, ttl time.Duration) error {
	return c.put(makeResultCacheKey(fp, result.SegmentID), storage.MarshalSegmentResult(result), ttl)
}

// Close is a no-op; the shared backend owns the database lifecycle.
func (c *Cache) Close() error {
	return nil
}

func (c *Cache) get(key []byte, decode func(val []byte) error) error {
	if c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrCacheMiss
			}
			return err
		}
		return item.Value(decode)
	}, false)
}

func (c *Cache) put(key, val []byte, ttl time.Duration) error {
	if c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return c.backend.WithTx(func(tx *badger.Txn) error {
		entry := badger.NewEntry(key, val)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return tx.SetEntry(entry)
	}, true)
}
