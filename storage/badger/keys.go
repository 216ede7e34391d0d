package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/answerit/core"
)

// Key prefixes for different data types
const (
	segmentationCachePrefix = "segcac"
	resultCachePrefix       = "rescac"
	segmentationHistPrefix  = "seghis"
	executionHistPrefix     = "exehis"
	synthesisHistPrefix     = "synhis"
)

// makeSegmentationCacheKey generates the cache key for a query's segmentation.
func makeSegmentationCacheKey(fp core.Fingerprint) []byte {
	return []byte(fmt.Sprintf("%s:%s", segmentationCachePrefix, fp))
}

// makeResultCacheKey generates the cache key for one segment's result.
// Format: prefix:fingerprint:segmentID
func makeResultCacheKey(fp core.Fingerprint, segmentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", resultCachePrefix, fp, segmentID))
}

// makeTimestampedKey generates a composite history key whose lexicographic
// order matches chronological order.
// Format: prefix:timestamp:suffix
func makeTimestampedKey(prefix string, timestamp time.Time, suffix string) []byte {
	prefixBytes := []byte(prefix + ":")
	prefixSize := len(prefixBytes)
	buf := make([]byte, prefixSize+8+len(suffix))
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	copy(buf[offset:], suffix)
	return buf
}

// makeSegmentationHistKey generates the history key for a segmentation record.
func makeSegmentationHistKey(timestamp time.Time, fp core.Fingerprint) []byte {
	return makeTimestampedKey(segmentationHistPrefix, timestamp, string(fp))
}

// makeExecutionHistKey generates the history key for one execution attempt.
// The segment id and attempt keep concurrent writes for the same query from
// colliding on the timestamp.
func makeExecutionHistKey(timestamp time.Time, fp core.Fingerprint, segmentID string, attempt int) []byte {
	suffix := fmt.Sprintf("%s:%s:%d", fp, segmentID, attempt)
	return makeTimestampedKey(executionHistPrefix, timestamp, suffix)
}

// makeSynthesisHistKey generates the history key for a synthesized answer.
func makeSynthesisHistKey(timestamp time.Time, fp core.Fingerprint) []byte {
	return makeTimestampedKey(synthesisHistPrefix, timestamp, string(fp))
}
