package engine

import (
	"fmt"
	"testing"

	"github.com/poiesic/answerit/storage"
	badgerstore "github.com/poiesic/answerit/storage/badger"
	"github.com/stretchr/testify/require"
)

// newTestStores returns in-memory cache and history stores, closed when the
// test ends.
func newTestStores(t *testing.T) (storage.Cache, storage.HistoryStore) {
	t.Helper()
	cache, history, backend, err := badgerstore.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return cache, history
}

// findingsJSON is a canned well-formed segment response.
func findingsJSON(confidence float64, facts ...string) string {
	out := `{"findings": [`
	for i, fact := range facts {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf(`{"fact": %q, "source": "https://example.org/%d"}`, fact, i)
	}
	out += fmt.Sprintf(`], "confidence": %.2f}`, confidence)
	return out
}

// twoStageSegmentationJSON decomposes a comparison query into two parallel
// lookups feeding one comparison segment.
const twoStageSegmentationJSON = `{
  "segments": [
    {"id": "s1", "type": "factual_lookup", "text": "Population of France", "depends_on": []},
    {"id": "s2", "type": "factual_lookup", "text": "Population of Germany", "depends_on": []},
    {"id": "s3", "type": "comparison", "text": "Compare the two populations", "depends_on": ["s1", "s2"]}
  ]
}`
