package memory

import (
	"sort"

	"github.com/narrinai/companion/store"
)

// DefaultMaxResults bounds the result set when the caller does not.
const DefaultMaxResults = 10

// RankAndTruncate orders records by importance (descending) with creation
// time as tie-break (newest first), drops records below minImportance, and
// returns at most maxResults.
//
// Pure and deterministic: the input slice is left untouched and equal inputs
// always produce the same ordering.
func RankAndTruncate(records []*store.MemoryRecord, minImportance int, maxResults int) []*store.MemoryRecord {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if minImportance < store.MinImportance {
		minImportance = store.MinImportance
	}

	ranked := make([]*store.MemoryRecord, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		if store.ClampImportance(r.Importance) < minImportance {
			continue
		}
		ranked = append(ranked, r)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		ii := store.ClampImportance(ranked[i].Importance)
		ij := store.ClampImportance(ranked[j].Importance)
		if ii != ij {
			return ii > ij
		}
		return ranked[i].CreatedTs > ranked[j].CreatedTs
	})

	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}
	return ranked
}
