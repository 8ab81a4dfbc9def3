package memory

import (
	"testing"

	"github.com/narrinai/companion/store"
)

func TestRankAndTruncateOrdering(t *testing.T) {
	// Importances [3,9,5,9]; the newer 9 must come first.
	records := []*store.MemoryRecord{
		{ID: "a", Importance: 3, CreatedTs: 100},
		{ID: "b", Importance: 9, CreatedTs: 200},
		{ID: "c", Importance: 5, CreatedTs: 300},
		{ID: "d", Importance: 9, CreatedTs: 400},
	}

	got := RankAndTruncate(records, 1, 10)
	wantOrder := []string{"d", "b", "c", "a"}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d records, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestRankAndTruncateLimits(t *testing.T) {
	records := make([]*store.MemoryRecord, 0, 100)
	for i := 0; i < 100; i++ {
		records = append(records, &store.MemoryRecord{
			Importance: 1 + i%10,
			CreatedTs:  int64(i),
		})
	}

	got := RankAndTruncate(records, 1, 5)
	if len(got) != 5 {
		t.Fatalf("got %d records, want 5", len(got))
	}
	for _, r := range got {
		if r.Importance != 10 {
			t.Errorf("truncation must keep the highest-ranked records, got importance %d", r.Importance)
		}
	}
}

func TestRankAndTruncateMinImportance(t *testing.T) {
	records := []*store.MemoryRecord{
		{ID: "low", Importance: 2},
		{ID: "mid", Importance: 5},
		{ID: "high", Importance: 9},
	}

	got := RankAndTruncate(records, 5, 10)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].ID != "high" || got[1].ID != "mid" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestRankAndTruncateDefaults(t *testing.T) {
	records := make([]*store.MemoryRecord, 0, 30)
	for i := 0; i < 30; i++ {
		records = append(records, &store.MemoryRecord{Importance: 5, CreatedTs: int64(i)})
	}

	// Zero maxResults falls back to the default bound; zero minImportance
	// excludes nothing.
	got := RankAndTruncate(records, 0, 0)
	if len(got) != DefaultMaxResults {
		t.Errorf("got %d records, want %d", len(got), DefaultMaxResults)
	}
}

func TestRankAndTruncateDoesNotMutateInput(t *testing.T) {
	records := []*store.MemoryRecord{
		{ID: "a", Importance: 1, CreatedTs: 1},
		{ID: "b", Importance: 9, CreatedTs: 2},
	}

	RankAndTruncate(records, 1, 10)
	if records[0].ID != "a" || records[1].ID != "b" {
		t.Error("input slice order changed")
	}
}

func TestRankAndTruncateUnsetImportanceUsesDefault(t *testing.T) {
	records := []*store.MemoryRecord{
		{ID: "unset", Importance: 0, CreatedTs: 1},
		{ID: "low", Importance: 3, CreatedTs: 2},
	}

	// Unset importance counts as the default (5) and outranks 3.
	got := RankAndTruncate(records, 1, 10)
	if got[0].ID != "unset" {
		t.Errorf("got %s first, want unset", got[0].ID)
	}
}
