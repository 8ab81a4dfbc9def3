package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/narrinai/companion/internal/profile"
	"github.com/narrinai/companion/store"
)

func newTestDriver(t *testing.T, handler http.Handler) *Driver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := &profile.Profile{
		Driver:           "airtable",
		AirtableAPIKey:   "key-test",
		AirtableBaseID:   "appTEST",
		AirtableBaseURL:  server.URL,
		AirtablePageSize: 100,
	}
	driver, err := NewDriver(p)
	require.NoError(t, err)
	return driver.(*Driver)
}

func TestListMemoryRecordsNormalization(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer key-test", r.Header.Get("Authorization"))
		require.Contains(t, r.URL.Path, "/appTEST/Memories")

		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{
					"id":          "recM1",
					"createdTime": "2025-06-01T10:00:00.000Z",
					"fields": map[string]any{
						"User":           []string{"recU1"},
						"Character":      []string{"recCHAR1"},
						"Role":           "user",
						"Message":        "I adopted a dog",
						"Importance":     float64(8),
						"EmotionalState": "happy",
						"Tags":           []string{"pets"},
						"Metadata":       `{"source":"chatgpt","import_date":"2025-01-01"}`,
					},
				},
				{
					"id":          "recM2",
					"createdTime": "2025-05-01T10:00:00.000Z",
					"fields": map[string]any{
						// Legacy row: bare UID string, character as slug.
						"UID":            "uid-1",
						"Character":      "bob",
						"Role":           "user",
						"Message":        "older record",
						"EmotionalState": "bogus-state",
						"Metadata":       "{not json",
					},
				},
			},
		})
	})

	driver := newTestDriver(t, handler)
	list, err := driver.ListMemoryRecords(context.Background(), &store.FindMemoryRecord{Limit: 50})
	require.NoError(t, err)
	require.Len(t, list, 2)

	first := list[0]
	require.Equal(t, []string{"recU1"}, first.OwnerRefs)
	require.Equal(t, []string{"recCHAR1"}, first.CharacterRefs)
	require.Empty(t, first.CharacterSlug)
	require.Equal(t, 8, first.Importance)
	require.Equal(t, store.EmotionHappy, first.EmotionalState)
	require.NotNil(t, first.Metadata)
	require.Equal(t, "chatgpt", first.Metadata.Source)

	second := list[1]
	require.Equal(t, "uid-1", second.OwnerUID)
	require.Equal(t, "bob", second.CharacterSlug)
	require.Empty(t, second.CharacterRefs)
	// Invalid enum defaults to neutral; malformed metadata is dropped.
	require.Equal(t, store.EmotionNeutral, second.EmotionalState)
	require.Nil(t, second.Metadata)
}

func TestListAllFollowsOffsetPagination(t *testing.T) {
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("offset") == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"records": []map[string]any{
					{"id": "recM1", "createdTime": "2025-06-01T10:00:00.000Z", "fields": map[string]any{"Role": "user"}},
				},
				"offset": "next-page",
			})
			return
		}
		require.Equal(t, "next-page", r.URL.Query().Get("offset"))
		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{"id": "recM2", "createdTime": "2025-05-01T10:00:00.000Z", "fields": map[string]any{"Role": "user"}},
			},
		})
	})

	driver := newTestDriver(t, handler)
	list, err := driver.ListMemoryRecords(context.Background(), &store.FindMemoryRecord{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 2, calls)
}

func TestUserLookupFormula(t *testing.T) {
	var gotFormula string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFormula = r.URL.Query().Get("filterByFormula")
		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{"id": "recU1", "createdTime": "2025-01-01T00:00:00.000Z", "fields": map[string]any{
					"UID": "uid-1", "Email": "u@example.com", "Name": "Ada",
				}},
			},
		})
	})

	driver := newTestDriver(t, handler)
	uid := "uid-1"
	list, err := driver.ListUserIdentities(context.Background(), &store.FindUserIdentity{UID: &uid})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "recU1", list[0].ID)
	require.Equal(t, "{UID}='uid-1'", gotFormula)
}

func TestServerErrorMapsToUpstreamUnavailable(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	driver := newTestDriver(t, handler)
	_, err := driver.ListMemoryRecords(context.Background(), &store.FindMemoryRecord{})
	require.ErrorIs(t, err, store.ErrUpstreamUnavailable)
}

func TestAdvanceRelationshipSummaryCreatesThenUpdates(t *testing.T) {
	var createCalls, updateCalls int
	var existing *map[string]any

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			records := []any{}
			if existing != nil {
				records = append(records, *existing)
			}
			json.NewEncoder(w).Encode(map[string]any{"records": records})
		case r.Method == http.MethodPost:
			createCalls++
			var body struct {
				Fields map[string]any `json:"fields"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			record := map[string]any{
				"id":          "recREL1",
				"createdTime": "2025-06-01T10:00:00.000Z",
				"fields":      body.Fields,
			}
			existing = &record
			json.NewEncoder(w).Encode(record)
		case r.Method == http.MethodPatch:
			updateCalls++
			var body struct {
				Fields map[string]any `json:"fields"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			record := map[string]any{
				"id":          "recREL1",
				"createdTime": "2025-06-01T10:00:00.000Z",
				"fields":      body.Fields,
			}
			existing = &record
			json.NewEncoder(w).Encode(record)
		}
	})

	driver := newTestDriver(t, handler)
	ctx := context.Background()

	first, err := driver.AdvanceRelationshipSummary(ctx, "recU1", "bob", 0.7)
	require.NoError(t, err)
	require.Equal(t, "recREL1", first.ID)
	require.Equal(t, 1, first.MessageCount)
	require.Equal(t, store.PhaseNew, first.Phase)
	require.Equal(t, 1, createCalls)

	second, err := driver.AdvanceRelationshipSummary(ctx, "recU1", "bob", 0.3)
	require.NoError(t, err)
	require.Equal(t, 2, second.MessageCount)
	require.InDelta(t, 0.5, second.AvgEmotionalScore, 1e-9)
	require.Equal(t, 1, createCalls)
	require.Equal(t, 1, updateCalls)
}
