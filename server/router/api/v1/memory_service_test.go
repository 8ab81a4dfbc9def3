package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/narrinai/companion/internal/metrics"
	"github.com/narrinai/companion/internal/profile"
	"github.com/narrinai/companion/store"
)

// apiDriver is a minimal in-memory store.Driver for handler tests.
type apiDriver struct {
	users   []*store.UserIdentity
	records []*store.MemoryRecord
	listErr error
}

func (d *apiDriver) ListUserIdentities(_ context.Context, find *store.FindUserIdentity) ([]*store.UserIdentity, error) {
	var out []*store.UserIdentity
	for _, u := range d.users {
		if find.UID != nil && u.UID != *find.UID {
			continue
		}
		if find.Email != nil && u.Email != *find.Email {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (d *apiDriver) ListMemoryRecords(context.Context, *store.FindMemoryRecord) ([]*store.MemoryRecord, error) {
	return d.records, d.listErr
}

func (d *apiDriver) CreateMemoryRecord(_ context.Context, create *store.MemoryRecord) (*store.MemoryRecord, error) {
	d.records = append(d.records, create)
	return create, nil
}

func (*apiDriver) GetRelationshipSummary(context.Context, *store.FindRelationshipSummary) (*store.RelationshipSummary, error) {
	return nil, nil
}

func (*apiDriver) AdvanceRelationshipSummary(_ context.Context, ownerRef string, characterSlug string, score float64) (*store.RelationshipSummary, error) {
	return store.AdvanceRelationshipSummary(nil, ownerRef, characterSlug, score, 0), nil
}

func (*apiDriver) GetReferral(context.Context, string) (*store.Referral, error) { return nil, nil }

func (*apiDriver) CreateReferral(_ context.Context, create *store.Referral) (*store.Referral, error) {
	return create, nil
}

func (*apiDriver) MarkReferralRedeemed(context.Context, string, string) (*store.Referral, error) {
	return nil, nil
}

func (*apiDriver) Migrate(context.Context) error { return nil }
func (*apiDriver) Close() error                  { return nil }

func newTestAPI(driver store.Driver) *APIV1Service {
	p := &profile.Profile{Mode: "dev", Driver: "sqlite"}
	return NewAPIV1Service(p, store.New(driver, p), metrics.New())
}

func doGet(t *testing.T, api *APIV1Service, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, api.GetMemories(c))
	return rec
}

func TestGetMemoriesHandler(t *testing.T) {
	driver := &apiDriver{
		users: []*store.UserIdentity{{ID: "recU1", UID: "uid-1"}},
		records: []*store.MemoryRecord{
			{ID: "m1", OwnerRefs: []string{"recU1"}, CharacterSlug: "bob", Role: store.RoleUser, Importance: 8},
			{ID: "m2", OwnerRefs: []string{"recU1"}, CharacterSlug: "alice", Role: store.RoleUser, Importance: 9},
		},
	}
	api := newTestAPI(driver)

	rec := doGet(t, api, "/api/v1/memories?uid=uid-1&character=bob")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Memories []memoryResponse `json:"memories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Memories, 1)
	require.Equal(t, "m1", body.Memories[0].ID)
}

func TestGetMemoriesUnknownIdentityIsEmptySuccess(t *testing.T) {
	api := newTestAPI(&apiDriver{})

	rec := doGet(t, api, "/api/v1/memories?uid=uid-unknown")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Memories []memoryResponse `json:"memories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body.Memories)
}

func TestGetMemoriesRequiresUID(t *testing.T) {
	api := newTestAPI(&apiDriver{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/memories", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := api.GetMemories(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestGetImportedMemoriesHandler(t *testing.T) {
	driver := &apiDriver{
		users: []*store.UserIdentity{{ID: "recU1", UID: "uid-1"}},
		records: []*store.MemoryRecord{
			{
				ID: "m1", OwnerRefs: []string{"recU1"}, Role: store.RoleUser,
				Message:  "You are a teacher",
				Metadata: &store.ImportMetadata{Source: "chatgpt", ImportDate: "2025-01-01"},
			},
			{ID: "m2", OwnerRefs: []string{"recU1"}, CharacterSlug: "bob", Role: store.RoleUser, Message: "chat"},
		},
	}
	api := newTestAPI(driver)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/memories/imported?uid=uid-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, api.GetImportedMemories(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Memories []memoryResponse `json:"memories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Memories, 1)
	require.Equal(t, "I am a teacher", body.Memories[0].Message)
	require.True(t, body.Memories[0].Imported)
}
