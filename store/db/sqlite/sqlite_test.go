package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/narrinai/companion/internal/profile"
	"github.com/narrinai/companion/store"
)

func newTestDB(t *testing.T) store.Driver {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "companion_test.db"),
	}
	driver, err := NewDB(p)
	require.NoError(t, err)
	require.NoError(t, driver.Migrate(context.Background()))
	t.Cleanup(func() { driver.Close() })
	return driver
}

func TestMemoryRecordRoundTrip(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	created, err := driver.CreateMemoryRecord(ctx, &store.MemoryRecord{
		OwnerRefs:      []string{"recU1"},
		OwnerUID:       "uid-1",
		CharacterSlug:  "bob",
		Role:           store.RoleUser,
		Message:        "I moved to Rotterdam last month",
		Summary:        "Moved to Rotterdam",
		Importance:     7,
		EmotionalState: store.EmotionHappy,
		Tags:           []string{"location", "life_event"},
		Metadata:       &store.ImportMetadata{Source: "chatgpt", ImportDate: "2025-02-01T00:00:00Z"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.NotZero(t, created.CreatedTs)

	list, err := driver.ListMemoryRecords(ctx, &store.FindMemoryRecord{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	require.Equal(t, []string{"recU1"}, got.OwnerRefs)
	require.Equal(t, "uid-1", got.OwnerUID)
	require.Equal(t, "bob", got.CharacterSlug)
	require.Equal(t, store.EmotionHappy, got.EmotionalState)
	require.Equal(t, []string{"location", "life_event"}, got.Tags)
	require.NotNil(t, got.Metadata)
	require.Equal(t, "chatgpt", got.Metadata.Source)
}

func TestListMemoryRecordsNewestFirst(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	for i, ts := range []int64{100, 300, 200} {
		_, err := driver.CreateMemoryRecord(ctx, &store.MemoryRecord{
			Message:   "msg",
			Role:      store.RoleUser,
			CreatedTs: ts,
			OwnerUID:  "uid-1",
		})
		require.NoError(t, err, "record %d", i)
	}

	list, err := driver.ListMemoryRecords(ctx, &store.FindMemoryRecord{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, int64(300), list[0].CreatedTs)
	require.Equal(t, int64(200), list[1].CreatedTs)
	require.Equal(t, int64(100), list[2].CreatedTs)
}

func TestUserIdentityLookups(t *testing.T) {
	driver := newTestDB(t).(*DB)
	ctx := context.Background()

	_, err := driver.db.ExecContext(ctx, `INSERT INTO user_identity (id, uid, email, name, created_ts)
		VALUES ('recU1', 'uid-1', 'u@example.com', 'Ada', 100),
		       ('recU2', 'uid-2', 'u@example.com', 'Ada (old)', 50)`)
	require.NoError(t, err)

	uid := "uid-1"
	byUID, err := driver.ListUserIdentities(ctx, &store.FindUserIdentity{UID: &uid})
	require.NoError(t, err)
	require.Len(t, byUID, 1)
	require.Equal(t, "recU1", byUID[0].ID)

	email := "U@EXAMPLE.COM"
	byEmail, err := driver.ListUserIdentities(ctx, &store.FindUserIdentity{Email: &email})
	require.NoError(t, err)
	require.Len(t, byEmail, 2)
}

func TestAdvanceRelationshipSummary(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	first, err := driver.AdvanceRelationshipSummary(ctx, "recU1", "bob", 0.7)
	require.NoError(t, err)
	require.Equal(t, 1, first.MessageCount)
	require.InDelta(t, 0.7, first.AvgEmotionalScore, 1e-9)
	require.Equal(t, store.PhaseNew, first.Phase)

	second, err := driver.AdvanceRelationshipSummary(ctx, "recU1", "bob", 0.3)
	require.NoError(t, err)
	// Conflict resolution keeps one row per (owner, character).
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 2, second.MessageCount)
	require.InDelta(t, 0.5, second.AvgEmotionalScore, 1e-9)
}

func TestAdvanceRelationshipSummaryConcurrent(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	const turns = 50
	errs := make(chan error, turns)
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := driver.AdvanceRelationshipSummary(ctx, "recU1", "bob", 0.5)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	ownerRef, slug := "recU1", "bob"
	got, err := driver.GetRelationshipSummary(ctx, &store.FindRelationshipSummary{
		OwnerRef:      &ownerRef,
		CharacterSlug: &slug,
	})
	require.NoError(t, err)
	require.Equal(t, turns, got.MessageCount)
	require.Equal(t, store.PhaseDeep, got.Phase)
	require.InDelta(t, 0.5, got.AvgEmotionalScore, 1e-9)
}

func TestGetRelationshipSummaryMissing(t *testing.T) {
	driver := newTestDB(t)

	ownerRef, slug := "recNOPE", "bob"
	got, err := driver.GetRelationshipSummary(context.Background(), &store.FindRelationshipSummary{
		OwnerRef:      &ownerRef,
		CharacterSlug: &slug,
	})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMigrateRefusesNewerSchemaVersion(t *testing.T) {
	driver := newTestDB(t).(*DB)
	ctx := context.Background()

	_, err := driver.db.ExecContext(ctx, `UPDATE system_setting SET value = '99.0.0' WHERE name = 'schema_version'`)
	require.NoError(t, err)

	err = driver.Migrate(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "newer than binary version")
}

func TestReferralRedeemOnce(t *testing.T) {
	driver := newTestDB(t)
	ctx := context.Background()

	_, err := driver.CreateReferral(ctx, &store.Referral{Code: "INVITE1", IssuerRef: "recU1"})
	require.NoError(t, err)

	redeemed, err := driver.MarkReferralRedeemed(ctx, "INVITE1", "recU2")
	require.NoError(t, err)
	require.Equal(t, "recU2", redeemed.RedeemedBy)

	_, err = driver.MarkReferralRedeemed(ctx, "INVITE1", "recU3")
	require.Error(t, err)
}
