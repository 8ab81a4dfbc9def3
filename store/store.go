package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/narrinai/companion/internal/profile"
)

// ErrUpstreamUnavailable wraps record-store transport failures. Callers may
// retry with backoff at their own discretion; nothing in this package retries.
var ErrUpstreamUnavailable = errors.New("record store unavailable")

// Driver is the record store abstraction. The production driver talks to the
// Airtable REST API; the sqlite driver backs development and tests.
type Driver interface {
	ListUserIdentities(ctx context.Context, find *FindUserIdentity) ([]*UserIdentity, error)

	ListMemoryRecords(ctx context.Context, find *FindMemoryRecord) ([]*MemoryRecord, error)
	CreateMemoryRecord(ctx context.Context, create *MemoryRecord) (*MemoryRecord, error)

	// GetRelationshipSummary returns (nil, nil) when no summary exists.
	GetRelationshipSummary(ctx context.Context, find *FindRelationshipSummary) (*RelationshipSummary, error)
	// AdvanceRelationshipSummary applies one turn's emotional score to the
	// (ownerRef, characterSlug) summary, seeding it when absent. The whole
	// read-modify-write must be atomic per key: concurrent calls for the
	// same pair must not lose an increment.
	AdvanceRelationshipSummary(ctx context.Context, ownerRef string, characterSlug string, score float64) (*RelationshipSummary, error)

	// GetReferral returns (nil, nil) when the code does not exist.
	GetReferral(ctx context.Context, code string) (*Referral, error)
	CreateReferral(ctx context.Context, create *Referral) (*Referral, error)
	MarkReferralRedeemed(ctx context.Context, code string, redeemedBy string) (*Referral, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Store provides access to all raw objects of the backing record store.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) ListUserIdentities(ctx context.Context, find *FindUserIdentity) ([]*UserIdentity, error) {
	return s.driver.ListUserIdentities(ctx, find)
}

func (s *Store) ListMemoryRecords(ctx context.Context, find *FindMemoryRecord) ([]*MemoryRecord, error) {
	return s.driver.ListMemoryRecords(ctx, find)
}

func (s *Store) CreateMemoryRecord(ctx context.Context, create *MemoryRecord) (*MemoryRecord, error) {
	create.Importance = ClampImportance(create.Importance)
	create.EmotionalState = ParseEmotionalState(string(create.EmotionalState))
	return s.driver.CreateMemoryRecord(ctx, create)
}

func (s *Store) GetRelationshipSummary(ctx context.Context, find *FindRelationshipSummary) (*RelationshipSummary, error) {
	return s.driver.GetRelationshipSummary(ctx, find)
}

func (s *Store) AdvanceRelationshipSummary(ctx context.Context, ownerRef string, characterSlug string, score float64) (*RelationshipSummary, error) {
	return s.driver.AdvanceRelationshipSummary(ctx, ownerRef, characterSlug, score)
}

func (s *Store) GetReferral(ctx context.Context, code string) (*Referral, error) {
	return s.driver.GetReferral(ctx, code)
}

func (s *Store) CreateReferral(ctx context.Context, create *Referral) (*Referral, error) {
	return s.driver.CreateReferral(ctx, create)
}

func (s *Store) MarkReferralRedeemed(ctx context.Context, code string, redeemedBy string) (*Referral, error) {
	return s.driver.MarkReferralRedeemed(ctx, code, redeemedBy)
}
