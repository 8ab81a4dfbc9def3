// Package sqlite implements the record store driver for development and
// tests. The production deployment talks to Airtable; sqlite keeps the same
// contract behind a local file and gives the relationship upsert a real
// uniqueness constraint.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/narrinai/companion/internal/profile"
	"github.com/narrinai/companion/internal/version"
	"github.com/narrinai/companion/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the sqlite database at the profile's DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// WAL journal mode avoids locking issues; busy_timeout covers the rare
	// concurrent write. Pragmas must be prefixed with _pragma= for the
	// modernc.org/sqlite driver.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// Single connection is optimal for sqlite with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	return &DB{db: sqliteDB, profile: profile}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS user_identity (
	id TEXT PRIMARY KEY,
	uid TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	created_ts INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_user_identity_uid ON user_identity (uid);
CREATE INDEX IF NOT EXISTS idx_user_identity_email ON user_identity (email);

CREATE TABLE IF NOT EXISTS memory_record (
	id TEXT PRIMARY KEY,
	owner_refs TEXT NOT NULL DEFAULT '[]',
	owner_uid TEXT NOT NULL DEFAULT '',
	owner_emails TEXT NOT NULL DEFAULT '[]',
	character_slug TEXT NOT NULL DEFAULT '',
	character_refs TEXT NOT NULL DEFAULT '[]',
	role TEXT NOT NULL DEFAULT 'user',
	message TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	importance INTEGER NOT NULL DEFAULT 5,
	emotional_state TEXT NOT NULL DEFAULT 'neutral',
	tags TEXT NOT NULL DEFAULT '[]',
	source_type TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '',
	created_ts INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_memory_record_created_ts ON memory_record (created_ts DESC);

CREATE TABLE IF NOT EXISTS relationship_summary (
	id TEXT PRIMARY KEY,
	owner_ref TEXT NOT NULL,
	character_slug TEXT NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0,
	avg_emotional_score REAL NOT NULL DEFAULT 0.5,
	phase TEXT NOT NULL DEFAULT 'new',
	last_interaction_ts INTEGER NOT NULL DEFAULT 0,
	UNIQUE (owner_ref, character_slug)
);

CREATE TABLE IF NOT EXISTS system_setting (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS referral (
	id TEXT PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	issuer_ref TEXT NOT NULL DEFAULT '',
	redeemed_by TEXT NOT NULL DEFAULT '',
	redeemed_ts INTEGER NOT NULL DEFAULT 0,
	created_ts INTEGER NOT NULL DEFAULT 0
);
`

// Migrate creates the schema if it does not exist yet and records the
// binary version. A data file written by a newer binary is refused instead
// of silently reinterpreted.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate sqlite schema")
	}

	current := version.GetCurrentVersion(d.profile.Mode)
	var recorded string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM system_setting WHERE name = 'schema_version'`).Scan(&recorded)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, "failed to read schema version")
	}
	if recorded != "" && !version.IsVersionGreaterOrEqualThan(current, recorded) {
		return errors.Errorf("database schema version %s is newer than binary version %s", recorded, current)
	}
	if _, err := d.db.ExecContext(ctx, `INSERT INTO system_setting (name, value) VALUES ('schema_version', ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value`, current); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// marshalStrings encodes a string slice as a JSON column value.
func marshalStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// unmarshalStrings decodes a JSON column value; malformed data yields nil.
func unmarshalStrings(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}
