package sqlite

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/narrinai/companion/store"
)

func (d *DB) CreateMemoryRecord(ctx context.Context, create *store.MemoryRecord) (*store.MemoryRecord, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	metadata := ""
	if create.Metadata != nil {
		raw, err := json.Marshal(create.Metadata)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal metadata")
		}
		metadata = string(raw)
	}

	stmt := `INSERT INTO memory_record (
			id, owner_refs, owner_uid, owner_emails,
			character_slug, character_refs, role, message, summary,
			importance, emotional_state, tags, source_type, metadata, created_ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		marshalStrings(create.OwnerRefs),
		create.OwnerUID,
		marshalStrings(create.OwnerEmails),
		create.CharacterSlug,
		marshalStrings(create.CharacterRefs),
		string(create.Role),
		create.Message,
		create.Summary,
		create.Importance,
		string(create.EmotionalState),
		marshalStrings(create.Tags),
		create.SourceType,
		metadata,
		create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create memory record")
	}
	return create, nil
}

func (d *DB) ListMemoryRecords(ctx context.Context, find *store.FindMemoryRecord) ([]*store.MemoryRecord, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.CharacterSlug != nil {
		where, args = append(where, "character_slug = ? COLLATE NOCASE"), append(args, *find.CharacterSlug)
	}

	query := `SELECT id, owner_refs, owner_uid, owner_emails,
			character_slug, character_refs, role, message, summary,
			importance, emotional_state, tags, source_type, metadata, created_ts
		FROM memory_record WHERE ` + strings.Join(where, " AND ") + " ORDER BY created_ts DESC"
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
		if find.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memory records")
	}
	defer rows.Close()

	var list []*store.MemoryRecord
	for rows.Next() {
		record, err := scanMemoryRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// OwnerRef filtering happens after scan: owner_refs is a JSON column.
	if find.OwnerRef != nil {
		filtered := list[:0]
		for _, r := range list {
			for _, ref := range r.OwnerRefs {
				if ref == *find.OwnerRef {
					filtered = append(filtered, r)
					break
				}
			}
		}
		list = filtered
	}
	return list, nil
}

func scanMemoryRecord(scan func(dest ...any) error) (*store.MemoryRecord, error) {
	var record store.MemoryRecord
	var ownerRefs, ownerEmails, characterRefs, role, emotionalState, tags, metadata string
	if err := scan(
		&record.ID,
		&ownerRefs,
		&record.OwnerUID,
		&ownerEmails,
		&record.CharacterSlug,
		&characterRefs,
		&role,
		&record.Message,
		&record.Summary,
		&record.Importance,
		&emotionalState,
		&tags,
		&record.SourceType,
		&metadata,
		&record.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan memory record")
	}

	record.OwnerRefs = unmarshalStrings(ownerRefs)
	record.OwnerEmails = unmarshalStrings(ownerEmails)
	record.CharacterRefs = unmarshalStrings(characterRefs)
	record.Role = store.Role(role)
	record.EmotionalState = store.ParseEmotionalState(emotionalState)
	record.Tags = unmarshalStrings(tags)

	if metadata != "" {
		var parsed store.ImportMetadata
		if err := json.Unmarshal([]byte(metadata), &parsed); err != nil {
			// Malformed metadata is dropped, never fatal to the batch.
			slog.Warn("skipping malformed memory metadata", "id", record.ID, "error", err)
		} else {
			record.Metadata = &parsed
		}
	}
	return &record, nil
}
