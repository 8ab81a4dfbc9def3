package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/narrinai/companion/store"
)

func (d *DB) GetRelationshipSummary(ctx context.Context, find *store.FindRelationshipSummary) (*store.RelationshipSummary, error) {
	if find.OwnerRef == nil || find.CharacterSlug == nil {
		return nil, errors.New("owner ref and character slug are required")
	}

	var summary store.RelationshipSummary
	var phase string
	err := d.db.QueryRowContext(ctx, `SELECT id, owner_ref, character_slug, message_count,
			avg_emotional_score, phase, last_interaction_ts
		FROM relationship_summary WHERE owner_ref = ? AND character_slug = ?`,
		*find.OwnerRef, *find.CharacterSlug,
	).Scan(
		&summary.ID,
		&summary.OwnerRef,
		&summary.CharacterSlug,
		&summary.MessageCount,
		&summary.AvgEmotionalScore,
		&phase,
		&summary.LastInteractionTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get relationship summary")
	}
	summary.Phase = store.RelationshipPhase(phase)
	return &summary, nil
}

// AdvanceRelationshipSummary applies one turn in a single conditional-write
// statement: the UNIQUE (owner_ref, character_slug) constraint routes the
// insert into an in-place increment, so concurrent turns for the same pair
// cannot lose an update. Unqualified columns in the DO UPDATE expressions
// refer to the pre-update row.
func (d *DB) AdvanceRelationshipSummary(ctx context.Context, ownerRef string, characterSlug string, score float64) (*store.RelationshipSummary, error) {
	stmt := `INSERT INTO relationship_summary (
			id, owner_ref, character_slug, message_count,
			avg_emotional_score, phase, last_interaction_ts
		) VALUES (?, ?, ?, 1, ?, 'new', ?)
		ON CONFLICT (owner_ref, character_slug) DO UPDATE SET
			message_count = message_count + 1,
			avg_emotional_score = (avg_emotional_score * message_count + excluded.avg_emotional_score) / (message_count + 1),
			phase = CASE
				WHEN message_count + 1 < 5 THEN 'new'
				WHEN message_count + 1 < 20 THEN 'developing'
				WHEN message_count + 1 < 50 THEN 'established'
				ELSE 'deep'
			END,
			last_interaction_ts = excluded.last_interaction_ts
		RETURNING id, owner_ref, character_slug, message_count, avg_emotional_score, phase, last_interaction_ts`

	var summary store.RelationshipSummary
	var phase string
	if err := d.db.QueryRowContext(ctx, stmt,
		uuid.NewString(),
		ownerRef,
		characterSlug,
		score,
		time.Now().Unix(),
	).Scan(
		&summary.ID,
		&summary.OwnerRef,
		&summary.CharacterSlug,
		&summary.MessageCount,
		&summary.AvgEmotionalScore,
		&phase,
		&summary.LastInteractionTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to advance relationship summary")
	}
	summary.Phase = store.RelationshipPhase(phase)
	return &summary, nil
}
