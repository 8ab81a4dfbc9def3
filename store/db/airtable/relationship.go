package airtable

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/narrinai/companion/store"
)

func normalizeRelationshipSummary(r rawRecord) *store.RelationshipSummary {
	return &store.RelationshipSummary{
		ID:                r.ID,
		OwnerRef:          fieldString(r.Fields, "UserRef"),
		CharacterSlug:     fieldString(r.Fields, "CharacterSlug"),
		MessageCount:      fieldInt(r.Fields, "MessageCount"),
		AvgEmotionalScore: fieldFloat(r.Fields, "AvgEmotionalScore"),
		Phase:             store.RelationshipPhase(fieldString(r.Fields, "Phase")),
		LastInteractionTs: fieldInt64(r.Fields, "LastInteractionTs"),
	}
}

func (d *Driver) GetRelationshipSummary(ctx context.Context, find *store.FindRelationshipSummary) (*store.RelationshipSummary, error) {
	if find.OwnerRef == nil || find.CharacterSlug == nil {
		return nil, errors.New("owner ref and character slug are required")
	}
	formula := fmt.Sprintf("AND({UserRef}='%s', LOWER({CharacterSlug})='%s')",
		escapeFormulaString(*find.OwnerRef),
		escapeFormulaString(strings.ToLower(*find.CharacterSlug)))

	records, err := d.listAll(ctx, tableRelationships, formula, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return normalizeRelationshipSummary(records[0]), nil
}

// AdvanceRelationshipSummary serializes the whole read-compute-write cycle
// for one (owner, character) pair through a per-key lock. Airtable offers no
// conditional write, so the lock is what keeps concurrent turns from reading
// the same count and losing an increment.
func (d *Driver) AdvanceRelationshipSummary(ctx context.Context, ownerRef string, characterSlug string, score float64) (*store.RelationshipSummary, error) {
	key := ownerRef + "/" + strings.ToLower(characterSlug)
	mu := d.relLock(key)
	mu.Lock()
	defer mu.Unlock()

	existing, err := d.getRelationshipSummaryLocked(ctx, ownerRef, characterSlug)
	if err != nil {
		return nil, err
	}
	next := store.AdvanceRelationshipSummary(existing, ownerRef, characterSlug, score, time.Now().Unix())

	fields := map[string]any{
		"UserRef":           next.OwnerRef,
		"CharacterSlug":     next.CharacterSlug,
		"MessageCount":      next.MessageCount,
		"AvgEmotionalScore": next.AvgEmotionalScore,
		"Phase":             string(next.Phase),
		"LastInteractionTs": next.LastInteractionTs,
	}

	var record *rawRecord
	if next.ID != "" {
		record, err = d.updateRecord(ctx, tableRelationships, next.ID, fields)
	} else {
		record, err = d.createRecord(ctx, tableRelationships, fields)
	}
	if err != nil {
		return nil, err
	}
	return normalizeRelationshipSummary(*record), nil
}

// getRelationshipSummaryLocked fetches without taking the per-key lock;
// callers must already hold it.
func (d *Driver) getRelationshipSummaryLocked(ctx context.Context, ownerRef string, characterSlug string) (*store.RelationshipSummary, error) {
	return d.GetRelationshipSummary(ctx, &store.FindRelationshipSummary{
		OwnerRef:      &ownerRef,
		CharacterSlug: &characterSlug,
	})
}
