package store

// RelationshipPhase is a coarse classification of how far a user/character
// relationship has progressed, derived from the message count alone.
type RelationshipPhase string

const (
	PhaseNew         RelationshipPhase = "new"
	PhaseDeveloping  RelationshipPhase = "developing"
	PhaseEstablished RelationshipPhase = "established"
	PhaseDeep        RelationshipPhase = "deep"
)

// PhaseForMessageCount maps a message count onto a relationship phase.
// The mapping is a monotonic step function: <5 new, <20 developing,
// <50 established, >=50 deep.
func PhaseForMessageCount(count int) RelationshipPhase {
	switch {
	case count < 5:
		return PhaseNew
	case count < 20:
		return PhaseDeveloping
	case count < 50:
		return PhaseEstablished
	default:
		return PhaseDeep
	}
}

// RelationshipSummary is the per-(user, character) running aggregate
// updated on every chat turn.
type RelationshipSummary struct {
	ID            string
	OwnerRef      string
	CharacterSlug string

	MessageCount int
	// AvgEmotionalScore is a running average on a normalized 0..1 scale.
	AvgEmotionalScore float64
	Phase             RelationshipPhase
	LastInteractionTs int64
}

// FindRelationshipSummary specifies the conditions for finding
// relationship summaries.
type FindRelationshipSummary struct {
	OwnerRef      *string
	CharacterSlug *string
}

// AdvanceRelationshipSummary computes the summary after one more turn with
// the given emotional score. When existing is nil a fresh summary is seeded
// from the single score. Otherwise the average is recomputed incrementally
// as (old*count + new) / (count+1) and the phase re-derived from the count.
// Pure function; drivers call it inside their per-key serialization.
func AdvanceRelationshipSummary(existing *RelationshipSummary, ownerRef string, characterSlug string, score float64, nowTs int64) *RelationshipSummary {
	if existing == nil {
		return &RelationshipSummary{
			OwnerRef:          ownerRef,
			CharacterSlug:     characterSlug,
			MessageCount:      1,
			AvgEmotionalScore: score,
			Phase:             PhaseForMessageCount(1),
			LastInteractionTs: nowTs,
		}
	}
	count := existing.MessageCount + 1
	avg := (existing.AvgEmotionalScore*float64(existing.MessageCount) + score) / float64(count)
	return &RelationshipSummary{
		ID:                existing.ID,
		OwnerRef:          existing.OwnerRef,
		CharacterSlug:     existing.CharacterSlug,
		MessageCount:      count,
		AvgEmotionalScore: avg,
		Phase:             PhaseForMessageCount(count),
		LastInteractionTs: nowTs,
	}
}
