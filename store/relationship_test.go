package store

import (
	"math"
	"testing"
)

func TestAdvanceRelationshipSummarySeed(t *testing.T) {
	got := AdvanceRelationshipSummary(nil, "recAAA", "bob", 0.7, 1000)

	if got.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", got.MessageCount)
	}
	if got.AvgEmotionalScore != 0.7 {
		t.Errorf("AvgEmotionalScore = %v, want 0.7", got.AvgEmotionalScore)
	}
	if got.Phase != PhaseNew {
		t.Errorf("Phase = %q, want new", got.Phase)
	}
	if got.LastInteractionTs != 1000 {
		t.Errorf("LastInteractionTs = %d, want 1000", got.LastInteractionTs)
	}
}

func TestAdvanceRelationshipSummaryRunningAverage(t *testing.T) {
	existing := &RelationshipSummary{
		ID:                "rel1",
		OwnerRef:          "recAAA",
		CharacterSlug:     "bob",
		MessageCount:      4,
		AvgEmotionalScore: 0.5,
		Phase:             PhaseNew,
	}

	got := AdvanceRelationshipSummary(existing, "recAAA", "bob", 0.7, 2000)

	if got.MessageCount != 5 {
		t.Errorf("MessageCount = %d, want 5", got.MessageCount)
	}
	// (0.5*4 + 0.7) / 5 = 0.54
	if math.Abs(got.AvgEmotionalScore-0.54) > 1e-9 {
		t.Errorf("AvgEmotionalScore = %v, want 0.54", got.AvgEmotionalScore)
	}
	// Crossing the threshold at 5 messages.
	if got.Phase != PhaseDeveloping {
		t.Errorf("Phase = %q, want developing", got.Phase)
	}
	if got.ID != "rel1" {
		t.Errorf("ID must be preserved, got %q", got.ID)
	}
}

func TestAdvanceRelationshipSummaryPhaseProgression(t *testing.T) {
	summary := AdvanceRelationshipSummary(nil, "recAAA", "bob", 0.5, 0)
	for i := 1; i < 50; i++ {
		summary = AdvanceRelationshipSummary(summary, "recAAA", "bob", 0.5, int64(i))
	}
	if summary.MessageCount != 50 {
		t.Fatalf("MessageCount = %d, want 50", summary.MessageCount)
	}
	if summary.Phase != PhaseDeep {
		t.Errorf("Phase = %q, want deep", summary.Phase)
	}
	// Uniform neutral scores keep the average at 0.5.
	if math.Abs(summary.AvgEmotionalScore-0.5) > 1e-9 {
		t.Errorf("AvgEmotionalScore = %v, want 0.5", summary.AvgEmotionalScore)
	}
}
