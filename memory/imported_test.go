package memory

import (
	"testing"

	"github.com/narrinai/companion/store"
)

func TestClassifyImportedMetadataIsAuthoritative(t *testing.T) {
	r := &store.MemoryRecord{
		Role:     store.RoleUser,
		Message:  "Grew up in Amsterdam and studied physics.",
		Metadata: &store.ImportMetadata{Source: "chatgpt", ImportDate: "2025-03-01T12:00:00Z"},
	}
	if !ClassifyImported(r) {
		t.Error("metadata marker must classify as imported regardless of text")
	}
}

func TestClassifyImportedMetadataNeedsImportDate(t *testing.T) {
	r := &store.MemoryRecord{
		Role:     store.RoleUser,
		Metadata: &store.ImportMetadata{Source: "chatgpt"},
	}
	if ClassifyImported(r) {
		t.Error("source without import date is not the authoritative marker")
	}
}

func TestClassifyImportedExplicitSourceType(t *testing.T) {
	r := &store.MemoryRecord{
		Role:       store.RoleAssistant,
		SourceType: SourceTypeImport,
	}
	if !ClassifyImported(r) {
		t.Error("explicit source type must classify as imported")
	}
}

func TestClassifyImportedHeuristic(t *testing.T) {
	tests := []struct {
		name   string
		record *store.MemoryRecord
		want   bool
	}{
		{
			name:   "second-person text without character",
			record: &store.MemoryRecord{Role: store.RoleUser, Message: "You work as a nurse in Utrecht."},
			want:   true,
		},
		{
			name:   "lowercase leading pronoun",
			record: &store.MemoryRecord{Role: store.RoleUser, Summary: "you like hiking"},
			want:   true,
		},
		{
			name:   "character association disables the heuristic",
			record: &store.MemoryRecord{Role: store.RoleUser, CharacterSlug: "bob", Message: "you should see this"},
			want:   false,
		},
		{
			name:   "assistant role disables the heuristic",
			record: &store.MemoryRecord{Role: store.RoleAssistant, Message: "You asked me to remind you."},
			want:   false,
		},
		{
			name:   "ordinary chat text is not imported",
			record: &store.MemoryRecord{Role: store.RoleUser, Message: "I had a great day today."},
			want:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyImported(tt.record); got != tt.want {
				t.Errorf("ClassifyImported() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToFirstPerson(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"You are a teacher", "I am a teacher"},
		{"You have two cats and you love them", "I have two cats and I love them"},
		{"You were living in Berlin", "I was living in Berlin"},
		{"Your favorite food is ramen", "my favorite food is ramen"},
		{"You're planning a trip, you'll leave in May", "I'm planning a trip, I'll leave in May"},
		{"The choice is yours", "The choice is mine"},
		{"Be kind to yourself", "Be kind to myself"},
		{"Young developers write code", "Young developers write code"},
		{"I already speak in first person", "I already speak in first person"},
	}
	for _, tt := range tests {
		if got := ToFirstPerson(tt.in); got != tt.want {
			t.Errorf("ToFirstPerson(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
