package store

// EmotionalState classifies the emotional tone of a single chat turn.
type EmotionalState string

const (
	EmotionHappy   EmotionalState = "happy"
	EmotionSad     EmotionalState = "sad"
	EmotionExcited EmotionalState = "excited"
	EmotionAngry   EmotionalState = "angry"
	EmotionNeutral EmotionalState = "neutral"
)

// ParseEmotionalState returns the matching enum value, defaulting to
// neutral on anything unrecognized.
func ParseEmotionalState(s string) EmotionalState {
	switch EmotionalState(s) {
	case EmotionHappy, EmotionSad, EmotionExcited, EmotionAngry, EmotionNeutral:
		return EmotionalState(s)
	default:
		return EmotionNeutral
	}
}

const (
	// MinImportance and MaxImportance bound the importance score.
	MinImportance = 1
	MaxImportance = 10
	// DefaultImportance is assigned when analysis yields no score.
	DefaultImportance = 5
)

// ClampImportance forces an importance score into [MinImportance, MaxImportance].
// A zero value means "unset" and becomes the default.
func ClampImportance(i int) int {
	if i == 0 {
		return DefaultImportance
	}
	if i < MinImportance {
		return MinImportance
	}
	if i > MaxImportance {
		return MaxImportance
	}
	return i
}

// Role identifies who authored a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ImportSourceChatGPT marks records produced by the ChatGPT history
// import pipeline.
const ImportSourceChatGPT = "chatgpt"

// ImportMetadata carries provenance for bulk-imported memories.
type ImportMetadata struct {
	Source           string `json:"source,omitempty"`
	ImportDate       string `json:"import_date,omitempty"`
	OriginalCategory string `json:"original_category,omitempty"`
}

// MemoryRecord represents one stored memory.
//
// The backing store's schema drifted over time: the owner of a record may be
// stored as a list of canonical references, a raw UID string, or only be
// reachable through an email lookup field. Drivers normalize all three
// representations into the typed fields below immediately after fetch, so
// the filtering core never branches on raw field shape.
type MemoryRecord struct {
	ID string

	// Owner, in all representations present on the raw record.
	OwnerRefs   []string // canonical user record references
	OwnerUID    string   // raw external UID, older records only
	OwnerEmails []string // denormalized email lookup values

	// Character association. Empty slug and nil refs means a
	// general/background memory shared by every character.
	CharacterSlug string
	CharacterRefs []string

	Role           Role
	Message        string
	Summary        string
	Importance     int
	EmotionalState EmotionalState
	Tags           []string

	// SourceType is an explicit marker field ("chatgpt_import" etc.),
	// present on newer imported records.
	SourceType string
	// Metadata is parsed from the free-form metadata column. Nil when the
	// column is empty or unparseable (unparseable metadata is logged and
	// dropped, never fatal).
	Metadata *ImportMetadata

	CreatedTs int64
}

// FindMemoryRecord specifies the conditions for finding memory records.
// Drivers return records newest-first.
type FindMemoryRecord struct {
	ID            *string
	OwnerRef      *string
	CharacterSlug *string

	Limit  int
	Offset int
}
