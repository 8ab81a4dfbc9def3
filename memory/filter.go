package memory

import (
	"strings"

	"github.com/narrinai/companion/store"
)

// RoleFilter selects which turn authors count as memories.
type RoleFilter string

const (
	// RoleFilterUser keeps only user-authored turns. Assistant turns are
	// not facts about the user and are excluded from the primary path.
	RoleFilterUser RoleFilter = "user"
	// RoleFilterAny keeps everything. Used by callers that want
	// assistant-authored check-in and onboarding records included.
	RoleFilterAny RoleFilter = "any"
)

// FilterMemories returns the subset of records relevant to the resolved
// identity and the requested character. Pure function over the supplied
// collection; the input slice is not modified.
//
// A record with no character association at all is a general/background
// memory and is included for every requested character.
func FilterMemories(ids *IdentityRefSet, character string, records []*store.MemoryRecord, role RoleFilter) []*store.MemoryRecord {
	if ids == nil {
		return nil
	}
	out := make([]*store.MemoryRecord, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		if role == RoleFilterUser && r.Role != store.RoleUser {
			continue
		}
		if !ownedBy(r, ids) {
			continue
		}
		if !matchesCharacter(r, character) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ownedBy applies the ownership fallback chain, in order of preference,
// accepting the first strategy that succeeds:
//
//  1. canonical-reference membership
//  2. raw external-UID string equality
//  3. email equality against any denormalized email-lookup value
//
// The chain exists because the store's schema drifted over time and older
// records use different owner representations.
func ownedBy(r *store.MemoryRecord, ids *IdentityRefSet) bool {
	for _, ref := range r.OwnerRefs {
		if ids.ContainsRef(ref) {
			return true
		}
	}
	if r.OwnerUID != "" && r.OwnerUID == ids.UID {
		return true
	}
	if ids.Email != "" {
		for _, e := range r.OwnerEmails {
			if strings.EqualFold(e, ids.Email) {
				return true
			}
		}
	}
	return false
}

// matchesCharacter reports whether the record belongs to the requested
// character. The identifier may be a slug (matched case-insensitively) or a
// canonical character reference. Records without any character association
// match every character.
func matchesCharacter(r *store.MemoryRecord, character string) bool {
	if r.CharacterSlug == "" && len(r.CharacterRefs) == 0 {
		return true
	}
	if character == "" {
		return false
	}
	if strings.EqualFold(r.CharacterSlug, character) {
		return true
	}
	for _, ref := range r.CharacterRefs {
		if ref == character {
			return true
		}
	}
	return false
}

// hasCharacter reports whether the record carries any character association.
func hasCharacter(r *store.MemoryRecord) bool {
	return r.CharacterSlug != "" || len(r.CharacterRefs) > 0
}
