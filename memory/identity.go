// Package memory implements memory resolution for character chat: mapping an
// external user identifier to canonical identity references, selecting the
// memory records relevant to a (user, character) pair, and ranking them for
// prompt inclusion.
package memory

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/narrinai/companion/store"
)

// ErrNotFound indicates the identity (or a dependent object) does not exist.
// Callers should treat it as "no memories", not as a retryable failure.
var ErrNotFound = errors.New("not found")

// IdentityRefSet is the set of canonical identity references that plausibly
// represent one person, plus the raw identifiers they were resolved from.
//
// The set form exists because historical data drift left some emails shared
// by several user records. Ownership checks must accept any member.
type IdentityRefSet struct {
	Refs  []string
	UID   string
	Email string
}

// ContainsRef reports whether ref is one of the resolved canonical references.
func (s *IdentityRefSet) ContainsRef(ref string) bool {
	for _, r := range s.Refs {
		if r == ref {
			return true
		}
	}
	return false
}

// ResolveIdentity maps an external UID (optionally widened by email) to the
// set of canonical identity references.
//
// The UID lookup runs first. If an email is supplied, every identity record
// sharing that email is also fetched and the references are unioned. Returns
// ErrNotFound when neither lookup yields a reference. Read-only.
func (s *Service) ResolveIdentity(ctx context.Context, uid string, email string) (*IdentityRefSet, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, errors.New("uid is required")
	}
	email = strings.TrimSpace(strings.ToLower(email))

	seen := map[string]bool{}
	result := &IdentityRefSet{UID: uid, Email: email}

	byUID, err := s.store.ListUserIdentities(ctx, &store.FindUserIdentity{UID: &uid})
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up identity by uid")
	}
	for _, u := range byUID {
		if !seen[u.ID] {
			seen[u.ID] = true
			result.Refs = append(result.Refs, u.ID)
		}
	}

	if email != "" {
		byEmail, err := s.store.ListUserIdentities(ctx, &store.FindUserIdentity{Email: &email})
		if err != nil {
			return nil, errors.Wrap(err, "failed to look up identity by email")
		}
		for _, u := range byEmail {
			if !seen[u.ID] {
				seen[u.ID] = true
				result.Refs = append(result.Refs, u.ID)
			}
		}
	}

	if len(result.Refs) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}
