package store

// UserIdentity represents a user record in the backing store.
//
// ID is the canonical record identifier assigned by the store. UID is the
// externally-supplied authentication identifier. Historically several user
// records can share one email, so email lookups may return more than one row.
type UserIdentity struct {
	ID        string
	UID       string
	Email     string
	Name      string
	CreatedTs int64
}

// FindUserIdentity specifies the conditions for finding user identities.
type FindUserIdentity struct {
	ID    *string
	UID   *string
	Email *string

	// ActiveSinceTs restricts results to users with activity at or after
	// the given unix timestamp. Used by the check-in mailer.
	ActiveSinceTs *int64

	Limit int
}
