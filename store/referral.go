package store

// Referral is an invite code issued to a user. A code can be redeemed once,
// by someone other than its issuer.
type Referral struct {
	ID         string
	Code       string
	IssuerRef  string
	RedeemedBy string
	RedeemedTs int64
	CreatedTs  int64
}

// Redeemed reports whether the code has already been used.
func (r *Referral) Redeemed() bool {
	return r.RedeemedBy != ""
}
