// Package referral issues and redeems invite codes.
package referral

import (
	"context"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/narrinai/companion/store"
)

// codeLength keeps invite codes short enough to share verbally.
const codeLength = 8

// Service manages referral codes.
type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// IssueCode creates a new referral code for the issuer.
func (s *Service) IssueCode(ctx context.Context, issuerRef string) (*store.Referral, error) {
	if issuerRef == "" {
		return nil, errors.New("issuer is required")
	}
	code := strings.ToUpper(shortuuid.New()[:codeLength])
	return s.store.CreateReferral(ctx, &store.Referral{
		Code:      code,
		IssuerRef: issuerRef,
	})
}

// Redeem marks a code as used by redeemerRef. Self-referrals and double
// redeems are rejected.
func (s *Service) Redeem(ctx context.Context, code string, redeemerRef string) (*store.Referral, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, errors.New("code is required")
	}
	if redeemerRef == "" {
		return nil, errors.New("redeemer is required")
	}

	existing, err := s.store.GetReferral(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.Errorf("referral code %s does not exist", code)
	}
	if existing.IssuerRef == redeemerRef {
		return nil, errors.New("cannot redeem your own referral code")
	}
	if existing.Redeemed() {
		return nil, errors.Errorf("referral code %s is already redeemed", code)
	}

	// The store-level conditional update is the real double-redeem guard;
	// the check above only produces a friendlier error.
	return s.store.MarkReferralRedeemed(ctx, code, redeemerRef)
}
