package airtable

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/narrinai/companion/store"
)

func normalizeReferral(r rawRecord) *store.Referral {
	return &store.Referral{
		ID:         r.ID,
		Code:       fieldString(r.Fields, "Code"),
		IssuerRef:  fieldString(r.Fields, "IssuerRef"),
		RedeemedBy: fieldString(r.Fields, "RedeemedBy"),
		RedeemedTs: fieldInt64(r.Fields, "RedeemedTs"),
		CreatedTs:  r.CreatedTime.Unix(),
	}
}

func (d *Driver) GetReferral(ctx context.Context, code string) (*store.Referral, error) {
	formula := fmt.Sprintf("{Code}='%s'", escapeFormulaString(code))
	records, err := d.listAll(ctx, tableReferrals, formula, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return normalizeReferral(records[0]), nil
}

func (d *Driver) CreateReferral(ctx context.Context, create *store.Referral) (*store.Referral, error) {
	record, err := d.createRecord(ctx, tableReferrals, map[string]any{
		"Code":      create.Code,
		"IssuerRef": create.IssuerRef,
	})
	if err != nil {
		return nil, err
	}
	return normalizeReferral(*record), nil
}

func (d *Driver) MarkReferralRedeemed(ctx context.Context, code string, redeemedBy string) (*store.Referral, error) {
	// The lookup and update are serialized per code for the same reason as
	// relationship upserts: no conditional write upstream.
	mu := d.relLock("referral/" + code)
	mu.Lock()
	defer mu.Unlock()

	existing, err := d.GetReferral(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.Errorf("referral %s does not exist", code)
	}
	if existing.Redeemed() {
		return nil, errors.Errorf("referral %s is already redeemed", code)
	}

	record, err := d.updateRecord(ctx, tableReferrals, existing.ID, map[string]any{
		"RedeemedBy": redeemedBy,
		"RedeemedTs": time.Now().Unix(),
	})
	if err != nil {
		return nil, err
	}
	return normalizeReferral(*record), nil
}
