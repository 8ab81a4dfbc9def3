package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/narrinai/companion/store"
)

func (d *DB) GetReferral(ctx context.Context, code string) (*store.Referral, error) {
	var referral store.Referral
	err := d.db.QueryRowContext(ctx, `SELECT id, code, issuer_ref, redeemed_by, redeemed_ts, created_ts
		FROM referral WHERE code = ?`, code,
	).Scan(
		&referral.ID,
		&referral.Code,
		&referral.IssuerRef,
		&referral.RedeemedBy,
		&referral.RedeemedTs,
		&referral.CreatedTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get referral")
	}
	return &referral, nil
}

func (d *DB) CreateReferral(ctx context.Context, create *store.Referral) (*store.Referral, error) {
	if create.ID == "" {
		create.ID = uuid.NewString()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	if _, err := d.db.ExecContext(ctx, `INSERT INTO referral (id, code, issuer_ref, redeemed_by, redeemed_ts, created_ts)
		VALUES (?, ?, ?, ?, ?, ?)`,
		create.ID,
		create.Code,
		create.IssuerRef,
		create.RedeemedBy,
		create.RedeemedTs,
		create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create referral")
	}
	return create, nil
}

// MarkReferralRedeemed sets the redeemer only when the code is still open,
// so a double redeem loses the race instead of overwriting.
func (d *DB) MarkReferralRedeemed(ctx context.Context, code string, redeemedBy string) (*store.Referral, error) {
	result, err := d.db.ExecContext(ctx, `UPDATE referral
		SET redeemed_by = ?, redeemed_ts = ?
		WHERE code = ? AND redeemed_by = ''`,
		redeemedBy, time.Now().Unix(), code)
	if err != nil {
		return nil, errors.Wrap(err, "failed to redeem referral")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, errors.Errorf("referral %s does not exist or is already redeemed", code)
	}
	return d.GetReferral(ctx, code)
}
