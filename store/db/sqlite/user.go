package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/narrinai/companion/store"
)

func (d *DB) ListUserIdentities(ctx context.Context, find *store.FindUserIdentity) ([]*store.UserIdentity, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.Email != nil {
		where, args = append(where, "email = ? COLLATE NOCASE"), append(args, *find.Email)
	}
	if find.ActiveSinceTs != nil {
		where, args = append(where, "created_ts >= ?"), append(args, *find.ActiveSinceTs)
	}

	query := "SELECT id, uid, email, name, created_ts FROM user_identity WHERE " +
		strings.Join(where, " AND ") + " ORDER BY created_ts DESC"
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user identities")
	}
	defer rows.Close()

	var list []*store.UserIdentity
	for rows.Next() {
		var user store.UserIdentity
		if err := rows.Scan(&user.ID, &user.UID, &user.Email, &user.Name, &user.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan user identity")
		}
		list = append(list, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
