package airtable

import (
	"context"
	"fmt"
	"strings"

	"github.com/narrinai/companion/store"
)

func (d *Driver) ListUserIdentities(ctx context.Context, find *store.FindUserIdentity) ([]*store.UserIdentity, error) {
	var clauses []string
	if find.ID != nil {
		clauses = append(clauses, fmt.Sprintf("RECORD_ID()='%s'", escapeFormulaString(*find.ID)))
	}
	if find.UID != nil {
		clauses = append(clauses, fmt.Sprintf("{UID}='%s'", escapeFormulaString(*find.UID)))
	}
	if find.Email != nil {
		clauses = append(clauses, fmt.Sprintf("LOWER({Email})='%s'", escapeFormulaString(strings.ToLower(*find.Email))))
	}
	if find.ActiveSinceTs != nil {
		clauses = append(clauses, fmt.Sprintf("IS_AFTER({LastActive}, DATETIME_PARSE(%d, 'X'))", *find.ActiveSinceTs))
	}

	formula := ""
	if len(clauses) == 1 {
		formula = clauses[0]
	} else if len(clauses) > 1 {
		formula = "AND(" + strings.Join(clauses, ",") + ")"
	}

	records, err := d.listAll(ctx, tableUsers, formula, find.Limit)
	if err != nil {
		return nil, err
	}

	list := make([]*store.UserIdentity, 0, len(records))
	for _, r := range records {
		list = append(list, &store.UserIdentity{
			ID:        r.ID,
			UID:       fieldString(r.Fields, "UID"),
			Email:     fieldString(r.Fields, "Email"),
			Name:      fieldString(r.Fields, "Name"),
			CreatedTs: r.CreatedTime.Unix(),
		})
	}
	return list, nil
}
