package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/narrinai/companion/store"
)

// normalizeMemoryRecord maps one raw Airtable record onto the typed store
// struct. Owner and character fields drifted across schema generations
// (linked references, bare UID strings, email lookups), so every
// representation is preserved in its own typed field.
func normalizeMemoryRecord(r rawRecord) *store.MemoryRecord {
	record := &store.MemoryRecord{
		ID:             r.ID,
		OwnerRefs:      fieldStrings(r.Fields, "User"),
		OwnerUID:       fieldString(r.Fields, "UID"),
		OwnerEmails:    fieldStrings(r.Fields, "UserEmail"),
		Role:           store.Role(fieldString(r.Fields, "Role")),
		Message:        fieldString(r.Fields, "Message"),
		Summary:        fieldString(r.Fields, "Summary"),
		Importance:     fieldInt(r.Fields, "Importance"),
		EmotionalState: store.ParseEmotionalState(fieldString(r.Fields, "EmotionalState")),
		Tags:           fieldStrings(r.Fields, "Tags"),
		SourceType:     fieldString(r.Fields, "SourceType"),
		CreatedTs:      r.CreatedTime.Unix(),
	}

	// The Character field is either a linked-record array (canonical refs)
	// or a bare slug string on older rows.
	switch v := r.Fields["Character"].(type) {
	case string:
		record.CharacterSlug = v
	case []any:
		record.CharacterRefs = fieldStrings(r.Fields, "Character")
	}
	if slug := fieldString(r.Fields, "CharacterSlug"); slug != "" {
		record.CharacterSlug = slug
	}

	if metadata := fieldString(r.Fields, "Metadata"); metadata != "" {
		var parsed store.ImportMetadata
		if err := json.Unmarshal([]byte(metadata), &parsed); err != nil {
			// Unparseable provenance is dropped; the record itself stays.
			slog.Warn("skipping malformed memory metadata", "id", r.ID, "error", err)
		} else {
			record.Metadata = &parsed
		}
	}
	return record
}

func (d *Driver) ListMemoryRecords(ctx context.Context, find *store.FindMemoryRecord) ([]*store.MemoryRecord, error) {
	var clauses []string
	if find.ID != nil {
		clauses = append(clauses, fmt.Sprintf("RECORD_ID()='%s'", escapeFormulaString(*find.ID)))
	}
	if find.CharacterSlug != nil {
		clauses = append(clauses, fmt.Sprintf("LOWER({CharacterSlug})='%s'",
			escapeFormulaString(strings.ToLower(*find.CharacterSlug))))
	}

	formula := ""
	if len(clauses) == 1 {
		formula = clauses[0]
	} else if len(clauses) > 1 {
		formula = "AND(" + strings.Join(clauses, ",") + ")"
	}

	records, err := d.listAll(ctx, tableMemories, formula, find.Limit)
	if err != nil {
		return nil, err
	}

	list := make([]*store.MemoryRecord, 0, len(records))
	for _, r := range records {
		record := normalizeMemoryRecord(r)
		if find.OwnerRef != nil {
			found := false
			for _, ref := range record.OwnerRefs {
				if ref == *find.OwnerRef {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		list = append(list, record)
	}
	return list, nil
}

func (d *Driver) CreateMemoryRecord(ctx context.Context, create *store.MemoryRecord) (*store.MemoryRecord, error) {
	fields := map[string]any{
		"UID":            create.OwnerUID,
		"Role":           string(create.Role),
		"Message":        create.Message,
		"Summary":        create.Summary,
		"Importance":     create.Importance,
		"EmotionalState": string(create.EmotionalState),
	}
	if len(create.OwnerRefs) > 0 {
		fields["User"] = create.OwnerRefs
	}
	if create.CharacterSlug != "" {
		fields["CharacterSlug"] = create.CharacterSlug
	}
	if len(create.CharacterRefs) > 0 {
		fields["Character"] = create.CharacterRefs
	}
	if len(create.Tags) > 0 {
		fields["Tags"] = create.Tags
	}
	if create.SourceType != "" {
		fields["SourceType"] = create.SourceType
	}
	if create.Metadata != nil {
		raw, err := json.Marshal(create.Metadata)
		if err == nil {
			fields["Metadata"] = string(raw)
		}
	}

	record, err := d.createRecord(ctx, tableMemories, fields)
	if err != nil {
		return nil, err
	}
	return normalizeMemoryRecord(*record), nil
}
