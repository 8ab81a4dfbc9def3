package airtable

// Field value coercion. Airtable returns linked-record and lookup fields as
// arrays, single-line text as strings, and numbers as float64. Older tables
// mix these conventions for the same logical field, so every accessor here
// tolerates all shapes and returns the zero value rather than failing.

// fieldString returns the field as a string. A single-element array
// collapses to its first element.
func fieldString(fields map[string]any, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case []any:
		if len(v) == 1 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// fieldStrings returns the field as a string slice. A bare string becomes a
// one-element slice.
func fieldStrings(fields map[string]any, name string) []string {
	switch v := fields[name].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// fieldInt returns the field as an int. Airtable numbers decode as float64.
func fieldInt(fields map[string]any, name string) int {
	switch v := fields[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// fieldInt64 returns the field as an int64.
func fieldInt64(fields map[string]any, name string) int64 {
	switch v := fields[name].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

// fieldFloat returns the field as a float64.
func fieldFloat(fields map[string]any, name string) float64 {
	if v, ok := fields[name].(float64); ok {
		return v
	}
	return 0
}
