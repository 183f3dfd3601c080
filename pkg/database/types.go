package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray stores a list of strings (tags, skills) as a JSON text column
// so the same model works on PostgreSQL and SQLite. Rows written by older
// writers as a native PostgreSQL array literal are still readable.
type StringArray []string

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		return a.parse(string(v))
	case string:
		return a.parse(v)
	default:
		return fmt.Errorf("StringArray: unsupported scan type %T", value)
	}
}

func (a *StringArray) parse(s string) error {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		*a = StringArray{}
		return nil
	case strings.HasPrefix(s, "["):
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return fmt.Errorf("StringArray: %w", err)
		}
		*a = out
		return nil
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		*a = parsePostgresArray(s[1 : len(s)-1])
		return nil
	default:
		*a = StringArray{s}
		return nil
	}
}

// parsePostgresArray splits the body of a PostgreSQL array literal,
// honouring double quotes and backslash escapes.
func parsePostgresArray(body string) StringArray {
	out := StringArray{}
	if body == "" {
		return out
	}

	var cur strings.Builder
	inQuotes, escaped := false, false
	for _, r := range body {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(out, cur.String())
}

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// UnmarshalJSON accepts either a JSON array or the column's text encoding,
// which is how change-data-capture feeds deliver the value.
func (a *StringArray) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*a = arr
		return nil
	}

	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("StringArray: %w", err)
	}
	if s == nil {
		*a = nil
		return nil
	}
	return a.parse(*s)
}

// GormDataType returns the GORM data type hint.
func (StringArray) GormDataType() string {
	return "text"
}

// Join concatenates the elements with sep, skipping blanks.
func (a StringArray) Join(sep string) string {
	parts := make([]string, 0, len(a))
	for _, s := range a {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}
