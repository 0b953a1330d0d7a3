package incident

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// IDList is an ordered list of route or stop identifiers. It is persisted as
// a single comma-joined column but exposed as a real collection so matching
// can be done on whole identifiers instead of substrings.
type IDList []string

// Value implements driver.Valuer.
func (l IDList) Value() (driver.Value, error) {
	return strings.Join(l, ","), nil
}

// Scan implements sql.Scanner.
func (l *IDList) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into IDList", src)
	}
	*l = ParseIDList(raw)
	return nil
}

func (l IDList) String() string { return strings.Join(l, ",") }

// ParseIDList splits a comma-joined identifier column into a trimmed list,
// dropping empty segments.
func ParseIDList(raw string) IDList {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make(IDList, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeID canonicalizes a route or stop identifier for matching. The
// feed is inconsistent about prefixes ("7-T1" vs "T1"), so the segment after
// the last dash is the identity-bearing part. Comparison is case-insensitive.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.LastIndex(id, "-"); i >= 0 {
		id = id[i+1:]
	}
	return strings.ToUpper(id)
}

// ContainsID reports whether the list contains id under normalized exact
// membership. "1" does not match "10"; "7-T1" matches "T1".
func (l IDList) ContainsID(id string) bool {
	want := NormalizeID(id)
	if want == "" {
		return false
	}
	for _, have := range l {
		if NormalizeID(have) == want {
			return true
		}
	}
	return false
}

// ContainsAny reports whether the list shares at least one identifier with
// ids under normalized exact membership.
func (l IDList) ContainsAny(ids []string) bool {
	for _, id := range ids {
		if l.ContainsID(id) {
			return true
		}
	}
	return false
}
