package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ScopeList is a deduplicated set of ApiKeyScope values stored as a
// comma-separated column, following the teacher's convention of small
// custom GORM scalar types (see models.SharePermission) rather than a
// join table for a handful of enum flags.
type ScopeList []ApiKeyScope

// Scan implements sql.Scanner.
func (s *ScopeList) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("models: unsupported ScopeList scan type %T", value)
	}
	*s = parseScopeList(str)
	return nil
}

// Value implements driver.Valuer.
func (s ScopeList) Value() (driver.Value, error) {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = string(v)
	}
	return strings.Join(parts, ","), nil
}

// Dedup returns a new ScopeList with duplicate scopes removed, preserving
// first-seen order, per the ApiKey invariant that scopes are deduplicated
// before storage.
func (s ScopeList) Dedup() ScopeList {
	seen := make(map[ApiKeyScope]bool, len(s))
	out := make(ScopeList, 0, len(s))
	for _, v := range s {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func parseScopeList(s string) ScopeList {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(ScopeList, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, ApiKeyScope(p))
	}
	return out
}

// StringList is the same comma-separated-column convention as ScopeList,
// used for Webhook.Events where the elements are event kind names rather
// than ApiKeyScope values.
type StringList []string

// Scan implements sql.Scanner.
func (s *StringList) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("models: unsupported StringList scan type %T", value)
	}
	if str == "" {
		*s = nil
		return nil
	}
	parts := strings.Split(str, ",")
	out := make(StringList, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	*s = out
	return nil
}

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	return strings.Join(s, ","), nil
}
