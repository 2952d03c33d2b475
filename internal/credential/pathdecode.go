// Package credential resolves a request's URL-embedded capability key,
// bearer API key, or OAuth session cookie into a workspace-scoped
// authorization context (spec.md §4.1).
package credential

import (
	"strings"

	"github.com/albri/mdplane/internal/models"
)

// DecodePathSegment percent-decodes a single URL path segment exactly
// once and rejects the malformed or dangerous forms called out in §4.1:
// an invalid escape, a trailing '%', an embedded null byte, a literal
// ".." segment, or a decoded null byte. Double-encoded sequences
// (%25..) are intentionally not recursively decoded, so a ".." hidden
// behind a second layer of encoding never materializes.
func DecodePathSegment(segment string) (string, *models.DomainError) {
	decoded, err := percentDecode(segment)
	if err != nil {
		return "", models.NewError(models.CodeInvalidRequest, "Invalid URL encoding")
	}
	if decoded == ".." || strings.ContainsRune(decoded, 0) {
		return "", models.NewError(models.CodeInvalidPath, "Path traversal")
	}
	return decoded, nil
}

// DecodePath splits a slash-separated path into segments and decodes
// each one, failing on the first bad segment.
func DecodePath(path string) ([]string, *models.DomainError) {
	raw := strings.Split(strings.Trim(path, "/"), "/")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		if seg == "" {
			continue
		}
		dec, derr := DecodePathSegment(seg)
		if derr != nil {
			return nil, derr
		}
		out = append(out, dec)
	}
	return out, nil
}

// percentDecode decodes exactly one layer of %XX escapes, refusing a
// malformed escape or a trailing '%' rather than passing it through.
func percentDecode(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			b.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", errBadEscape
		}
		hi, ok1 := hexVal(s[i+1])
		lo, ok2 := hexVal(s[i+2])
		if !ok1 || !ok2 {
			return "", errBadEscape
		}
		b.WriteByte(byte(hi<<4 | lo))
		i += 2
	}
	return b.String(), nil
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

var errBadEscape = &decodeError{"invalid percent-encoding"}

type decodeError struct{ msg string }

func (e *decodeError) Error() string { return e.msg }
