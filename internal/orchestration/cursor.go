package orchestration

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// cursorPayload is the opaque pagination cursor contents: the sort key of
// the last row returned, so the next page can resume with a simple
// greater-than comparison regardless of the underlying store's native
// iteration order.
type cursorPayload struct {
	SortKey string `json:"k"`
	ID      string `json:"id"`
}

// EncodeCursor produces an opaque, base64url-encoded pagination cursor.
func EncodeCursor(sortKey, id string) string {
	b, _ := json.Marshal(cursorPayload{SortKey: sortKey, ID: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a cursor produced by EncodeCursor. Callers must treat
// an invalid cursor as a 400 INVALID_REQUEST, not a silent reset to the
// first page.
func DecodeCursor(cursor string) (sortKey, id string, err error) {
	if cursor == "" {
		return "", "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", fmt.Errorf("invalid cursor: %w", err)
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", "", fmt.Errorf("invalid cursor: %w", err)
	}
	return p.SortKey, p.ID, nil
}
