package credential

import (
	"testing"

	"github.com/albri/mdplane/internal/models"
)

func TestDecodePathSegment_PlainSegment(t *testing.T) {
	got, derr := DecodePathSegment("notes.md")
	if derr != nil {
		t.Fatalf("unexpected error: %+v", derr)
	}
	if got != "notes.md" {
		t.Errorf("got %q, want notes.md", got)
	}
}

func TestDecodePathSegment_PercentEncoded(t *testing.T) {
	got, derr := DecodePathSegment("my%20notes.md")
	if derr != nil {
		t.Fatalf("unexpected error: %+v", derr)
	}
	if got != "my notes.md" {
		t.Errorf("got %q, want %q", got, "my notes.md")
	}
}

func TestDecodePathSegment_InvalidEscape(t *testing.T) {
	for _, seg := range []string{"bad%ZZfile", "trailing%", "cut%2"} {
		_, derr := DecodePathSegment(seg)
		if derr == nil || derr.Code != models.CodeInvalidRequest {
			t.Errorf("segment %q: got %+v, want INVALID_REQUEST", seg, derr)
		}
	}
}

func TestDecodePathSegment_Traversal(t *testing.T) {
	_, derr := DecodePathSegment("..")
	if derr == nil || derr.Code != models.CodeInvalidPath {
		t.Fatalf("got %+v, want INVALID_PATH", derr)
	}
}

func TestDecodePathSegment_EncodedNullByte(t *testing.T) {
	_, derr := DecodePathSegment("file%00name")
	if derr == nil || derr.Code != models.CodeInvalidPath {
		t.Fatalf("got %+v, want INVALID_PATH", derr)
	}
}

func TestDecodePathSegment_DoubleEncodedTraversalNotRecursed(t *testing.T) {
	// %252e%252e decodes one layer to the literal string "%2e%2e", not to
	// "..", so it must pass through as a harmless (if odd) file name
	// rather than tripping the traversal check.
	got, derr := DecodePathSegment("%252e%252e")
	if derr != nil {
		t.Fatalf("unexpected error: %+v", derr)
	}
	if got != "%2e%2e" {
		t.Errorf("got %q, want %q (no second decode pass)", got, "%2e%2e")
	}
}

func TestDecodePath_SplitsAndDecodesEachSegment(t *testing.T) {
	got, derr := DecodePath("/docs/my%20file.md")
	if derr != nil {
		t.Fatalf("unexpected error: %+v", derr)
	}
	want := []string{"docs", "my file.md"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDecodePath_TraversalInMiddleSegment(t *testing.T) {
	_, derr := DecodePath("/docs/../secrets.md")
	if derr == nil || derr.Code != models.CodeInvalidPath {
		t.Fatalf("got %+v, want INVALID_PATH", derr)
	}
}

func TestDecodePath_RootIsEmpty(t *testing.T) {
	got, derr := DecodePath("/")
	if derr != nil {
		t.Fatalf("unexpected error: %+v", derr)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}
