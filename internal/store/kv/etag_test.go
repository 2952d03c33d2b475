package kv

import "testing"

func TestComputeETag_Is16LowercaseHexChars(t *testing.T) {
	etag := ComputeETag([]byte("hello world"))
	if len(etag) != 16 {
		t.Fatalf("len = %d, want 16", len(etag))
	}
	for _, c := range etag {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Fatalf("etag %q contains a non-lowercase-hex character %q", etag, c)
		}
	}
}

func TestComputeETag_Deterministic(t *testing.T) {
	content := []byte("some file content")
	if ComputeETag(content) != ComputeETag(content) {
		t.Error("same content should produce the same etag")
	}
	if ComputeETag([]byte("a")) == ComputeETag([]byte("b")) {
		t.Error("different content should (overwhelmingly likely) produce different etags")
	}
}

func TestETagMatches_IgnoresQuotingAndCase(t *testing.T) {
	cases := []struct {
		ifMatch, current string
		want             bool
	}{
		{"ab12cd34ef567890", "ab12cd34ef567890", true},
		{`"ab12cd34ef567890"`, "ab12cd34ef567890", true},
		{"AB12CD34EF567890", "ab12cd34ef567890", true},
		{" ab12cd34ef567890 ", "ab12cd34ef567890", true},
		{"deadbeefdeadbeef", "ab12cd34ef567890", false},
	}
	for _, tc := range cases {
		if got := ETagMatches(tc.ifMatch, tc.current); got != tc.want {
			t.Errorf("ETagMatches(%q, %q) = %v, want %v", tc.ifMatch, tc.current, got, tc.want)
		}
	}
}
