package webhook

import (
	"context"
	"net"
	"testing"

	"github.com/albri/mdplane/internal/models"
)

// fakeResolver stubs DNS answers so hostname-based SSRF checks don't
// depend on a live network during tests.
type fakeResolver struct {
	answers map[string][]net.IPAddr
}

func (f fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	addrs, ok := f.answers[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return addrs, nil
}

func TestPolicy_Validate_AllowsPublicURL(t *testing.T) {
	p := NewPolicy()
	p.Resolver = fakeResolver{answers: map[string][]net.IPAddr{
		"hooks.example.com": {{IP: net.ParseIP("203.0.113.10")}},
	}}
	if derr := p.Validate("https://hooks.example.com/deliver"); derr != nil {
		t.Fatalf("unexpected error: %+v", derr)
	}
}

func TestPolicy_Validate_RejectsHostnameThatResolvesToPrivateAddress(t *testing.T) {
	p := NewPolicy()
	p.Resolver = fakeResolver{answers: map[string][]net.IPAddr{
		"internal.example.com": {{IP: net.ParseIP("169.254.169.254")}},
	}}
	if derr := p.Validate("http://internal.example.com/hook"); derr == nil || derr.Code != models.CodeInvalidWebhookURL {
		t.Fatalf("got %+v, want INVALID_WEBHOOK_URL for a hostname resolving to a blocked range", derr)
	}
}

func TestPolicy_Validate_RejectsUnresolvableHost(t *testing.T) {
	p := NewPolicy()
	p.Resolver = fakeResolver{answers: map[string][]net.IPAddr{}}
	if derr := p.Validate("http://does-not-resolve.example.com/hook"); derr == nil || derr.Code != models.CodeInvalidWebhookURL {
		t.Fatalf("got %+v, want INVALID_WEBHOOK_URL for a host that fails to resolve", derr)
	}
}

func TestPolicy_Validate_RejectsBlockedSchemes(t *testing.T) {
	p := NewPolicy()
	for _, url := range []string{"file:///etc/passwd", "gopher://internal:70/", "ftp://example.com/"} {
		if derr := p.Validate(url); derr == nil || derr.Code != models.CodeInvalidWebhookURL {
			t.Errorf("url %q: got %+v, want INVALID_WEBHOOK_URL", url, derr)
		}
	}
}

func TestPolicy_Validate_RejectsLoopback(t *testing.T) {
	p := NewPolicy()
	for _, url := range []string{"http://127.0.0.1/hook", "http://localhost/hook", "http://[::1]/hook"} {
		if derr := p.Validate(url); derr == nil || derr.Code != models.CodeInvalidWebhookURL {
			t.Errorf("url %q: got %+v, want INVALID_WEBHOOK_URL", url, derr)
		}
	}
}

func TestPolicy_Validate_RejectsLinkLocalMetadataEndpoint(t *testing.T) {
	p := NewPolicy()
	if derr := p.Validate("http://169.254.169.254/latest/meta-data/"); derr == nil || derr.Code != models.CodeInvalidWebhookURL {
		t.Fatalf("got %+v, want INVALID_WEBHOOK_URL", derr)
	}
}

func TestPolicy_Validate_RejectsPrivateRanges(t *testing.T) {
	p := NewPolicy()
	for _, url := range []string{"http://10.0.0.5/hook", "http://172.16.0.5/hook", "http://192.168.1.5/hook"} {
		if derr := p.Validate(url); derr == nil || derr.Code != models.CodeInvalidWebhookURL {
			t.Errorf("url %q: got %+v, want INVALID_WEBHOOK_URL", url, derr)
		}
	}
}

func TestPolicy_Validate_RejectsUnspecified(t *testing.T) {
	p := NewPolicy()
	if derr := p.Validate("http://0.0.0.0/hook"); derr == nil || derr.Code != models.CodeInvalidWebhookURL {
		t.Fatalf("got %+v, want INVALID_WEBHOOK_URL", derr)
	}
}

func TestPolicy_Validate_RejectsDotLocal(t *testing.T) {
	p := NewPolicy()
	if derr := p.Validate("http://printer.local/hook"); derr == nil || derr.Code != models.CodeInvalidWebhookURL {
		t.Fatalf("got %+v, want INVALID_WEBHOOK_URL", derr)
	}
}

func TestPolicy_Validate_MalformedURL(t *testing.T) {
	p := NewPolicy()
	for _, url := range []string{"not a url", "http://", ""} {
		if derr := p.Validate(url); derr == nil || derr.Code != models.CodeInvalidWebhookURL {
			t.Errorf("url %q: got %+v, want INVALID_WEBHOOK_URL", url, derr)
		}
	}
}

func TestPolicy_Validate_AllowListOverridesBlockedHost(t *testing.T) {
	p := NewPolicy("127.0.0.1")
	if derr := p.Validate("http://127.0.0.1:9999/hook"); derr != nil {
		t.Fatalf("allow-listed host should pass, got %+v", derr)
	}
}
