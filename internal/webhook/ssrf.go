// Package webhook implements SSRF-safe outbound webhook dispatch:
// target URL validation, HMAC request signing, and a retrying delivery
// worker (spec.md §4.6).
package webhook

import (
	"context"
	"net"
	"net/url"
	"strings"

	"github.com/albri/mdplane/internal/models"
)

// Resolver is the subset of *net.Resolver the policy needs, broken out
// so tests can stub DNS answers without a live lookup.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Policy validates candidate webhook URLs against the §4.6 SSRF rules.
// AllowHosts is a test-mode escape hatch letting integration tests point
// webhooks at a local fixture server that would otherwise resolve to a
// blocked range.
type Policy struct {
	AllowHosts map[string]bool
	Resolver   Resolver
}

// NewPolicy constructs a Policy with the given allow-listed hosts,
// resolving hostnames through net.DefaultResolver.
func NewPolicy(allowHosts ...string) Policy {
	p := Policy{AllowHosts: make(map[string]bool, len(allowHosts)), Resolver: net.DefaultResolver}
	for _, h := range allowHosts {
		p.AllowHosts[strings.ToLower(h)] = true
	}
	return p
}

// Validate checks rawURL against the SSRF policy: scheme must be http
// or https, and the host must not resolve to loopback, link-local,
// RFC1918 private space, 0.0.0.0, an IPv4-mapped IPv6 equivalent of any
// of those, or a bare ".local" mDNS name — unless explicitly
// allow-listed.
func (p Policy) Validate(rawURL string) *models.DomainError {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return models.NewError(models.CodeInvalidWebhookURL, "malformed webhook URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return models.NewError(models.CodeInvalidWebhookURL, "webhook URL must use http or https")
	}

	host := u.Hostname()
	if host == "" {
		return models.NewError(models.CodeInvalidWebhookURL, "webhook URL has no host")
	}
	if p.AllowHosts[strings.ToLower(host)] {
		return nil
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".local") {
		return models.NewError(models.CodeInvalidWebhookURL, "webhook host is not publicly routable")
	}

	ips, err := p.resolveHostIPs(host)
	if err != nil {
		return models.NewError(models.CodeInvalidWebhookURL, "webhook host could not be resolved")
	}
	for _, ip := range ips {
		if blockedIP(ip) {
			return models.NewError(models.CodeInvalidWebhookURL, "webhook host resolves to a blocked address range")
		}
	}
	return nil
}

// resolveHostIPs returns host's candidate addresses: the literal itself
// if host is an IP, otherwise every address a DNS lookup returns. This
// runs both at webhook creation and again immediately before each
// dispatch (dispatcher.go), so a hostname rebound to an internal
// address between those two points is still caught.
func (p Policy) resolveHostIPs(host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	resolver := p.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(context.Background(), host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// blockedIP reports whether ip falls in a range forbidden by the SSRF
// policy: loopback, link-local, RFC1918 private space, unspecified, or
// an IPv4-mapped IPv6 equivalent of any of those.
func blockedIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	return ip.IsPrivate()
}
