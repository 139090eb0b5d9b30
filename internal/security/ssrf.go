package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"content-crew/internal/domain"
)

// blockedPrefixes are the private and reserved ranges a model-supplied URL
// must never reach. IPv4-mapped IPv6 addresses are unmapped before matching.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// CheckURL verifies that rawURL is an absolute http(s) URL. Host resolution
// is left to the dialer of NewSafeClient.
func CheckURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, domain.NewDomainError("CheckURL", domain.ErrSSRFBlocked, fmt.Sprintf("invalid URL: %v", err))
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	case "":
		return nil, domain.NewDomainError("CheckURL", domain.ErrSSRFBlocked, "missing URL scheme, only http/https allowed")
	default:
		return nil, domain.NewDomainError("CheckURL", domain.ErrSSRFBlocked,
			fmt.Sprintf("scheme %q not allowed, only http/https", u.Scheme))
	}

	if u.Hostname() == "" {
		return nil, domain.NewDomainError("CheckURL", domain.ErrSSRFBlocked, "empty hostname")
	}
	return u, nil
}

// IsPrivateIP reports whether ip falls within a blocked range. Unparseable
// input counts as private.
func IsPrivateIP(ip net.IP) bool {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return true
	}
	addr = addr.Unmap()
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// NewSafeClient returns an HTTP client for fetching model-supplied URLs.
// Unless allowPrivate is set, its dialer resolves each host once, rejects
// private addresses and connects to the validated IP directly, so DNS
// rebinding between check and connect is not possible. Redirects are
// re-dialed through the same check.
func NewSafeClient(timeout time.Duration, allowPrivate bool) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: time.Second,
		DialContext:           dialer.DialContext,
	}
	if !allowPrivate {
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialPublic(ctx, dialer, network, addr)
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after %d redirects", len(via))
			}
			_, err := CheckURL(req.URL.String())
			return err
		},
	}
}

func dialPublic(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed for %s: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no IPs resolved for %s", host)
	}

	for _, ip := range ips {
		if IsPrivateIP(ip.IP) {
			return nil, domain.NewDomainError("SafeClient.Dial", domain.ErrSSRFBlocked,
				fmt.Sprintf("%s resolves to private IP %s", host, ip.IP))
		}
	}

	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}
