package serviceImp

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"umbra/pkg/ingest/service"
)

// URLGuard decides which pages the ingester may fetch.
type URLGuard struct {
	// Allowed hosts; a subdomain of an allowed host is allowed. Empty allows any
	// public host.
	Allowed []string
	// AllowPrivate permits loopback and private addresses (tests, intranet mirrors).
	AllowPrivate bool
	// Lookup resolves host names; nil uses net.DefaultResolver.
	Lookup func(ctx context.Context, host string) ([]net.IPAddr, error)
}

func (g URLGuard) Check(ctx context.Context, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute url", service.ErrURLRejected, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", service.ErrURLRejected, u.Scheme)
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if !g.hostAllowed(host) {
		return nil, fmt.Errorf("%w: domain %s is not in the allow list", service.ErrURLRejected, host)
	}
	if g.AllowPrivate {
		return u, nil
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return nil, fmt.Errorf("%w: %s is a local host", service.ErrURLRejected, host)
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		if !public(addr) {
			return nil, fmt.Errorf("%w: %s is not a public address", service.ErrURLRejected, host)
		}
		return u, nil
	}
	lookup := g.Lookup
	if lookup == nil {
		lookup = net.DefaultResolver.LookupIPAddr
	}
	addrs, err := lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", service.ErrFetch, host, err)
	}
	for _, a := range addrs {
		ip, ok := netip.AddrFromSlice(a.IP)
		if !ok || !public(ip.Unmap()) {
			return nil, fmt.Errorf("%w: %s resolves to a non-public address", service.ErrURLRejected, host)
		}
	}
	return u, nil
}

func (g URLGuard) hostAllowed(host string) bool {
	if len(g.Allowed) == 0 {
		return true
	}
	for _, a := range g.Allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}

func public(a netip.Addr) bool {
	a = a.Unmap()
	return a.IsValid() &&
		!a.IsLoopback() &&
		!a.IsPrivate() &&
		!a.IsLinkLocalUnicast() &&
		!a.IsLinkLocalMulticast() &&
		!a.IsInterfaceLocalMulticast() &&
		!a.IsMulticast() &&
		!a.IsUnspecified()
}
