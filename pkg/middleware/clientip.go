package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPFunc resolves the address a request is attributed to.
type ClientIPFunc func(r *http.Request) string

// TrustedClientIP returns a resolver that believes X-Forwarded-For only when
// the direct peer is one of the trusted proxies, and then only its last hop,
// which is the one the proxy wrote. Everything else keys on RemoteAddr.
// Entries are CIDRs or bare addresses.
func TrustedClientIP(trusted []string) (ClientIPFunc, error) {
	prefixes := make([]netip.Prefix, 0, len(trusted))
	for _, t := range trusted {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if p, err := netip.ParsePrefix(t); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(t)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: not an address or CIDR", t)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return func(r *http.Request) string {
		peer := RemoteIP(r)
		if !isTrusted(peer, prefixes) {
			return peer
		}
		fwd := r.Header.Values("X-Forwarded-For")
		if len(fwd) == 0 {
			return peer
		}
		hops := strings.Split(fwd[len(fwd)-1], ",")
		if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
			if addr, err := netip.ParseAddr(last); err == nil {
				return addr.Unmap().String()
			}
		}
		return peer
	}, nil
}

// RemoteIP is the host part of RemoteAddr.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}
	return host
}

func isTrusted(ip string, prefixes []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
