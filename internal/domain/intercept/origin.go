package intercept

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Proxies is the set of peers whose X-Forwarded-* headers are honoured.
// A nil *Proxies trusts nobody.
type Proxies struct {
	prefixes []netip.Prefix
}

// ParseProxies accepts IP addresses and CIDR ranges.
func ParseProxies(entries []string) (*Proxies, error) {
	p := &Proxies{}
	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			p.prefixes = append(p.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		p.prefixes = append(p.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return p, nil
}

// Trusted reports whether the request's direct peer is a trusted proxy.
func (p *Proxies) Trusted(r *http.Request) bool {
	if p == nil || len(p.prefixes) == 0 {
		return false
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// OriginalURL reconstructs the absolute URL the client requested. The scheme
// comes from TLS state, the host from the Host header. X-Forwarded-Proto and
// X-Forwarded-Host override both when the peer is a trusted proxy.
func OriginalURL(r *http.Request, proxies *Proxies) string {
	return Origin(r, proxies) + r.URL.RequestURI()
}

// Origin returns scheme://host for the request.
func Origin(r *http.Request, proxies *Proxies) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host

	if proxies.Trusted(r) {
		if proto := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); proto == "https" || proto == "http" {
			scheme = proto
		}
		if fwd := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); fwd != "" {
			host = fwd
		}
	}
	return scheme + "://" + host
}

func firstHeaderValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}
