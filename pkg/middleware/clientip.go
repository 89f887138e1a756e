package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ProxyTrust lists the peers allowed to report a client address through
// X-Forwarded-For or X-Real-IP. A nil or empty ProxyTrust trusts no one and
// every request is keyed by its direct peer.
type ProxyTrust struct {
	networks []*net.IPNet
}

// ParseTrustedProxies parses proxy addresses given as single IPs or CIDR
// ranges
func ParseTrustedProxies(entries []string) (*ProxyTrust, error) {
	p := &ProxyTrust{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy: %q", entry)
			}
			bits := 8 * net.IPv4len
			if ip.To4() == nil {
				bits = 8 * net.IPv6len
			}
			entry = fmt.Sprintf("%s/%d", ip.String(), bits)
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy: %q: %w", entry, err)
		}
		p.networks = append(p.networks, network)
	}
	return p, nil
}

func (p *ProxyTrust) trusts(addr string) bool {
	if p == nil {
		return false
	}
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return false
	}
	for _, network := range p.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the address a request is attributed to. Forwarding
// headers count only when the direct peer is trusted; X-Forwarded-For is
// walked from the nearest hop outward and the first untrusted hop wins.
func (p *ProxyTrust) ClientIP(r *http.Request) string {
	peer := remoteHost(r)
	if !p.trusts(peer) {
		return peer
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				break
			}
			if !p.trusts(hop) {
				return hop
			}
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
		return realIP
	}
	return peer
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
