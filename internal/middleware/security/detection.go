// Package security holds response hardening headers and request screening.
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"

	"cantine/internal/log"
)

type DetectionMetrics struct {
	SuspiciousRequests int64 `json:"suspiciousRequests"`
}

// rule inspects a request and names what it found, or returns "".
type rule func(r *http.Request) string

var (
	probePaths = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", "etc/passwd", "cmd.exe",
	}
	injections = []string{"eval(", "javascript:", "<script", "union select"}
	scanners   = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}
)

const (
	maxURLLength   = 2048
	maxProxyHops   = 6
	defaultProxies = "127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16"
)

var rules = []rule{
	func(r *http.Request) string {
		target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
		for _, p := range probePaths {
			if strings.Contains(target, p) {
				return "probe " + p
			}
		}
		for _, p := range injections {
			if strings.Contains(target, p) {
				return "injection " + p
			}
		}
		return ""
	},
	func(r *http.Request) string {
		ua := strings.ToLower(r.UserAgent())
		for _, s := range scanners {
			if strings.Contains(ua, s) {
				return "scanner " + s
			}
		}
		return ""
	},
	func(r *http.Request) string {
		switch r.Method {
		case "TRACE", "TRACK", "DEBUG", http.MethodConnect:
			return "method " + r.Method
		}
		return ""
	},
	func(r *http.Request) string {
		if len(r.URL.String()) > maxURLLength {
			return "long url"
		}
		if len(strings.Split(r.Header.Get("X-Forwarded-For"), ",")) > maxProxyHops {
			return "forwarding chain"
		}
		return ""
	},
}

// Detector screens requests for scanner traffic and resolves client
// addresses behind trusted proxies.
type Detector struct {
	suspicious atomic.Int64
	trusted    []netip.Prefix
}

// NewDetector trusts loopback and private networks as proxies.
func NewDetector() *Detector {
	d := &Detector{}
	for _, cidr := range strings.Split(defaultProxies, ",") {
		d.trusted = append(d.trusted, netip.MustParsePrefix(cidr))
	}
	return d
}

// AddTrustedProxy trusts forwarded headers sent from cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
	}
	d.trusted = append(d.trusted, p.Masked())
	return nil
}

// DetectSuspiciousRequest returns the first finding for r, or "".
func (d *Detector) DetectSuspiciousRequest(r *http.Request) string {
	for _, check := range rules {
		if reason := check(r); reason != "" {
			d.suspicious.Add(1)
			return reason
		}
	}
	return ""
}

// Middleware answers 400 to suspicious requests.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason := d.DetectSuspiciousRequest(r)
		if reason == "" {
			next.ServeHTTP(w, r)
			return
		}
		log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request rejected",
			log.FieldClientIP, d.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			"reason", reason)
		http.Error(w, "Bad request", http.StatusBadRequest)
	})
}

// ExtractClientIP returns the peer address, or the forwarded client address
// when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !d.isTrusted(peer) {
		return host
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		if addr, err := netip.ParseAddr(strings.TrimSpace(candidate)); err == nil {
			return addr.String()
		}
	}
	return host
}

func (d *Detector) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range d.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{SuspiciousRequests: d.suspicious.Load()}
}
