package redirect

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// Entry is a single parsed allow-list entry.
type Entry struct {
	Host     string // exact host, or the suffix for wildcard entries
	Wildcard bool
}

// String renders the entry the way it is written in configuration.
func (e Entry) String() string {
	if e.Wildcard {
		return "*." + e.Host
	}
	return e.Host
}

// ParseEntry parses "host" or "*.suffix".
func ParseEntry(raw string) (Entry, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Entry{}, fmt.Errorf("empty allow-list entry")
	}

	wildcard := false
	if strings.HasPrefix(s, "*.") {
		wildcard = true
		s = s[2:]
	}
	if strings.Contains(s, "*") {
		return Entry{}, fmt.Errorf("allow-list entry %q: wildcard only allowed as leading \"*.\"", raw)
	}
	if strings.ContainsAny(s, "/:@?# ") {
		return Entry{}, fmt.Errorf("allow-list entry %q: must be a bare hostname", raw)
	}

	host, err := NormalizeHost(s)
	if err != nil {
		return Entry{}, fmt.Errorf("allow-list entry %q: %w", raw, err)
	}
	return Entry{Host: host, Wildcard: wildcard}, nil
}

// AllowList is an immutable set of permitted redirect hosts.
type AllowList struct {
	exact    map[string]struct{}
	suffixes []string // wildcard suffixes without the leading "*."
}

// NewAllowList parses entries into an AllowList. Duplicate entries are merged.
func NewAllowList(entries []string) (*AllowList, error) {
	al := &AllowList{exact: make(map[string]struct{}, len(entries))}
	seen := make(map[string]struct{})

	for _, raw := range entries {
		e, err := ParseEntry(raw)
		if err != nil {
			return nil, err
		}
		if e.Wildcard {
			if _, ok := seen[e.Host]; ok {
				continue
			}
			seen[e.Host] = struct{}{}
			al.suffixes = append(al.suffixes, e.Host)
			continue
		}
		al.exact[e.Host] = struct{}{}
	}

	sort.Strings(al.suffixes)
	return al, nil
}

// MustAllowList is NewAllowList that panics on error. Intended for tests and
// package-level fixtures.
func MustAllowList(entries ...string) *AllowList {
	al, err := NewAllowList(entries)
	if err != nil {
		panic(err)
	}
	return al
}

// Len returns the number of distinct entries.
func (a *AllowList) Len() int {
	return len(a.exact) + len(a.suffixes)
}

// Entries returns the entries in a stable order.
func (a *AllowList) Entries() []Entry {
	out := make([]Entry, 0, a.Len())
	hosts := make([]string, 0, len(a.exact))
	for h := range a.exact {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	for _, h := range hosts {
		out = append(out, Entry{Host: h})
	}
	for _, s := range a.suffixes {
		out = append(out, Entry{Host: s, Wildcard: true})
	}
	return out
}

// Allows reports whether a normalized host is permitted.
func (a *AllowList) Allows(host string) bool {
	if host == "" {
		return false
	}
	if _, ok := a.exact[host]; ok {
		return true
	}
	for _, suffix := range a.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// NormalizeHost lowercases a hostname, strips a trailing dot and converts
// internationalized names to their ASCII (punycode) form. IP literals are
// canonicalized by net.ParseIP.
func NormalizeHost(host string) (string, error) {
	host = strings.TrimSpace(host)
	host = strings.TrimSuffix(host, ".")
	if len(host) > 2 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}
	if host == "" {
		return "", fmt.Errorf("empty host")
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	if isASCII(host) {
		return strings.ToLower(host), nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("idna: %w", err)
	}
	return strings.ToLower(ascii), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
