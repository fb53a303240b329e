// Package policy decides which URLs are eligible for question blocking.
// All functions are pure and safe for concurrent use.
package policy

import (
	"net/url"
	"regexp"
	"strings"
)

// Mode selects how the site list is interpreted.
type Mode string

const (
	// ModeBlacklist blocks everywhere except listed sites.
	ModeBlacklist Mode = "blacklist"
	// ModeWhitelist blocks only on listed sites.
	ModeWhitelist Mode = "whitelist"
)

// Rules is the blocking-mode slice of the runtime configuration.
type Rules struct {
	Mode              Mode
	SiteList          []string
	BuiltinExclusions []string
}

// DefaultExclusions covers internal browser pages, extension pages, local
// files and loopback hosts. These are never eligible in any mode.
func DefaultExclusions() []string {
	return []string{
		"about:",
		"chrome://",
		"chrome-extension://",
		"moz-extension://",
		"edge://",
		"devtools://",
		"view-source:",
		"file://",
		"localhost",
		"127.0.0.1",
		"[::1]",
	}
}

// IsEligible reports whether blocking logic applies to the given URL.
// Empty URLs and builtin exclusions are never eligible. In whitelist mode
// the URL must match the site list; in blacklist mode it must not.
func IsEligible(rawURL string, r Rules) bool {
	if rawURL == "" {
		return false
	}

	exclusions := r.BuiltinExclusions
	if len(exclusions) == 0 {
		exclusions = DefaultExclusions()
	}

	host := hostOf(rawURL)
	if matchesAny(rawURL, host, exclusions) {
		return false
	}

	switch r.Mode {
	case ModeWhitelist:
		return matchesAny(rawURL, host, r.SiteList)
	default:
		return !matchesAny(rawURL, host, r.SiteList)
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func matchesAny(rawURL, host string, patterns []string) bool {
	for _, p := range patterns {
		if matches(rawURL, host, p) {
			return true
		}
	}
	return false
}

// matches evaluates one pattern against both the full URL and the hostname.
// Three forms: exact, wildcard ('*'), and substring/domain containment.
// Malformed patterns never match.
func matches(rawURL, host string, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}

	if pattern == rawURL || pattern == host {
		return true
	}

	if strings.Contains(pattern, "*") {
		return wildcardMatch(rawURL, pattern) || wildcardMatch(host, pattern)
	}

	if strings.Contains(rawURL, pattern) {
		return true
	}
	// Domain containment: pattern "example.com" covers "www.example.com"
	// but not "notexample.com".
	hostNoPort := host
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.HasPrefix(host, "[") {
		hostNoPort = host[:i]
	}
	return hostNoPort == pattern || strings.HasSuffix(hostNoPort, "."+pattern)
}

func wildcardMatch(s, pattern string) bool {
	if s == "" {
		return false
	}
	expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
