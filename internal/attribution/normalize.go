// Package attribution implements the pure decision logic of the engine:
// canonicalizing content URLs, resolving inbound signals to posts,
// propagating those resolutions along the signal → meeting → opportunity
// chain, and aggregating them into per-post rollups for a reporting window.
//
// Nothing in this package performs I/O. Callers load a Snapshot, hand it to
// Compute, and persist the returned rollups.
package attribution

import (
	"net/url"
	"regexp"
	"strings"
)

const canonicalHost = "www.linkedin.com"

// acceptedPaths are the content permalink shapes that identify a single item:
// post permalink, feed update, article and profile activity listing.
var acceptedPaths = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^/posts/`),
	regexp.MustCompile(`(?i)^/feed/update/`),
	regexp.MustCompile(`(?i)^/pulse/`),
	regexp.MustCompile(`(?i)^/in/[^/]+/recent-activity/all/?$`),
}

// NormalizeURL canonicalizes a content URL into a stable comparison key.
//
// Bare and http forms are upgraded to https, the host must be linkedin.com
// with or without "www." (any case), trailing slashes, query and fragment are
// dropped, and the path must match one of the accepted permalink shapes.
// The second return value is false when raw is not a valid content URL.
func NormalizeURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	u, err := url.Parse(coerceScheme(trimmed))
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "linkedin.com" && host != canonicalHost {
		return "", false
	}

	path := strings.TrimSpace(u.EscapedPath())
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		path = "/"
	}

	for _, re := range acceptedPaths {
		if re.MatchString(path) {
			return "https://" + canonicalHost + path, true
		}
	}
	return "", false
}

// ValidURL reports whether raw normalizes to a content key.
func ValidURL(raw string) bool {
	_, ok := NormalizeURL(raw)
	return ok
}

// coerceScheme upgrades http:// and scheme-less linkedin.com inputs to https.
func coerceScheme(s string) string {
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "http://"):
		return "https://" + s[len("http://"):]
	case strings.HasPrefix(lower, "https://"):
		return s
	case strings.HasPrefix(lower, "www.linkedin.com/"), strings.HasPrefix(lower, "linkedin.com/"):
		return "https://" + s
	}
	return s
}
