// Package leakdetect implements the cross-cutting leak detector (C5): a
// free function over a reply's data tree that refuses to let any string
// matching a host-path shape leave the process. It is wired at every tool
// boundary as a thin wrapper and deliberately kept outside the resolver
// and enforcer, which must stay pure with respect to their own inputs.
package leakdetect

import (
	"regexp"

	"github.com/ck3fence/ck3fence/internal/reply"
)

// patterns is the minimum host-path shape set this detector guards
// against. Teams with additional mount conventions (cloud volumes, custom
// mounts) extend this slice; it is not a closed set the way the root-key
// set is.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Za-z]:\\`),       // Windows drive, e.g. C:\
	regexp.MustCompile(`\\\\[^\\]+`),        // UNC, e.g. \\host\share
	regexp.MustCompile(`/Users/[^/\s]+`),    // macOS home
	regexp.MustCompile(`/home/[^/\s]+`),     // Linux home
	regexp.MustCompile(`/mnt/[A-Za-z](/|$)`), // WSL mount
}

// Match reports whether s contains any host-path shape. Canonical
// addresses ("root:.../...", "mod:.../...") never match any pattern.
func Match(s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// Scan recursively walks value — which must be built only from
// strings, map[string]interface{}, and []interface{}/[]string (the shapes
// a Reply.Data tree is ever built from) — and returns the first offending
// field path, or ("", false) if nothing matched. Non-string scalars are
// ignored.
func Scan(value interface{}) (field string, found bool) {
	return scanAt("", value)
}

func scanAt(path string, value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		if Match(v) {
			return path, true
		}
	case map[string]interface{}:
		for k, val := range v {
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			if Match(k) {
				return childPath, true
			}
			if f, ok := scanAt(childPath, val); ok {
				return f, true
			}
		}
	case []interface{}:
		for i, val := range v {
			if f, ok := scanAt(indexPath(path, i), val); ok {
				return f, true
			}
		}
	case []string:
		for i, s := range v {
			if Match(s) {
				return indexPath(path, i), true
			}
		}
	}
	return "", false
}

func indexPath(path string, i int) string {
	if path == "" {
		return "[]"
	}
	return path + "[]"
}

// ScanReplyLike scans both a data map and a message string — the two
// fields a reply requires host-path opacity for.
func ScanReplyLike(data map[string]interface{}, message string) (field string, found bool) {
	if Match(message) {
		return "message", true
	}
	if data == nil {
		return "", false
	}
	return scanAt("", map[string]interface{}(data))
}

// Guard scans r's data and message; a leak replaces the reply with
// WA-DIR-E-001 rather than letting tainted data out. This is the thin
// wrapper every tool boundary calls before returning a Reply to the
// agent — it is deliberately not invoked from inside the resolver or
// enforcer themselves, which stay pure with respect to their own inputs.
func Guard(r reply.Reply) reply.Reply {
	if field, found := ScanReplyLike(r.Data, r.Message); found {
		return reply.LeakDetected(field)
	}
	return r
}
