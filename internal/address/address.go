// Package address parses and emits ck3fence's canonical addresses — the
// namespaced, URI-like syntax an agent uses to name a target without ever
// seeing a host path.
//
// Grammar:
//
//	address       := ("root:" key | "mod:" name) "/" relative_path
//	relative_path := POSIX-style, no leading "/", no ".." components
//	                 after normalization
//
// Legacy forms are accepted on input and folded to canonical on emission:
//
//	ROOT_<KEY_UPPER>:/<path>
//	mod:<Name>:/<path>
package address

import (
	"fmt"
	"path"
	"strings"
)

// Namespace is either "root" or "mod".
type Namespace string

const (
	NamespaceRoot Namespace = "root"
	NamespaceMod  Namespace = "mod"
)

// ParsedAddress is the structured result of parsing a canonical address.
// Emitting it back out is a pure, idempotent function.
type ParsedAddress struct {
	Namespace    Namespace
	Key          string // lower-case root key, or mod name (case preserved)
	RelativePath string // POSIX-normalized, no leading "/", no ".."
}

// ParseError is a typed parse failure — carries a machine-readable Cause
// so callers (the resolver) can fold it into a WA-RES-I-001 reply without
// string-matching the message.
type ParseError struct {
	Cause string
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("address parse error (%s): %q", e.Cause, e.Input)
}

const (
	CauseEmptyInput      = "empty-input"
	CauseMissingNamespace = "missing-namespace"
	CauseUnknownNamespace = "unknown-namespace"
	CauseEmptyKey         = "empty-key"
	CausePathEscape       = "path-escape"
	CauseHostAbsolute     = "host-absolute"
)

// Parse tokenizes a raw address string into a ParsedAddress, normalizing
// legacy forms and rejecting anything that could name a host path directly.
func Parse(input string) (*ParsedAddress, *ParseError) {
	if input == "" {
		return nil, &ParseError{Cause: CauseEmptyInput, Input: input}
	}

	if isHostAbsolute(input) {
		return nil, &ParseError{Cause: CauseHostAbsolute, Input: input}
	}

	raw := input

	// Legacy: "ROOT_<KEY_UPPER>:/<path>" → fold to "root:<key>/<path>".
	if strings.HasPrefix(raw, "ROOT_") {
		rest := strings.TrimPrefix(raw, "ROOT_")
		idx := strings.Index(rest, ":")
		if idx < 0 {
			return nil, &ParseError{Cause: CauseMissingNamespace, Input: input}
		}
		upperKey := rest[:idx]
		after := rest[idx+1:]
		raw = "root:" + strings.ToLower(upperKey) + after
	}

	// Namespace is the text before the first ':'.
	colonIdx := strings.Index(raw, ":")
	if colonIdx < 0 {
		return nil, &ParseError{Cause: CauseMissingNamespace, Input: input}
	}
	nsRaw := raw[:colonIdx]
	rest := raw[colonIdx+1:]

	ns := Namespace(strings.ToLower(nsRaw))
	if ns != NamespaceRoot && ns != NamespaceMod {
		return nil, &ParseError{Cause: CauseUnknownNamespace, Input: input}
	}

	// Legacy double-punctuation: a leading ":/" collapses to "/".
	rest = strings.TrimPrefix(rest, ":")

	// Legacy "mod:<Name>:/<path>" puts a second ":" between the key and the
	// path instead of a "/" — the TrimPrefix above only eats a colon at the
	// very front of rest, so this one is still in place here. The slash
	// search below still finds the real path separator; strip a trailing
	// ":" off the key it isolates so "TestMod:" normalizes to "TestMod".
	slashIdx := strings.Index(rest, "/")
	if slashIdx < 0 {
		return nil, &ParseError{Cause: CauseEmptyKey, Input: input}
	}
	key := strings.TrimSuffix(rest[:slashIdx], ":")
	relRaw := rest[slashIdx+1:]

	if key == "" {
		return nil, &ParseError{Cause: CauseEmptyKey, Input: input}
	}
	if ns == NamespaceRoot {
		key = strings.ToLower(key)
	}

	relPath, err := normalizeRelativePath(relRaw)
	if err != nil {
		return nil, &ParseError{Cause: CausePathEscape, Input: input}
	}

	return &ParsedAddress{Namespace: ns, Key: key, RelativePath: relPath}, nil
}

// Emit formats a ParsedAddress back to its canonical wire string.
// parse(emit(parse(x))) == parse(x) for all legal x (idempotent).
func (p *ParsedAddress) Emit() string {
	if p.RelativePath == "" {
		return fmt.Sprintf("%s:%s/", p.Namespace, p.Key)
	}
	return fmt.Sprintf("%s:%s/%s", p.Namespace, p.Key, p.RelativePath)
}

// FirstSegment returns the first path segment of the relative path (used
// only as a visibility/operations matrix key — never a permission by
// itself), or "" for the root itself.
func (p *ParsedAddress) FirstSegment() string {
	if p.RelativePath == "" {
		return ""
	}
	if idx := strings.Index(p.RelativePath, "/"); idx >= 0 {
		return p.RelativePath[:idx]
	}
	return p.RelativePath
}

// normalizeRelativePath collapses "./" segments and rejects any remaining
// ".." component once normalization is done.
func normalizeRelativePath(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", nil
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", nil
	}
	cleaned = strings.TrimPrefix(cleaned, "/")
	for _, seg := range strings.Split(cleaned, "/") {
		if seg == ".." {
			return "", fmt.Errorf("path escape")
		}
	}
	return cleaned, nil
}

// isHostAbsolute rejects Windows drive letters, UNC paths, backslash
// paths, and common POSIX home-directory absolute paths — none of these
// are legal canonical addresses.
func isHostAbsolute(s string) bool {
	if strings.HasPrefix(s, `\\`) {
		return true
	}
	if strings.Contains(s, `\`) {
		return true
	}
	if len(s) >= 3 && isASCIILetter(s[0]) && s[1] == ':' && (s[2] == '\\' || s[2] == '/') {
		return true
	}
	if strings.HasPrefix(s, "/Users/") || strings.HasPrefix(s, "/home/") || strings.HasPrefix(s, "/mnt/") {
		return true
	}
	return false
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
