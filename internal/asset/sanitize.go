package asset

import (
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName strips characters outside the alphanumeric-plus-separator
// set, preserving the original extension, so the result is safe as both a
// filesystem path segment and a URL path segment. An empty base falls back
// to "file".
func SanitizeName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(filepath.Base(name), ext)

	base = unsafeChars.ReplaceAllString(base, "")
	ext = unsafeChars.ReplaceAllString(ext, "")
	if base == "" || base == "." || base == ".." {
		base = "file"
	}
	return base + ext
}

// NamespaceFor maps a username to the owner's remote folder token using
// the same sanitation rule as filenames.
func NamespaceFor(username string) string {
	ns := unsafeChars.ReplaceAllString(username, "")
	if ns == "" {
		ns = "user"
	}
	return strings.ToLower(ns)
}
