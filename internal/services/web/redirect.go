package web

import "strings"

const defaultNextPath = "/"

// safeNextPath sanitizes a post-login redirect target. Only same-site
// absolute paths survive; absolute URLs, protocol-relative URLs, and
// backslash-escaped variants fall back to the root path so login cannot be
// used as an open redirector.
func safeNextPath(raw string) string {
	next := strings.TrimSpace(raw)
	if next == "" {
		return defaultNextPath
	}
	if !strings.HasPrefix(next, "/") {
		return defaultNextPath
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return defaultNextPath
	}
	if strings.ContainsAny(next, "\r\n") {
		return defaultNextPath
	}
	return next
}
