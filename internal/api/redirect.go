package api

import "strings"

// SafeRedirectPath returns target when it is a same-origin relative path and
// fallback otherwise. Protocol-relative ("//host") and backslash forms are rejected.
func SafeRedirectPath(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return fallback
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, `/\`) {
		return fallback
	}
	if strings.ContainsAny(target, "\r\n") {
		return fallback
	}
	return target
}
