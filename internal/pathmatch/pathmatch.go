// Package pathmatch implements the loose route comparison shared by the
// cross-reference builder and the gap reporter.
package pathmatch

import "strings"

// Normalize strips leading and trailing slashes and lowercases p.
func Normalize(p string) string {
	return strings.ToLower(strings.Trim(p, "/"))
}

// Match reports whether a and b match after normalisation: either one is a
// substring of the other. An empty path therefore matches everything.
func Match(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

// SameMethod compares HTTP verbs case-insensitively.
func SameMethod(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
