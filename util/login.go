// Package util provides small helpers shared by the API modules and services.
package util

import "strings"

// NormalizeLogin strips the domain part of a login ("ivan@corp.ru" -> "ivan").
// Use this function whenever a login comes from an external identity source.
// A login without "@" is returned unchanged; callers trim user input.
func NormalizeLogin(login string) string {
	if i := strings.Index(login, "@"); i >= 0 {
		return login[:i]
	}
	return login
}

// NormalizeLogins trims and normalizes a configured list of logins,
// dropping empty entries
func NormalizeLogins(logins []string) []string {
	out := make([]string, 0, len(logins))
	for _, l := range logins {
		if n := NormalizeLogin(strings.TrimSpace(l)); n != "" {
			out = append(out, n)
		}
	}
	return out
}
