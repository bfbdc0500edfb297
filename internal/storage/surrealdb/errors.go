package surrealdb

import "strings"

// isNotFoundError reports whether a driver error denotes a missing record.
// The driver surfaces these as plain query errors, so this is a string match.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no record")
}
