package utils

import (
	"regexp"
	"strings"
)

var dsnPasswordRegex = regexp.MustCompile(`(:)([^:@]+)(@)`)

// MaskDSN hides the password part of a connection string.
func MaskDSN(dsn string) string {
	return dsnPasswordRegex.ReplaceAllString(dsn, ":***@")
}

// MaskToken keeps the token prefix (e.g. "shpat_") and the last four
// characters so two tokens can be told apart in logs.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	prefix := ""
	if i := strings.Index(token, "_"); i >= 0 && i < 8 {
		prefix = token[:i+1]
		token = token[i+1:]
	}
	if len(token) <= 4 {
		return prefix + "****"
	}
	return prefix + "****" + token[len(token)-4:]
}
