// Package textutil bounds text destined for index documents.
package textutil

import "unicode/utf8"

// TrimToBytes cuts s to at most max bytes without splitting a rune.
func TrimToBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 0 {
		return ""
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
