package logger

import "unicode/utf8"

// DefaultClip caps logged field values. Keys and extracted-content fragments can
// run to hundreds of kilobytes; a log line must stay readable in CloudWatch.
const DefaultClip = 1024

// Clip bounds s to max bytes, backing off to a rune boundary and appending a
// truncation marker. max <= 0 disables clipping.
func Clip(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...[clipped]"
}
