package utils

// Truncate is a simple string truncate. It counts runes so multi-byte
// characters are never split.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
