package types

// TruncateRunes cuts s to at most n runes. Byte slicing would split
// multi-byte Japanese text.
func TruncateRunes(s string, n int) string {
	if n < 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
