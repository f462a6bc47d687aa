package core

// MaskSecret renders a display-safe preview of a secret: the first 12 and
// last 6 characters when longer than 20, otherwise the first 8.
func MaskSecret(secret string) string {
	r := []rune(secret)
	if len(r) > 20 {
		return string(r[:12]) + "..." + string(r[len(r)-6:])
	}
	if len(r) > 8 {
		r = r[:8]
	}
	return string(r) + "..."
}
