// utils/mask.go
package utils

// Mask hides a secret for logging, keeping a short prefix for correlation.
func Mask(secret string) string {
	const visible = 4
	if secret == "" {
		return ""
	}
	if len(secret) <= visible*2 {
		return "***"
	}
	return secret[:visible] + "***"
}
