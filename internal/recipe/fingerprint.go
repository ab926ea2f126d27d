package recipe

import "fmt"

// ValidFingerprint reports whether fp is a non-empty string over {0,1}.
func ValidFingerprint(fp string) bool {
	if fp == "" {
		return false
	}
	for i := 0; i < len(fp); i++ {
		if fp[i] != '0' && fp[i] != '1' {
			return false
		}
	}
	return true
}

// HammingDistance counts differing bits between two fingerprints of equal length.
func HammingDistance(a, b string) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("recipe: fingerprint length mismatch: %d vs %d", len(a), len(b))
	}
	if !ValidFingerprint(a) || !ValidFingerprint(b) {
		return 0, fmt.Errorf("recipe: fingerprint is not a binary string")
	}
	d := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d, nil
}

// FingerprintPrefix returns at most n leading digits of fp for display.
func FingerprintPrefix(fp string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(fp) <= n {
		return fp
	}
	return fp[:n]
}
