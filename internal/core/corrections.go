package core

import "strings"

// Corrections maps a normalized misheard merchant token to its corrected display name.
type Corrections map[string]string

// NormalizeMerchantKey lower-cases and trims a heard token for use as a correction key.
func NormalizeMerchantKey(heard string) string {
	return strings.ToLower(strings.TrimSpace(heard))
}

// Lookup resolves a heard token through the table. Keys are matched exactly after normalization.
func (c Corrections) Lookup(heard string) (string, bool) {
	if len(c) == 0 {
		return "", false
	}
	v, ok := c[NormalizeMerchantKey(heard)]
	return v, ok
}

// Clone returns an independent copy.
func (c Corrections) Clone() Corrections {
	out := make(Corrections, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
