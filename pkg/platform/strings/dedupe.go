// Package strings holds the small normalizers shared by catalog, plan and
// coupon inputs.
package strings

import (
	"strings"
)

// DedupeAndTrim trims every element and drops empties and repeats, keeping
// first-seen order.
//
//	DedupeAndTrim([]string{"  svc-1 ", "svc-2", "svc-1", ""})
//	// []string{"svc-1", "svc-2"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimUpper is DedupeAndTrim with upper-casing, for
// case-insensitive identifiers such as coupon codes.
func DedupeAndTrimUpper(values []string) []string {
	return dedupe(values, NormalizeCode)
}

// NormalizeCode trims and upper-cases a case-insensitive code.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
	}
	return result
}
