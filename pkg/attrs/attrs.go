// Package attrs reads values back out of slog-style key/value slices.
package attrs

import "fmt"

// ExtractString returns the value for key in [k1, v1, k2, v2, ...]. Strings
// and fmt.Stringer values are supported; anything else yields "".
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		switch v := attrs[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		}
	}
	return ""
}
