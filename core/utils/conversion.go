package utils

import "fmt"

// ToString converts a scalar value to its string form. Strings and byte
// slices pass through; other scalars render with their default format, so a
// JSON number 3 reads as "3".
func ToString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
