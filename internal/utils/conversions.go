package utils

import "fmt"

// ToStringSlice flattens a decoded JSON value into strings: a string becomes a
// one-element slice, a list keeps its string elements.
func ToStringSlice(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		stringSlice := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				stringSlice = append(stringSlice, s)
			}
		}
		return stringSlice
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(v)}
	}
}
