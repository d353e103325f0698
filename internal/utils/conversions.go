package utils

import "fmt"

// ToStringSlice flattens a decoded JSON value into its string messages.
// A string yields itself, a list yields each string element (nested lists included).
func ToStringSlice(v any) []string {
	stringSlice := make([]string, 0)
	switch t := v.(type) {
	case string:
		stringSlice = append(stringSlice, t)
	case []any:
		for _, e := range t {
			stringSlice = append(stringSlice, ToStringSlice(e)...)
		}
	case map[string]any:
		for k, e := range t {
			for _, s := range ToStringSlice(e) {
				stringSlice = append(stringSlice, fmt.Sprintf("%s: %s", k, s))
			}
		}
	}
	return stringSlice
}
