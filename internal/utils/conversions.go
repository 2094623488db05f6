package utils

// ToStringSlice returns the string elements of a decoded JSON list. Non-string
// elements are skipped; anything that is not a list yields an empty slice.
func ToStringSlice(value any) []string {
	stringSlice := make([]string, 0)
	switch list := value.(type) {
	case []any:
		for _, v := range list {
			if s, ok := v.(string); ok {
				stringSlice = append(stringSlice, s)
			}
		}
	case []string:
		stringSlice = append(stringSlice, list...)
	}
	return stringSlice
}

// Unique removes duplicates, keeping the first occurrence of each value.
func Unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	return unique
}

// Without returns the values for which drop reports false.
func Without(values []string, drop func(string) bool) []string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if !drop(v) {
			kept = append(kept, v)
		}
	}
	return kept
}
