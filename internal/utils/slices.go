package utils

// CloneSlice copies s so callers can't alias stored state. A nil slice stays nil.
func CloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
