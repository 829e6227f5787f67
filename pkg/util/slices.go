package util

func InPlaceFilter[T any](s *[]T, p func(T) bool) {
	i := 0
	for _, e := range *s {
		if p(e) {
			(*s)[i] = e
			i++
		}
	}
	clear((*s)[i:])
	*s = (*s)[:i]
}

// Filter returns the elements of s matching p in a new slice, leaving s untouched.
func Filter[T any](s []T, p func(T) bool) []T {
	filtered := make([]T, len(s))
	copy(filtered, s)

	InPlaceFilter(&filtered, p)

	return filtered
}
