package util

func TrimString(s string, length int) string {
	if len(s) <= length {
		return s
	}

	if length <= 3 {
		return s[:length]
	}

	return s[:length-3] + "..."
}
