package common

import "strings"

func FindStop(sequence string, stops []string) (bool, string) {
	for _, stop := range stops {
		if strings.Contains(sequence, stop) {
			return true, stop
		}
	}

	return false, ""
}

func ContainsStopSuffix(sequence string, stops []string) bool {
	for _, stop := range stops {
		for i := 1; i <= len(stop); i++ {
			if strings.HasSuffix(sequence, stop[:i]) {
				return true
			}
		}
	}

	return false
}

// TruncateStop removes the provided stop string from pieces, returning the
// partial pieces with stop removed, including truncating the last piece if
// required (and signalling if this was the case).
func TruncateStop(pieces []string, stop string) ([]string, bool) {
	var sequence string
	for _, p := range pieces {
		sequence += p
	}

	idx := strings.Index(sequence, stop)
	if idx < 0 {
		return pieces, false
	}

	truncated := sequence[:idx]
	if len(truncated) == 0 {
		return nil, true
	}

	result := make([]string, 0, len(pieces))

	pos := 0
	truncationHappened := false
	for _, p := range pieces {
		if pos >= len(truncated) {
			break
		}

		chunk := truncated[pos:min(pos+len(p), len(truncated))]
		if len(chunk) < len(p) {
			truncationHappened = true
		}
		if len(chunk) > 0 {
			result = append(result, chunk)
		}
		pos += len(p)
	}

	return result, truncationHappened
}
