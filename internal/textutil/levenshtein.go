package textutil

// Ratio returns the normalized similarity of a and b: (|a|+|b|-d)/(|a|+|b|)
// where d is the edit distance counting a substitution as two edits. Two
// empty strings are identical. Comparison is rune-wise.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return float64(2*lcsLength(ra, rb)) / float64(total)
}

// Match reports whether two person names are the same identity under the
// given similarity threshold, after normalization.
func Match(a, b string, threshold float64) bool {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == nb {
		return true
	}
	return Ratio(na, nb) >= threshold
}

// With substitutions weighted 2, the distance equals the indel distance
// |a|+|b|-2*LCS, so the ratio only needs the longest common subsequence.
func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
