package textutil

// Similarity scores how alike two passages are on [0, 1].
// Both empty scores 1; exactly one empty scores 0.
func Similarity(a, b string) float64 {
	return TokenSimilarity(Tokens(a), Tokens(b))
}

// TokenSimilarity scores two token sequences the same way Similarity does.
func TokenSimilarity(a, b []string) float64 {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 1
	case len(a) == 0 || len(b) == 0:
		return 0
	}
	longest := max(len(a), len(b))
	return 1 - float64(Distance(a, b))/float64(longest)
}

// Distance returns the Levenshtein distance between two token sequences.
func Distance(a, b []string) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
