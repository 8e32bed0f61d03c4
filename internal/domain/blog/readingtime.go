package blog

import "strings"

// DefaultWordsPerMinute is used when no rate is configured.
const DefaultWordsPerMinute = 200

// EstimateReadingTime returns the estimated minutes needed to read text at
// wordsPerMinute. Blank text estimates to 0; anything with at least one
// word estimates to at least 1.
func EstimateReadingTime(text string, wordsPerMinute int) int {
	words := len(strings.Fields(text))

	if words == 0 {
		return 0
	}

	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}

	minutes := (words + wordsPerMinute - 1) / wordsPerMinute

	if minutes < 1 {
		minutes = 1
	}

	return minutes
}
