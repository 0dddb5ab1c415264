package speech

import "strings"

// WordCount returns a basic word count for the given text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
