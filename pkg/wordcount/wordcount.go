// Package wordcount counts substring occurrences and reduces partial counts.
package wordcount

import "strings"

// Count returns the number of non-overlapping, case-insensitive
// occurrences of target in text. Empty text or target yields 0.
func Count(text, target string) int {
	if text == "" || target == "" {
		return 0
	}

	text = strings.ToLower(text)
	target = strings.ToLower(target)

	n := 0
	for pos := 0; ; {
		i := strings.Index(text[pos:], target)
		if i < 0 {
			return n
		}
		n++
		pos += i + len(target)
	}
}

// Sum adds partial counts. The order of values does not matter.
func Sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
