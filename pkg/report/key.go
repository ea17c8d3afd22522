package report

import (
	"fmt"
	"strings"
	"unicode"
)

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "vkcount"

// SummaryKey identifies the latest summary of one (owner, word) scan.
type SummaryKey struct {
	// OwnerID is the scanned wall owner.
	OwnerID int64

	// TargetWord is the counted word; it is lower-cased in the key since
	// counting is case-insensitive.
	TargetWord string
}

// String generates a deterministic Redis key.
// Format: vkcount:owner=<id>:word=<lower-cased word>
//
// Example:
//
//	vkcount:owner=-218375169:word=энвилоуп
func (k SummaryKey) String() string {
	word := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ':' {
			return '_'
		}
		return r
	}, strings.ToLower(k.TargetWord))

	return strings.Join([]string{
		KeyPrefix,
		fmt.Sprintf("owner=%d", k.OwnerID),
		"word=" + word,
	}, ":")
}

// Channel returns the pub/sub channel summaries are announced on.
func Channel() string {
	return KeyPrefix + ":summaries"
}
