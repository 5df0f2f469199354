package recovery

import "strings"

// Sentinel is a marker the model emits instead of a query.
type Sentinel string

// Sentinels, in detection order.
const (
	SentinelNone         Sentinel = ""
	SentinelError        Sentinel = "ERROR:"
	SentinelUnable       Sentinel = "UNABLE_TO_QUERY"
	SentinelModification Sentinel = "MODIFICATION_NOT_ALLOWED"
	SentinelOutOfScope   Sentinel = "OUT_OF_SCOPE"
)

var sentinels = []Sentinel{SentinelError, SentinelUnable, SentinelModification, SentinelOutOfScope}

// DetectSentinel returns the first sentinel contained in text.
func DetectSentinel(text string) Sentinel {
	for _, s := range sentinels {
		if strings.Contains(text, string(s)) {
			return s
		}
	}
	return SentinelNone
}
