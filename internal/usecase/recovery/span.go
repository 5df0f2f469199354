package recovery

import "strings"

// extractSpan returns the first balanced open..closing span in s. Brackets
// inside quoted strings are ignored. When the structure never closes, the
// span runs to the last closing bracket. ok is false when s has no opening
// bracket or no closing bracket after it.
func extractSpan(s string, open, closing byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	var quote byte
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	end := strings.LastIndexByte(s, closing)
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}
