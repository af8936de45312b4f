package rewrite

import "strings"

// Result segment delimiters. The backend is instructed to wrap each
// variation in these tags; the parser must not trust that it complied.
const (
	resultOpenTag  = "<result>"
	resultCloseTag = "</result>"
)

// ParseVariations extracts the variation segments from accumulated stream
// text.
//
// Each segment runs from an opening tag to the matching closing tag, or
// to end-of-input if the closing tag is missing. The parser is also run
// over partial buffers for incremental display, so a truncated final
// segment is normal, not an error. Segments that are empty after trimming
// are dropped. If non-empty input yields no usable tagged segment, the
// whole trimmed, tag-stripped input is returned as a single segment so a
// backend that ignored the delimiter convention still produces output.
//
// ParseVariations is a pure function: same input, same output.
func ParseVariations(text string) []string {
	if text == "" {
		return nil
	}

	var variations []string
	rest := text
	for {
		start := strings.Index(rest, resultOpenTag)
		if start < 0 {
			break
		}
		rest = rest[start+len(resultOpenTag):]

		var segment string
		if end := strings.Index(rest, resultCloseTag); end >= 0 {
			segment = rest[:end]
			rest = rest[end+len(resultCloseTag):]
		} else {
			// Unterminated final segment: take everything to end-of-input.
			segment = rest
			rest = ""
		}

		if trimmed := strings.TrimSpace(segment); trimmed != "" {
			variations = append(variations, trimmed)
		}
	}

	if len(variations) > 0 {
		return variations
	}

	// Fallback: no usable tagged segment anywhere. Strip stray tags and
	// return the remainder whole.
	stripped := strings.ReplaceAll(text, resultOpenTag, "")
	stripped = strings.ReplaceAll(stripped, resultCloseTag, "")
	if trimmed := strings.TrimSpace(stripped); trimmed != "" {
		return []string{trimmed}
	}
	return nil
}
