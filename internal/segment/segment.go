// Package segment parses style-annotated text into ordered styled segments.
//
// Annotated text marks style switches with braces: "{Calm} take a breath
// {Excited} and go!". Everything between a marker and the next marker (or
// the end of the input) belongs to that marker's style.
package segment

import (
	"regexp"
	"strings"
)

// DefaultStyle is the style assigned to unannotated input. Resolution of
// unknown style names to a fallback is the caller's responsibility; this
// package does not validate style names against any known set.
const DefaultStyle = "default"

// Segment is one styled span of text.
type Segment struct {
	Style string
	Text  string
}

var markerPattern = regexp.MustCompile(`\{([^{}]*)\}`)

// Split parses annotated text into ordered (style, content) segments.
//
// Markers with no content before the next marker are dropped. Text before
// the first marker is discarded. Input with no markers at all becomes a
// single DefaultStyle segment, unless it is blank, in which case the result
// is empty.
func Split(text string) []Segment {
	matches := markerPattern.FindAllStringSubmatchIndex(text, -1)

	if len(matches) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}

		return []Segment{{Style: DefaultStyle, Text: trimmed}}
	}

	segments := make([]Segment, 0, len(matches))

	for i, match := range matches {
		style := strings.TrimSpace(text[match[2]:match[3]])

		contentEnd := len(text)
		if i+1 < len(matches) {
			contentEnd = matches[i+1][0]
		}

		content := strings.TrimSpace(text[match[1]:contentEnd])
		if content == "" {
			continue
		}

		segments = append(segments, Segment{Style: style, Text: content})
	}

	return segments
}
