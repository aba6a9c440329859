package styling

import (
	"regexp"
	"strings"
)

// DefaultMaxWords caps finalized responses unless configured otherwise.
const DefaultMaxWords = 140

// Disclaimer is appended to every finalized response.
const Disclaimer = " — Fictionalized, educational response."

var spaceRunRe = regexp.MustCompile(`\s+`)

// Finalize enforces the response length and format policy on raw model
// output. It is total: any input, including empty, yields a well-formed
// response ending in the disclaimer. The style argument is accepted for
// contract symmetry with the prompt builder; current policy is
// style-independent.
func Finalize(text, style string, maxWords int) string {
	_ = style
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	words := strings.Fields(text)
	var trimmed string
	if len(words) > maxWords {
		trimmed = strings.Join(words[:maxWords], " ")
		trimmed = cutAtSentence(trimmed)
	} else {
		trimmed = text
	}

	trimmed = spaceRunRe.ReplaceAllString(strings.TrimSpace(trimmed), " ")

	if trimmed != "" && !strings.HasSuffix(trimmed, "...") {
		switch trimmed[len(trimmed)-1] {
		case '.', '!', '?':
		default:
			trimmed += "."
		}
	}

	return trimmed + Disclaimer
}

// cutAtSentence scans backward up to 50 characters from the truncation
// point for a sentence-terminal character and cuts there; when none is
// found it strips trailing punctuation and appends an ellipsis.
func cutAtSentence(s string) string {
	stop := len(s) - 50
	if stop < 0 {
		stop = 0
	}
	for i := len(s) - 1; i > stop; i-- {
		switch s[i] {
		case '.', '!', '?':
			return s[:i+1]
		}
	}
	return strings.TrimRight(s, ".!?,;: ") + "..."
}
