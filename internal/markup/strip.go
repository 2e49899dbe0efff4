package markup

import "regexp"

var leftoverRe = regexp.MustCompile(`[#*]`)

// Strip removes all markers, keeping link labels and emphasized text. The
// result is suitable for speech synthesis and plain terminals.
func Strip(text string) string {
	text = linkRe.ReplaceAllString(text, "$1")
	text = boldRe.ReplaceAllString(text, "$1")
	return leftoverRe.ReplaceAllString(text, "")
}
