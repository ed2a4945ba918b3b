package reply

import (
	"regexp"
	"strings"
)

// quoteIntro matches reply-client attribution lines such as
// "On Mon, Jan 2 at 10:04, Ada wrote:".
var quoteIntro = regexp.MustCompile(`^On .+ wrote:\s*$`)

// horizontalRule matches separator lines some clients insert above quoted
// history.
var horizontalRule = regexp.MustCompile(`^[-_=]{3,}\s*$`)

// CleanBody strips quoted history and client signatures from a reply,
// keeping only the text the sender actually typed. The body is truncated at
// the first marker line and surrounding whitespace is trimmed.
func CleanBody(body string) string {
	lines := strings.Split(body, "\n")
	kept := lines
	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if isQuoteMarker(trimmed) {
			kept = lines[:i]
			break
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isQuoteMarker(line string) bool {
	if line == "-- " || line == "--" {
		return true
	}
	if horizontalRule.MatchString(line) {
		return true
	}
	if strings.HasPrefix(line, "From:") {
		return true
	}
	if strings.HasPrefix(line, "Sent from my") {
		return true
	}
	return quoteIntro.MatchString(line)
}
