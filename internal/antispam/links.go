package antispam

import "regexp"

// Bare domains are deliberately out: only explicit schemes and Telegram
// invite hosts count, to keep false positives near zero.
var linkPattern = regexp.MustCompile(`(?i)(https?://|t\.me/|telegram\.me/)`)

func HasLink(text string) bool {
	return linkPattern.MatchString(text)
}
