package tracker

import "regexp"

// Volatile-token patterns, applied in order. UUID, URL, timestamp and path
// run before the generic number pattern so that digits inside those tokens
// are not consumed piecemeal.
var (
	reUUID = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	reURL  = regexp.MustCompile(`https?://[^\s"']+`)
	reTime = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)
	rePath = regexp.MustCompile(`(?:[A-Za-z]:)?(?:[\w.~-]+)?(?:[/\\][\w.~-]+)+[/\\]?`)
	reAddr = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)
	reNum  = regexp.MustCompile(`\d+`)
)

// Normalize rewrites an error message into its canonical form: transient
// payload (identifiers, URLs, timestamps, paths, addresses, numbers) is
// replaced with fixed placeholders so that two instances of the same error
// normalize to the same string. Normalize is pure and idempotent.
func Normalize(message string) string {
	m := reUUID.ReplaceAllString(message, "<UUID>")
	m = reURL.ReplaceAllString(m, "<URL>")
	m = reTime.ReplaceAllString(m, "<TIME>")
	m = rePath.ReplaceAllString(m, "<PATH>")
	m = reAddr.ReplaceAllString(m, "<ADDR>")
	m = reNum.ReplaceAllString(m, "<NUM>")
	return m
}
