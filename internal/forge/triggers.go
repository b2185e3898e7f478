package forge

import (
	"regexp"
	"strings"
)

// ExtractTriggers scans a comment body for case-insensitive, word-bounded
// occurrences of the configured trigger tokens. The returned set preserves the
// configured spelling and order; it is empty when nothing matches.
func ExtractTriggers(body string, triggers []string) []string {
	var matched []string
	for _, trigger := range triggers {
		if trigger == "" {
			continue
		}
		re, err := triggerPattern(trigger)
		if err != nil {
			continue
		}
		if re.MatchString(body) {
			matched = append(matched, trigger)
		}
	}
	return matched
}

// triggerPattern builds the word-boundary pattern for one token. Tokens like
// "/review" start with a non-word character, so \b alone does not anchor the
// left edge; start-of-string or whitespace is required instead.
func triggerPattern(trigger string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(strings.TrimSpace(trigger))
	return regexp.Compile(`(?i)(?:^|\s)` + quoted + `\b`)
}
