package guardrail

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const truncationNote = "(Response shortened to fit the length limit.)"

// Redact removes every literal occurrence of accountID from text. Phrases such
// as "account A123" or "account ID: A123" collapse to "your account"; any
// other occurrence becomes "this account". When the identifier is itself part
// of those wordings the next candidate is tried, ending with a placeholder
// that cannot contain an alphanumeric identifier.
func Redact(text, accountID string) string {
	if accountID == "" || !strings.Contains(text, accountID) {
		return text
	}

	phrase := regexp.MustCompile(
		`(?i)\b(?:(?:the|your|this)\s+)?account(?:\s+(?:id|number|no\.?))?\s*[:#]?\s*` + regexp.QuoteMeta(accountID),
	)

	for _, r := range redactions {
		out := r.apply(text, accountID, phrase)
		if !strings.Contains(out, accountID) {
			return out
		}
	}

	return redactPlaceholder.apply(text, accountID, phrase)
}

type redaction struct {
	phrase string
	bare   string
}

var (
	redactions = []redaction{
		{phrase: "your account", bare: "this account"},
		{phrase: "the account", bare: "the account"},
	}
	redactPlaceholder = redaction{phrase: "[***]", bare: "[***]"}
)

func (r redaction) apply(text, accountID string, phrase *regexp.Regexp) string {
	text = phrase.ReplaceAllStringFunc(text, func(match string) string {
		if first := []rune(match)[0]; unicode.IsUpper(first) {
			return capitalize(r.phrase)
		}

		return r.phrase
	})

	return strings.ReplaceAll(text, accountID, r.bare)
}

func capitalize(s string) string {
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])

	return string(runes)
}

// LengthCheck is the outcome of comparing a response with the word ceiling.
type LengthCheck struct {
	Text      string
	Words     int
	Exceeded  bool
	Truncated bool
}

// CheckLength counts words against MaxWords. The text is only shortened when
// HardWordLimit is set, and then at the last sentence boundary inside the limit.
func (e *Enforcer) CheckLength(text string) LengthCheck {
	words := len(strings.Fields(text))
	check := LengthCheck{Text: text, Words: words}

	if e.limits.MaxWords <= 0 || words <= e.limits.MaxWords {
		return check
	}

	check.Exceeded = true
	if !e.limits.HardWordLimit {
		return check
	}

	check.Text = truncateAtSentence(text, e.limits.MaxWords)
	check.Truncated = true

	return check
}

func truncateAtSentence(text string, maxWords int) string {
	end := wordBoundary(text, maxWords)
	head := text[:end]

	cut := -1

	for i := len(head) - 1; i >= 0; i-- {
		if c := head[i]; c == '.' || c == '!' || c == '?' {
			if i == len(head)-1 || head[i+1] == ' ' || head[i+1] == '\n' {
				cut = i + 1
				break
			}
		}
	}

	if cut > 0 {
		head = head[:cut]
	} else {
		head = strings.TrimRightFunc(head, unicode.IsSpace) + "..."
	}

	return strings.TrimRightFunc(head, unicode.IsSpace) + "\n\n" + truncationNote
}

// wordBoundary returns the byte offset just past the n-th word.
func wordBoundary(text string, n int) int {
	count := 0
	inWord := false

	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				count++
				if count == n {
					return i
				}
			}

			inWord = false

			continue
		}

		inWord = true
	}

	return len(text)
}

var disclosureMarkers = []string{
	"could not", "couldn't", "unable", "failed", "error", "unavailable", "not available",
}

// DiscloseFailures makes sure a response mentions failed capability calls.
// When the text already talks about a failure it is returned unchanged.
func DiscloseFailures(text string, failures []string) string {
	if len(failures) == 0 {
		return text
	}

	lower := strings.ToLower(text)
	for _, m := range disclosureMarkers {
		if strings.Contains(lower, m) {
			return text
		}
	}

	note := fmt.Sprintf("Note: some of the data for this insight could not be retrieved (%s), so the figures above may be incomplete.",
		strings.Join(failures, "; "))

	if strings.TrimSpace(text) == "" {
		return note
	}

	return strings.TrimRightFunc(text, unicode.IsSpace) + "\n\n" + note
}
