package core

import (
	"regexp"
	"strings"
)

// RefusalMessage is the single fixed response for every blocked request; it
// never reveals which rule matched.
const RefusalMessage = "I can't help with that. Please ask a question related to your subject " +
	"(e.g. math, physics, chemistry, history, or writing) and I'll be glad to explain or give practice."

// RefusalModel marks a response that was terminated by moderation instead of
// being routed through the provider.
const RefusalModel = "moderation"

// Minimal blocklist: obvious prompt-injection, weapon-construction, and
// credential-theft phrasings. This is a pre-filter, not a classifier — false
// negatives are expected; it only blocks the cheapest abuse before spending a
// provider call.
var blockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(ignore\s+previous|disregard\s+instructions|system\s+prompt)\b`),
	regexp.MustCompile(`(?i)\b(how\s+to\s+(build|make)\s+(a\s+)?(bomb|weapon))\b`),
	regexp.MustCompile(`(?i)\b(hack\s+into|steal\s+password)\b`),
}

// Screen checks one user utterance against the blocklist. An empty or
// whitespace-only utterance trivially passes. Whitespace runs are collapsed
// before matching, so spacing tricks do not change the outcome.
func Screen(text string) (allowed bool, refusal string) {
	if strings.TrimSpace(text) == "" {
		return true, ""
	}
	combined := strings.Join(strings.Fields(text), " ")
	for _, pattern := range blockPatterns {
		if pattern.MatchString(combined) {
			return false, RefusalMessage
		}
	}
	return true, ""
}
