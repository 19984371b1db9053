// Package guard screens user-supplied message text for known prompt-injection
// shapes before it reaches retrieval or the LLM.
//
// The filter is defense in depth, not a security boundary: the system prompt
// labels user text and retrieved context as untrusted evidence, and that
// instruction ordering is the real defense. The patterns here reject the
// obvious, cheap attacks early with a clear validation error instead of
// burning an LLM call on them.
package guard

import "regexp"

// Patterns that reject a user message outright. All matching is
// case-insensitive.
var injectionPatterns = []*regexp.Regexp{
	// Classic instruction-override phrasing.
	regexp.MustCompile(`(?i)ignore\s+(previous|all)\s+instructions?`),
	// Attempts to open a privileged role.
	regexp.MustCompile(`(?i)system\s*:`),
	regexp.MustCompile(`(?i)assistant\s*:`),
	// ChatML / instruction-format control tokens.
	regexp.MustCompile(`(?i)<\|im_start\|>`),
	regexp.MustCompile(`(?i)<\|im_end\|>`),
	regexp.MustCompile(`(?i)\[INST\]`),
	regexp.MustCompile(`(?i)\[/INST\]`),
}

// smuggledBase64 matches an unbroken run of at least 50 base64-alphabet
// characters terminated by '='/'==' padding at the end of the blob. The
// padding must be followed by a non-base64 character or end of input; a word
// boundary does not work here because '=' is itself a non-word character.
// Long encoded blobs in an HR question are payloads, not questions.
var smuggledBase64 = regexp.MustCompile(`[A-Za-z0-9+/]{50,}={1,2}(?:[^A-Za-z0-9+/=]|$)`)

// symbolFlood matches 10 or more consecutive characters that are neither
// word characters nor whitespace.
var symbolFlood = regexp.MustCompile(`[^\w\s]{10,}`)

// Suspicious reports whether text matches any known injection shape.
// It is applied to every user-role message in a conversation.
func Suspicious(text string) bool {
	for _, re := range injectionPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	if smuggledBase64.MatchString(text) {
		return true
	}
	return symbolFlood.MatchString(text)
}
