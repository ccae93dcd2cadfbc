package agent

import (
	"strings"
	"unicode"
)

// Answer is the reading of a reply to a yes/no question.
type Answer int

const (
	Unclear Answer = iota
	Yes
	No
)

func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unclear"
	}
}

var affirmativeWords = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "yup": true, "sure": true,
	"ok": true, "okay": true, "k": true, "correct": true, "right": true, "proceed": true,
	"confirm": true, "confirmed": true, "absolutely": true, "definitely": true,
	"perfect": true, "great": true, "good": true, "fine": true, "ready": true,
	"agreed": true, "agree": true, "exactly": true, "please": true, "alright": true,
	"si": true, "cool": true, "awesome": true,
}

var negativeWords = map[string]bool{
	"no": true, "n": true, "nope": true, "nah": true, "not": true, "dont": true,
	"don't": true, "never": true, "stop": true, "wait": true, "cancel": true,
	"wrong": true, "incorrect": true, "change": true, "later": true, "isn't": true,
	"isnt": true, "doesn't": true, "doesnt": true,
}

var affirmativePhrases = []string{
	"looks good", "sounds good", "go ahead", "please do", "of course", "let's go",
	"lets go", "that's right", "thats right", "all good", "do it", "i'm ready", "im ready",
}

var negativePhrases = []string{
	"not yet", "not really", "no thanks", "no thank you", "hold on", "not ready",
}

// Classify reads text as a yes, a no, or neither. Negations win over
// affirmations, so "not sure" and "no, looks good" read as no.
func Classify(text string) Answer {
	norm := normalize(text)
	if norm == "" {
		return Unclear
	}
	padded := " " + norm + " "
	for _, p := range negativePhrases {
		if strings.Contains(padded, " "+p+" ") {
			return No
		}
	}

	words := strings.Fields(norm)
	for _, w := range words {
		if negativeWords[w] {
			return No
		}
	}
	for _, p := range affirmativePhrases {
		if strings.Contains(padded, " "+p+" ") {
			return Yes
		}
	}
	for _, w := range words {
		if affirmativeWords[w] {
			return Yes
		}
	}
	return Unclear
}

// IsAffirmative reports whether text reads as a yes.
func IsAffirmative(text string) bool { return Classify(text) == Yes }

func normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			b.WriteRune(r)
		case r == '’':
			b.WriteRune('\'')
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
