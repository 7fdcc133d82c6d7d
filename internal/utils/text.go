package utils

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var thaiDigits = strings.NewReplacer(
	"๐", "0", "๑", "1", "๒", "2", "๓", "3", "๔", "4",
	"๕", "5", "๖", "6", "๗", "7", "๘", "8", "๙", "9",
)

// NormalizeText prepares user input for rule matching: NFC composition,
// Thai digits mapped to ASCII, lower case, collapsed whitespace.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	s = thaiDigits.Replace(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

var wordBoundaryCache sync.Map // keyword -> *regexp.Regexp

// ContainsKeyword reports whether kw occurs in text. Short latin keywords
// (three letters or fewer, e.g. "at", "ev") must stand alone as a word so
// they do not fire inside longer words.
func ContainsKeyword(text, kw string) bool {
	if kw == "" {
		return false
	}
	if !isShortLatin(kw) {
		return strings.Contains(text, kw)
	}
	cached, ok := wordBoundaryCache.Load(kw)
	if !ok {
		cached, _ = wordBoundaryCache.LoadOrStore(kw, regexp.MustCompile(`(^|[^a-z0-9])`+regexp.QuoteMeta(kw)+`($|[^a-z0-9])`))
	}
	return cached.(*regexp.Regexp).MatchString(text)
}

// ContainsAny reports whether any keyword occurs in text.
func ContainsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if ContainsKeyword(text, kw) {
			return true
		}
	}
	return false
}

func isShortLatin(kw string) bool {
	if len(kw) > 3 {
		return false
	}
	for _, r := range kw {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate cuts s to at most n runes, appending "..." when it was cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
