package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRe = regexp.MustCompile(`[^a-z0-9\s\-_/.]+`)
	digitsRe  = regexp.MustCompile(`\d+`)
)

const edgePunct = ".-_/"

// dashFolder maps the Unicode hyphen and dash family onto ASCII '-'.
var dashFolder = strings.NewReplacer(
	"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-",
	"\u2014", "-", "\u2015", "-", "\u2212", "-",
)

// NormalizeText lowercases s, folds Vietnamese diacritics to plain ASCII
// ("Chụp khí" -> "chup khi"), drops punctuation and collapses whitespace.
// Every matcher in the sales pipeline compares normalized text.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = strings.NewReplacer("đ", "d", "Đ", "d").Replace(s)

	// transform.Chain keeps state, so build one per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}

	s = dashFolder.Replace(s)
	s = nonWordRe.ReplaceAllString(s, " ")

	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, edgePunct)
		if f != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

// NormalizeKey is NormalizeText without spaces, used for header synonyms.
func NormalizeKey(s string) string {
	return strings.ReplaceAll(NormalizeText(s), " ", "")
}

// Tokenize returns the normalized whitespace tokens of s.
func Tokenize(s string) []string {
	return strings.Fields(NormalizeText(s))
}

// ContainsPhrase reports whether phrase occurs in text on token boundaries.
// Both arguments must already be normalized.
func ContainsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// ContainsAnyPhrase reports whether any of phrases occurs in text.
func ContainsAnyPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if ContainsPhrase(text, p) {
			return true
		}
	}
	return false
}

// ExtractDigits keeps only the ASCII digits of s.
func ExtractDigits(s string) string {
	return strings.Join(digitsRe.FindAllString(s, -1), "")
}

// ExtractJSONBlock returns the text between the first '{' and the last '}'.
// LLMs like to wrap JSON in prose or code fences.
func ExtractJSONBlock(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

// SplitWords splits text into parts of at most maxWords words.
func SplitWords(text string, maxWords int) []string {
	words := strings.Fields(text)
	if maxWords <= 0 || len(words) <= maxWords {
		return []string{text}
	}

	var parts []string
	for i := 0; i < len(words); i += maxWords {
		end := i + maxWords
		if end > len(words) {
			end = len(words)
		}
		parts = append(parts, strings.Join(words[i:end], " "))
	}
	return parts
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// IsASCII reports whether every byte of s is 7-bit.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
