package model

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var splitWordsPattern = regexp.MustCompile(`[_\-\s]+`)

// DefaultLabeler turns a field name into a sentence-case label:
// "requisito_padre_id" becomes "Requisito padre id". Only the first letter
// is upper-cased so accented Spanish words keep their spelling.
func DefaultLabeler(name string) string {
	if name == "" {
		return ""
	}

	words := splitWordsPattern.Split(name, -1)
	var segments []string
	for _, word := range words {
		if word == "" {
			continue
		}
		segments = append(segments, splitCamel(word))
	}
	return upperFirst(strings.TrimSpace(strings.Join(segments, " ")))
}

func splitCamel(input string) string {
	var out strings.Builder
	prev := rune(0)
	for i, r := range input {
		if i > 0 && unicode.IsLower(prev) && unicode.IsUpper(r) {
			out.WriteRune(' ')
			r = unicode.ToLower(r)
		}
		out.WriteRune(r)
		prev = r
	}
	return out.String()
}

func upperFirst(text string) string {
	if text == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(text)
	return string(unicode.ToUpper(r)) + text[size:]
}
