package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeDish cleans a scraped dish name: lowercase, the trailing
// "oběd pro studenta ..." portion removed, commas and repeated
// whitespace collapsed, quotes and semicolons stripped.
func NormalizeDish(dish string) string {
	dish = strings.ToLower(dish)
	if idx := strings.Index(dish, "oběd pro studenta"); idx != -1 {
		dish = dish[:idx]
	}
	dish = strings.ReplaceAll(dish, ",", " ")
	dish = strings.ReplaceAll(dish, ";", "")
	dish = strings.ReplaceAll(dish, `"`, "")
	dish = strings.ReplaceAll(dish, "\n", "")
	dish = whitespaceRegex.ReplaceAllString(dish, " ")
	return strings.TrimSpace(dish)
}

// StripBrackets removes every (...) and [...] group, contents included.
func StripBrackets(s string) string {
	var out strings.Builder
	parens, squares := false, false
	for _, c := range s {
		switch {
		case parens:
			if c == ')' {
				parens = false
			}
		case squares:
			if c == ']' {
				squares = false
			}
		case c == '(':
			parens = true
		case c == '[':
			squares = true
		default:
			out.WriteRune(c)
		}
	}
	return strings.TrimSpace(out.String())
}

// SplitSoupMainDish splits a raw menu line into (soup, mainDish) on the
// first occurrence of sep. Returns ok=false when either half is empty
// or the separator is missing, which the portal produces on days
// without a published lunch.
func SplitSoupMainDish(line, sep string) (soup, mainDish string, ok bool) {
	line = StripBrackets(line)
	idx := strings.Index(line, sep)
	if idx == -1 {
		return "", "", false
	}
	soup = strings.TrimSpace(line[:idx])
	mainDish = strings.TrimSpace(line[idx+len(sep):])
	if soup == "" || mainDish == "" {
		return "", "", false
	}
	return soup, mainDish, true
}

// ParsePrice reads a price string like " 158,7 Kč " into 158.7.
func ParsePrice(s string) (float64, error) {
	var price strings.Builder
	wasDot := false
	for _, c := range strings.ReplaceAll(s, ",", ".") {
		if c == '.' {
			if wasDot {
				continue
			}
			wasDot = true
			price.WriteRune(c)
			continue
		}
		if c >= '0' && c <= '9' {
			price.WriteRune(c)
		}
	}
	return strconv.ParseFloat(price.String(), 64)
}

var diacritics = map[rune]rune{
	'á': 'a', 'ä': 'a', 'č': 'c', 'ď': 'd', 'é': 'e', 'ě': 'e', 'ë': 'e',
	'í': 'i', 'ň': 'n', 'ó': 'o', 'ö': 'o', 'ř': 'r', 'š': 's', 'ť': 't',
	'ú': 'u', 'ů': 'u', 'ý': 'y', 'ž': 'z',
}

// FoldDiacritics removes Czech diacritics: "Böhnův řízek" -> "Bohnuv rizek"
func FoldDiacritics(s string) string {
	var out strings.Builder
	for _, c := range s {
		if folded, found := diacritics[c]; found {
			out.WriteRune(folded)
			continue
		}
		out.WriteRune(c)
	}
	return out.String()
}
