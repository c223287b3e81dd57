// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// latinMarks are the combining diacritical mark blocks stripped after
	// canonical decomposition.
	latinMarks = &unicode.RangeTable{
		R16: []unicode.Range16{
			{Lo: 0x0300, Hi: 0x036f, Stride: 1},
			{Lo: 0x20d0, Hi: 0x20ff, Stride: 1},
			{Lo: 0xfe20, Hi: 0xfe2f, Stride: 1},
		},
	}

	// letters that do not decompose but still have a plain Latin spelling.
	ligatures = strings.NewReplacer(
		"Æ", "Ae", "æ", "ae",
		"Ø", "O", "ø", "o",
		"Œ", "Oe", "œ", "oe",
		"Đ", "D", "đ", "d",
		"Ł", "L", "ł", "l",
		"Þ", "Th", "þ", "th",
		"ß", "ss",
	)

	apostrophes = strings.NewReplacer("'", "", "’", "")
)

type class int

const (
	separator class = iota
	lowerLetter
	upperLetter
	otherLetter
	digit
	mark
	symbol
)

func classify(r rune) class {
	switch {
	case unicode.IsLower(r):
		return lowerLetter
	case unicode.IsUpper(r), unicode.IsTitle(r):
		return upperLetter
	case unicode.IsLetter(r):
		return otherLetter
	case unicode.IsDigit(r), unicode.IsNumber(r):
		return digit
	case unicode.IsMark(r):
		return mark
	case unicode.Is(unicode.So, r):
		return symbol
	}
	return separator
}

func isLetter(c class) bool {
	return c == lowerLetter || c == upperLetter || c == otherLetter
}

// Deburr folds Latin letters with diacritics to their plain form. Letters of
// other scripts are left alone.
func Deburr(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(latinMarks)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return ligatures.Replace(out)
}

// Words splits s into the words used by CamelCase and KebabCase.
func Words(s string) []string {
	rs := []rune(Deburr(apostrophes.Replace(s)))

	var (
		words   []string
		current []rune
		prev    = separator
	)
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0:0]
		}
	}

	for i, r := range rs {
		c := classify(r)
		switch c {
		case separator:
			flush()
		case symbol:
			flush()
			words = append(words, string(r))
		case mark:
			if len(current) > 0 {
				current = append(current, r)
			}
			// a mark doesn't change what the word is made of
			continue
		default:
			if len(current) > 0 && boundary(prev, c, rs, i) {
				flush()
			}
			current = append(current, r)
		}
		prev = c
	}
	flush()
	return words
}

// boundary reports whether a new word starts at rs[i].
func boundary(prev, cur class, rs []rune, i int) bool {
	switch {
	case prev == lowerLetter && cur == upperLetter:
		return true
	case isLetter(prev) && cur == digit, prev == digit && isLetter(cur):
		return true
	case prev == upperLetter && cur == upperLetter:
		// XMLHttp splits before the H
		return i+1 < len(rs) && classify(rs[i+1]) == lowerLetter
	}
	return false
}

// CamelCase joins the words of s, lower casing the first and title casing the
// rest.
func CamelCase(s string) string {
	var (
		b     strings.Builder
		lower = cases.Lower(language.Und)
		title = cases.Title(language.Und)
	)
	for i, w := range Words(s) {
		if i == 0 {
			b.WriteString(lower.String(w))
			continue
		}
		b.WriteString(title.String(w))
	}
	return b.String()
}

// KebabCase lower cases the words of s and joins them with hyphens.
func KebabCase(s string) string {
	words := Words(s)
	lower := cases.Lower(language.Und)
	for i, w := range words {
		words[i] = lower.String(w)
	}
	return strings.Join(words, "-")
}
