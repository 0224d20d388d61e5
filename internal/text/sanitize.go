package text

import (
	"sort"
	"strings"
	"unicode"
)

// normalizeLineWhitespace collapses consecutive whitespace characters into a
// single space and trims the line.
func normalizeLineWhitespace(line string) string {
	var strBuilder strings.Builder

	var space bool

	for _, r := range line {
		if unicode.IsSpace(r) {
			if !space {
				strBuilder.WriteRune(' ')

				space = true
			}
		} else {
			strBuilder.WriteRune(r)

			space = false
		}
	}

	return strings.TrimSpace(strBuilder.String())
}

// Normalize produces the cleaned form of a raw message text. It is a total,
// deterministic function; the empty string maps to the empty string.
//
// Steps, in order:
//
//  1. links and hashtags found by ExtractLinks/ExtractHashtags are removed by
//     exact substring removal (longest first)
//  2. line endings are unified and invisible format characters removed
//  3. Arabic-script letters are mapped to their Persian forms
//  4. short parenthetical abbreviations and numeric tokens are padded with spaces
//  5. whitespace inside each line is collapsed and empty lines dropped, so
//     newline runs collapse to one
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	tokens := append(ExtractLinks(raw), ExtractHashtags(raw)...)
	s := Strip(raw, tokens)

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = unicodeReplacer.Replace(s)
	s = controlCharsRegex.ReplaceAllString(s, " ")
	s = alphabetReplacer.Replace(s)

	s = abbrevRegex.ReplaceAllString(s, " $0 ")
	s = numberRegex.ReplaceAllString(s, " $0 ")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = normalizeLineWhitespace(line); line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}

// Strip removes every occurrence of each token from s. Longer tokens are
// removed first so a token that prefixes another does not leave a fragment.
func Strip(s string, tokens []string) string {
	if len(tokens) == 0 {
		return s
	}

	ordered := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			ordered = append(ordered, t)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i]) > len(ordered[j])
	})

	for _, t := range ordered {
		s = strings.ReplaceAll(s, t, "")
	}

	return s
}

// ExtractLinks returns the URL-like and handle-like tokens of s, de-duplicated
// in first-seen order.
func ExtractLinks(s string) []string {
	return unique(linkRegex.FindAllString(s, -1))
}

// ExtractHashtags returns the hashtags of s, de-duplicated in first-seen order.
func ExtractHashtags(s string) []string {
	return unique(hashtagRegex.FindAllString(s, -1))
}

// CountScriptLetters counts the runes of s that belong to the Persian alphabet.
func CountScriptLetters(s string) int {
	count := 0
	for _, r := range s {
		if strings.ContainsRune(PersianLetters, r) {
			count++
		}
	}

	return count
}

func unique(items []string) []string {
	if len(items) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}

	return out
}
