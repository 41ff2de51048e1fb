package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// optionMarkerRe matches an option marker at line start: "A)", "A.", or "(A)".
var optionMarkerRe = regexp.MustCompile(`(?m)^[ \t]*(?:\(([A-D])\)|([A-D])[).])[ \t]*`)

// standaloneLetterRe matches the first standalone answer letter A-D.
var standaloneLetterRe = regexp.MustCompile(`\b([A-D])\b`)

var optionLetters = []string{"A", "B", "C", "D"}

// MCQComponents parses an MCQ string into its stem and up to 4 options.
// It tolerates "A)", "A." and "(A)" markers, multi-line option bodies, and
// fenced wrappers around the whole question.
func MCQComponents(mcq string) (stem string, options []string) {
	text := strings.TrimSpace(mcq)
	if m := anyFenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	locs := optionMarkerRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text, nil
	}

	stem = strings.TrimSpace(text[:locs[0][0]])
	for i, loc := range locs {
		if i >= 4 {
			break
		}
		bodyStart := loc[1]
		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		options = append(options, strings.TrimSpace(text[bodyStart:bodyEnd]))
	}
	return stem, options
}

// AnswerLetter returns the first standalone A-D letter in the answer string,
// or "" when none is present.
func AnswerLetter(answer string) string {
	m := standaloneLetterRe.FindStringSubmatch(answer)
	if m == nil {
		return ""
	}
	return m[1]
}

// NormalizeAnswer reduces a raw answer to its single letter; anything
// unmatched passes through as-is.
func NormalizeAnswer(raw string) string {
	if letter := AnswerLetter(raw); letter != "" {
		return letter
	}
	return strings.TrimSpace(raw)
}

// FormatAnswerFromLetter rebuilds the canonical "X) text" answer string from
// a letter and the current option list. An unknown letter or a letter with no
// backing option is returned unchanged; formatting never reassigns the letter.
func FormatAnswerFromLetter(letter string, options []string) string {
	idx := OptionIndex(letter)
	if idx < 0 || idx >= len(options) {
		return letter
	}
	return fmt.Sprintf("%s) %s", letter, options[idx])
}

// OptionIndex maps a letter A-D to its positional index 0-3, or -1.
func OptionIndex(letter string) int {
	for i, l := range optionLetters {
		if l == letter {
			return i
		}
	}
	return -1
}

// RebuildMCQ renders the stem and exactly 4 options back into the canonical
// MCQ text layout.
func RebuildMCQ(stem string, options []string) string {
	lines := make([]string, 0, len(options))
	for i, opt := range options {
		if i >= len(optionLetters) {
			break
		}
		lines = append(lines, fmt.Sprintf("%s) %s", optionLetters[i], strings.TrimSpace(opt)))
	}
	return stem + "\n\n" + strings.Join(lines, "\n\n")
}

// HasAllOptionMarkers reports whether text carries all four A-D markers at
// line starts, the validity gate for a generated question block.
func HasAllOptionMarkers(text string) bool {
	seen := map[string]bool{}
	for _, m := range optionMarkerRe.FindAllStringSubmatch(text, -1) {
		letter := m[1]
		if letter == "" {
			letter = m[2]
		}
		seen[letter] = true
	}
	for _, l := range optionLetters {
		if !seen[l] {
			return false
		}
	}
	return true
}
