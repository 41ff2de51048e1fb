// Package balance prevents the correct answer from being identifiable purely
// by its option being conspicuously longer than the other three.
package balance

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/solet-asu/MCQ-generation/internal/extract"
)

const (
	minOutlierWords = 10
	// Longest must be 30% longer than 2nd-longest when 10..15 words,
	// 20% longer when >15 words.
	thresh10To15 = 0.30
	threshGT15   = 0.20
)

var candidateKeyRe = regexp.MustCompile(`(?i)^candidate[_\s\-]?(\d+)$`)

// normalizeOptions returns exactly 4 trimmed option strings.
func normalizeOptions(options []string) []string {
	safe := make([]string, 4)
	for i := 0; i < 4 && i < len(options); i++ {
		safe[i] = strings.TrimSpace(options[i])
	}
	return safe
}

// IdentifyLongerOption returns (index, text) of a noticeably longer option,
// or (-1, "") when no single outlier exists.
func IdentifyLongerOption(options []string) (int, string) {
	opts := normalizeOptions(options)

	counts := make([]int, 4)
	nonEmpty := 0
	for i, o := range opts {
		counts[i] = extract.CountWords(o)
		if counts[i] > 0 {
			nonEmpty++
		}
	}

	// Need at least two non-empty options to compare fairly
	if nonEmpty < 2 {
		return -1, ""
	}

	maxLen, longestIdx := 0, 0
	for i, c := range counts {
		if c > maxLen {
			maxLen, longestIdx = c, i
		}
	}

	// Tied longest means no single outlier
	ties := 0
	for _, c := range counts {
		if c == maxLen {
			ties++
		}
	}
	if ties > 1 {
		return -1, ""
	}

	secondLen := 0
	for i, c := range counts {
		if i != longestIdx && c > secondLen {
			secondLen = c
		}
	}

	if maxLen < minOutlierWords {
		return -1, ""
	}

	var needsShortening bool
	if maxLen <= 15 {
		needsShortening = float64(maxLen-secondLen) >= thresh10To15*float64(secondLen)
	} else {
		needsShortening = float64(maxLen-secondLen) >= threshGT15*float64(secondLen)
	}

	if needsShortening {
		return longestIdx, opts[longestIdx]
	}
	return -1, ""
}

// LengthRange computes the acceptable word-count window for a shortened
// option: floor(0.8 x shortest) to ceil(1.1 x longest) over the non-empty
// options, with the lower bound clamped to at least 1. Returns (0, 0) when
// every option is empty.
func LengthRange(options []string) (minTarget, maxTarget int) {
	var positive []int
	for i, o := range options {
		if i >= 4 {
			break
		}
		if c := extract.CountWords(o); c > 0 {
			positive = append(positive, c)
		}
	}
	if len(positive) == 0 {
		return 0, 0
	}

	minLen, maxLen := positive[0], positive[0]
	for _, c := range positive[1:] {
		if c < minLen {
			minLen = c
		}
		if c > maxLen {
			maxLen = c
		}
	}

	minTarget = int(math.Floor(0.8 * float64(minLen)))
	if minTarget < 1 {
		minTarget = 1
	}
	maxTarget = int(math.Ceil(1.1 * float64(maxLen)))
	if minTarget > maxTarget {
		minTarget = maxTarget
	}
	return minTarget, maxTarget
}

// NormalizeCandidates coerces whatever shape the shortening model returned
// (a dict keyed candidate_1..n, a JSON array, or a bare string) into a
// fixed-length list of n trimmed strings, padding with empty strings and
// truncating as needed.
func NormalizeCandidates(raw any, n int) []string {
	if s, isStr := raw.(string); isStr {
		var decoded any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &decoded); err == nil {
			raw = decoded
		} else {
			raw = []any{s}
		}
	}

	var ordered []string
	switch v := raw.(type) {
	case map[string]any:
		// Prefer candidate_1..candidate_n
		for i := 1; i <= n; i++ {
			ordered = append(ordered, stringify(v["candidate_"+strconv.Itoa(i)]))
		}
		allEmpty := true
		for _, s := range ordered {
			if s != "" {
				allEmpty = false
				break
			}
		}
		// Fill from numeric-like keys (e.g. "1", "#2", "candidate-3")
		if allEmpty {
			ordered = ordered[:0]
			type numbered struct {
				num   int
				value string
			}
			var items []numbered
			for k, val := range v {
				key := strings.TrimPrefix(strings.TrimSpace(k), "#")
				if m := candidateKeyRe.FindStringSubmatch(key); m != nil {
					key = m[1]
				}
				num, err := strconv.Atoi(key)
				if err != nil {
					continue
				}
				items = append(items, numbered{num, stringify(val)})
			}
			sort.Slice(items, func(i, j int) bool { return items[i].num < items[j].num })
			for _, item := range items {
				if len(ordered) >= n {
					break
				}
				ordered = append(ordered, item.value)
			}
		}
	case []any:
		for i := 0; i < len(v) && i < n; i++ {
			ordered = append(ordered, stringify(v[i]))
		}
	case nil:
		ordered = []string{""}
	default:
		ordered = []string{stringify(v)}
	}

	for len(ordered) < n {
		ordered = append(ordered, "")
	}
	return ordered[:n]
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
