package format

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/solet-asu/MCQ-generation/internal/domain"
)

var digitsRe = regexp.MustCompile(`\d+`)

// Reorder sorts results by source position: non-main_idea questions ordered by
// the number of their last chunk label (ties keep their relative order),
// main_idea questions last. Results with no parsable chunk sort after the
// numbered ones but still before main_idea.
func Reorder(results []*domain.MCQResult) []*domain.MCQResult {
	var mainIdeas []*domain.MCQResult
	var others []*domain.MCQResult
	for _, r := range results {
		if r.QuestionType == domain.QuestionTypeMainIdea {
			mainIdeas = append(mainIdeas, r)
		} else {
			others = append(others, r)
		}
	}

	sort.SliceStable(others, func(i, j int) bool {
		return lastChunkNumber(others[i].Chunk) < lastChunkNumber(others[j].Chunk)
	})
	return append(others, mainIdeas...)
}

// AddQuestionMarkers prefixes each question and answer with Q1:, Q2:, ... in
// the given order.
func AddQuestionMarkers(results []*domain.MCQResult) []*domain.MCQResult {
	for i, r := range results {
		prefix := fmt.Sprintf("Q%d: ", i+1)
		r.MCQ = prefix + strings.TrimLeft(r.MCQ, " \t\n")
		r.MCQAnswer = prefix + strings.TrimLeft(r.MCQAnswer, " \t\n")
	}
	return results
}

func lastChunkNumber(chunk []string) float64 {
	if len(chunk) == 0 {
		return math.Inf(1)
	}
	m := digitsRe.FindString(chunk[len(chunk)-1])
	if m == "" {
		return math.Inf(1)
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return math.Inf(1)
	}
	return float64(n)
}
