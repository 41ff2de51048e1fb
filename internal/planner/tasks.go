package planner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/solet-asu/MCQ-generation/internal/domain"
)

var chunkSegmentRe = regexp.MustCompile(`(?s)<(chunk\d+)>(.*?)</chunk\d+>`)
var chunkTagRe = regexp.MustCompile(`</?chunk\d+>`)

// CreateTaskList validates the plan against the requested counts and expands
// it into generation tasks. Fact and inference tasks carry the chunk text they
// target plus the rest of the summary as context; the main_idea task carries
// the tag-stripped summary only.
func CreateTaskList(chunkedText string, plan *domain.Plan, fact, inference, mainIdea int) ([]domain.Task, error) {
	var problems []string
	if len(plan.Facts) != fact {
		problems = append(problems, fmt.Sprintf("expected %d facts, got %d", fact, len(plan.Facts)))
	}
	if len(plan.Inferences) != inference {
		problems = append(problems, fmt.Sprintf("expected %d inferences, got %d", inference, len(plan.Inferences)))
	}
	if len(problems) > 0 {
		return nil, domain.NewInvalidPlanError(strings.Join(problems, "; "))
	}

	var tasks []domain.Task
	for _, item := range plan.Facts {
		tasks = append(tasks, itemTask(domain.QuestionTypeFact, chunkedText, plan.Summary, item))
	}
	for _, item := range plan.Inferences {
		tasks = append(tasks, itemTask(domain.QuestionTypeInference, chunkedText, plan.Summary, item))
	}
	if mainIdea > 0 {
		tasks = append(tasks, domain.Task{
			QuestionType: domain.QuestionTypeMainIdea,
			Text:         ExtractSummary(plan.Summary),
		})
	}
	return tasks, nil
}

func itemTask(qt domain.QuestionType, chunkedText, summary string, item domain.PlanItem) domain.Task {
	return domain.Task{
		QuestionType: qt,
		Content:      item.Content,
		Text:         ExtractChunks(chunkedText, item.Chunk),
		Context:      ExtractUnlistedChunks(summary, item.Chunk),
		Chunk:        item.Chunk,
	}
}

// ExtractChunks returns the contents of the listed chunk labels, joined by
// newlines in label order.
func ExtractChunks(text string, labels []string) string {
	var contents []string
	for _, label := range labels {
		re, err := regexp.Compile(`(?s)<` + regexp.QuoteMeta(label) + `>(.*?)</` + regexp.QuoteMeta(label) + `>`)
		if err != nil {
			continue
		}
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			contents = append(contents, strings.TrimSpace(m[1]))
		}
	}
	return strings.Join(contents, "\n")
}

// ExtractUnlistedChunks returns the summary text of every chunk NOT in labels,
// joined by spaces.
func ExtractUnlistedChunks(summary string, labels []string) string {
	excluded := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		excluded[label] = struct{}{}
	}
	var kept []string
	for _, m := range chunkSegmentRe.FindAllStringSubmatch(summary, -1) {
		if _, skip := excluded[m[1]]; skip {
			continue
		}
		kept = append(kept, strings.TrimSpace(m[2]))
	}
	return strings.Join(kept, " ")
}

// ExtractSummary strips every chunk tag from the summary.
func ExtractSummary(summary string) string {
	return strings.TrimSpace(chunkTagRe.ReplaceAllString(summary, ""))
}
