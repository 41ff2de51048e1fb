// Package prompt loads YAML prompt templates and renders their placeholders.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/solet-asu/MCQ-generation/internal/domain"

	"gopkg.in/yaml.v3"
)

// Prompt file names per question type, plus the supporting stages.
const (
	FactPrompts                = "fact_prompts.yaml"
	InferencePrompts           = "inference_prompts.yaml"
	MainIdeaPrompts            = "main_idea_prompts.yaml"
	PlannerPrompts             = "planner_prompts.yaml"
	EvaluatorPrompts           = "evaluator_prompts.yaml"
	MCQExtractionPrompts       = "mcq_extraction_prompts.yaml"
	AnswerExtractionPrompts    = "answer_extraction_prompts.yaml"
	SyntacticAnalyzerPrompts   = "syntactic_analyzer_prompts.yaml"
	CandidateGenerationPrompts = "candidate_generation_prompts.yaml"
	CandidateSelectionPrompts  = "candidate_selection_prompts.yaml"
	RankingPrompts             = "ranking_prompts.yaml"
)

// ForQuestionType maps a question type to its generation prompt file.
func ForQuestionType(qt domain.QuestionType) (string, error) {
	switch qt {
	case domain.QuestionTypeFact:
		return FactPrompts, nil
	case domain.QuestionTypeInference:
		return InferencePrompts, nil
	case domain.QuestionTypeMainIdea:
		return MainIdeaPrompts, nil
	}
	return "", domain.NewInvalidInputError(fmt.Sprintf("invalid question type: %s", qt))
}

// Store reads prompt template files from a directory and caches them.
type Store struct {
	dir string

	mu    sync.Mutex
	cache map[string]domain.PromptTemplate
}

// NewStore creates a prompt store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: make(map[string]domain.PromptTemplate),
	}
}

// Get returns the template stored under the given file name, reading and
// caching it on first use.
func (s *Store) Get(name string) (domain.PromptTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tmpl, cached := s.cache[name]; cached {
		return tmpl, nil
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return domain.PromptTemplate{}, fmt.Errorf("failed to read prompt file %s: %w", name, err)
	}

	var tmpl domain.PromptTemplate
	if err := yaml.Unmarshal(raw, &tmpl); err != nil {
		return domain.PromptTemplate{}, fmt.Errorf("failed to parse prompt file %s: %w", name, err)
	}

	s.cache[name] = tmpl
	return tmpl, nil
}

var _ domain.PromptStore = (*Store)(nil)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Render substitutes {name} placeholders with the given fields. Unresolved
// placeholders substitute to empty string rather than erroring.
func Render(template string, fields map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		key := m[1 : len(m)-1]
		return fields[key]
	})
}
