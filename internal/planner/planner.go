package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/solet-asu/MCQ-generation/internal/domain"
	"github.com/solet-asu/MCQ-generation/internal/extract"
	"github.com/solet-asu/MCQ-generation/internal/prompt"

	"go.uber.org/zap"
)

// Planner runs the planning step: given chunk-marked text and the requested
// question counts, it asks the planning model for a summary plus a selection
// of facts and inferences, each bound to the chunk labels it came from.
type Planner struct {
	client  domain.CompletionClient
	prompts domain.PromptStore
	sink    domain.MetadataSink
	model   string
	table   string
	logger  *zap.Logger
}

func NewPlanner(
	client domain.CompletionClient,
	prompts domain.PromptStore,
	sink domain.MetadataSink,
	model string,
	table string,
	logger *zap.Logger,
) *Planner {
	return &Planner{
		client:  client,
		prompts: prompts,
		sink:    sink,
		model:   model,
		table:   table,
		logger:  logger,
	}
}

// GeneratePlan produces and persists a plan. An empty or unparseable
// completion yields an empty plan rather than an error; count validation
// happens later in CreateTaskList.
func (p *Planner) GeneratePlan(ctx context.Context, invocationID, chunkedText string, fact, inference int) (*domain.Plan, error) {
	if err := p.sink.EnsureTable(ctx, p.table); err != nil {
		p.logger.Error("Failed to ensure plan table",
			zap.String("invocation_id", invocationID), zap.Error(err))
	}

	tmpl, err := p.prompts.Get(prompt.PlannerPrompts)
	if err != nil {
		return nil, err
	}
	userPrompt := prompt.Render(tmpl.User, map[string]string{
		"text":         chunkedText,
		"n_facts":      strconv.Itoa(fact),
		"n_inferences": strconv.Itoa(inference),
	})

	record := &domain.PlanRecord{
		InvocationID: invocationID,
		SystemPrompt: tmpl.System,
		UserPrompt:   userPrompt,
		Model:        p.model,
	}

	start := time.Now()
	completion, err := p.client.Complete(ctx, tmpl.System, userPrompt, p.model)
	if err != nil {
		return nil, domain.NewLLMServiceError(err)
	}
	record.Completion = completion.Text
	record.InputTokens = completion.InputTokens
	record.OutputTokens = completion.OutputTokens
	record.ExecutionTime = fmt.Sprintf("%.6f", time.Since(start).Seconds())

	plan := &domain.Plan{}
	if completion.Text == "" {
		p.logger.Warn("Planning completion was empty",
			zap.String("invocation_id", invocationID))
	} else if parsed, perr := extract.JSONObject(completion.Text); perr != nil {
		p.logger.Warn("Planning completion did not contain JSON",
			zap.String("invocation_id", invocationID), zap.Error(perr))
	} else {
		plan.Summary, _ = parsed["summary"].(string)
		if selection, ok := parsed["selection"].(map[string]any); ok {
			plan.Facts = parseItems(selection["facts"])
			plan.Inferences = parseItems(selection["inferences"])
		}
	}

	record.Summary = plan.Summary
	record.Facts = plan.Facts
	record.Inferences = plan.Inferences
	if err := p.sink.Insert(ctx, record.ToRecord(), p.table); err != nil {
		p.logger.Error("Failed to insert plan metadata",
			zap.String("invocation_id", invocationID), zap.Error(err))
	}
	return plan, nil
}

var keyNumberRe = regexp.MustCompile(`(\d+)\s*$`)

// parseItems accepts the planner's selection maps ({"fact_1": {...}}), a
// JSON-encoded string of the same shape, or a plain array. Keyed entries are
// ordered by their trailing number so fact_2 never outruns fact_1.
func parseItems(raw any) []domain.PlanItem {
	if s, ok := raw.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil
		}
		raw = decoded
	}

	switch v := raw.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			ni, iok := trailingNumber(keys[i])
			nj, jok := trailingNumber(keys[j])
			if iok && jok && ni != nj {
				return ni < nj
			}
			return keys[i] < keys[j]
		})
		items := make([]domain.PlanItem, 0, len(keys))
		for _, k := range keys {
			items = append(items, parseItem(v[k]))
		}
		return items
	case []any:
		items := make([]domain.PlanItem, 0, len(v))
		for _, entry := range v {
			items = append(items, parseItem(entry))
		}
		return items
	}
	return nil
}

func parseItem(raw any) domain.PlanItem {
	obj, ok := raw.(map[string]any)
	if !ok {
		return domain.PlanItem{}
	}
	item := domain.PlanItem{}
	item.Content, _ = obj["content"].(string)
	if labels, ok := obj["chunk"].([]any); ok {
		for _, label := range labels {
			if s, ok := label.(string); ok {
				item.Chunk = append(item.Chunk, s)
			}
		}
	}
	return item
}

func trailingNumber(key string) (int, bool) {
	m := keyNumberRe.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
