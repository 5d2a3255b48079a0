package meeting

import (
	"context"
	"fmt"
	"strings"

	"meetdistill/internal/llmclient"
	"meetdistill/internal/llmtool"
	mt "meetdistill/internal/types/meeting"
	"meetdistill/internal/validation"
)

type actionPointOut struct {
	Description string   `json:"description" prompt_desc:"One strategic statement of at least four words that groups related facts."`
	Priority    string   `json:"priority" prompt_desc:"High, Medium or Low."`
	SourceFacts []string `json:"source_facts" prompt_desc:"Exact content or source_quote of every fact the statement groups."`
}

var actionPointsPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose:      "Turn validated meeting facts into strategic action points.",
	Background:   "An action point states a direction the team committed to. It groups related decisions and action items; it is not a to-do.",
	OutputFields: llmtool.MustFieldsFromStruct(actionPointOut{}),
	Constraints: []string{
		"Each action point must be distinct; merge points that share facts.",
		"Priority High for work with a deadline or a blocking decision, Low for background work, Medium otherwise.",
	},
	OutputFormat: `JSON object {"action_points": [...]} where each item has the OUTPUT fields.`,
	Language:     "English",
}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent(), llmtool.PresetVerbatimCitations(), llmtool.PresetNoConditionals())

type ActionPointsGenerator struct {
	LLM    llmclient.LLMClient
	Bounds validation.Bounds
}

func (g *ActionPointsGenerator) Kind() mt.TaskKind { return mt.TaskActionPoints }

func (g *ActionPointsGenerator) Relevant(facts *mt.FactSet) []mt.Fact {
	return facts.ByCategory(mt.CategoryDecision, mt.CategoryActionItem)
}

func (g *ActionPointsGenerator) Generate(ctx context.Context, req Request) (mt.Draft, error) {
	criteria := []string{fmt.Sprintf("Return %d to %d action points.", g.Bounds.MinActionPoints, g.Bounds.MaxActionPoints)}
	raw, err := call(ctx, g.LLM, g.Kind(), actionPointsPromptSpec, criteria, g.Relevant(req.Facts), req)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[actionPointOut](raw, "action_points")
	if err != nil {
		return nil, err
	}
	d := mt.ActionPointsDraft{Items: make([]mt.ActionPoint, 0, len(items))}
	for _, it := range items {
		d.Items = append(d.Items, mt.ActionPoint{
			Description: strings.TrimSpace(it.Description),
			Priority:    mt.ParsePriority(it.Priority),
			SourceFacts: dedupe(it.SourceFacts),
		})
	}
	return d, nil
}
