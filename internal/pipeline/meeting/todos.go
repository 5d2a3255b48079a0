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

type todoOut struct {
	Task        string   `json:"task" prompt_desc:"A concrete task that is either done or not done. Start with a verb."`
	Deadline    *string  `json:"deadline" prompt_desc:"The time text copied exactly from a deadline fact (e.g. \"Friday morning\"), or null."`
	Priority    string   `json:"priority" prompt_desc:"High, Medium or Low."`
	SourceFacts []string `json:"source_facts" prompt_desc:"Exact content or source_quote of the action item and, when used, the deadline fact."`
}

var todosPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose:      "Turn validated action items and deadlines into tactical to-dos.",
	Background:   "A to-do passes a binary test: someone can say whether it is done. Deadlines come only from deadline facts.",
	OutputFields: llmtool.MustFieldsFromStruct(todoOut{}),
	Constraints: []string{
		"Match each action item with the deadline fact that belongs to it and put the time text in deadline.",
		`Use JSON null for a missing deadline. Never write "not specified", "TBD", "none" or similar.`,
		"deadline holds only a time; never put a task in it.",
		"One to-do per task: never list the same task twice, once with and once without a deadline.",
	},
	OutputFormat: `JSON object {"todos": [...]} where each item has the OUTPUT fields.`,
	Language:     "English",
}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent(), llmtool.PresetVerbatimCitations(), llmtool.PresetNoConditionals())

type TodosGenerator struct {
	LLM       llmclient.LLMClient
	Bounds    validation.Bounds
	Deadlines validation.DeadlineFixer
}

func (g *TodosGenerator) Kind() mt.TaskKind { return mt.TaskTodos }

// Relevant needs at least one action item; deadlines alone are not work.
func (g *TodosGenerator) Relevant(facts *mt.FactSet) []mt.Fact {
	if len(facts.ByCategory(mt.CategoryActionItem)) == 0 {
		return nil
	}
	return facts.ByCategory(mt.CategoryActionItem, mt.CategoryDeadline)
}

func (g *TodosGenerator) Generate(ctx context.Context, req Request) (mt.Draft, error) {
	criteria := []string{fmt.Sprintf("Return %d to %d to-dos.", g.Bounds.MinTodos, g.Bounds.MaxTodos)}
	raw, err := call(ctx, g.LLM, g.Kind(), todosPromptSpec, criteria, g.Relevant(req.Facts), req)
	if err != nil {
		return nil, err
	}
	items, err := decodeList[todoOut](raw, "todos")
	if err != nil {
		return nil, err
	}
	d := mt.TodosDraft{Items: make([]mt.Todo, 0, len(items))}
	for _, it := range items {
		d.Items = append(d.Items, mt.Todo{
			Task:        strings.TrimSpace(it.Task),
			Deadline:    g.Deadlines.Fix(it.Deadline, req.Facts),
			Priority:    mt.ParsePriority(it.Priority),
			SourceFacts: dedupe(it.SourceFacts),
		})
	}
	return d, nil
}
