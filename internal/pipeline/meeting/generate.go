// Package meeting holds the model-facing phases of the pipeline: fact
// extraction and the four artifact generators. Each phase renders a
// structured prompt, sends it through an llmclient.LLMClient and decodes the
// reply leniently. Judging the result is left to package validation.
package meeting

import (
	"context"
	"encoding/json"
	"strings"

	"meetdistill/internal/llm"
	"meetdistill/internal/llmclient"
	"meetdistill/internal/llmtool"
	mt "meetdistill/internal/types/meeting"
	"meetdistill/internal/validation"
)

// Request is one attempt of a generation task. Previous and Feedback are set
// from the second attempt on.
type Request struct {
	Facts    *mt.FactSet
	Previous mt.Draft
	Feedback string
	// Attempt is 1-based.
	Attempt int
}

// Generator produces one artifact variant from validated facts only.
type Generator interface {
	Kind() mt.TaskKind
	// Relevant returns the facts the generator would draw on; empty means
	// there is nothing to generate from.
	Relevant(facts *mt.FactSet) []mt.Fact
	Generate(ctx context.Context, req Request) (mt.Draft, error)
}

// NewGenerators returns one generator per task kind, in mt.TaskKinds order.
func NewGenerators(cli llmclient.LLMClient, lex validation.Lexicon, b validation.Bounds) []Generator {
	return []Generator{
		&SummaryGenerator{LLM: cli, Bounds: b},
		&ActionPointsGenerator{LLM: cli, Bounds: b},
		&TodosGenerator{LLM: cli, Bounds: b, Deadlines: validation.NewDeadlineFixer(lex)},
		&EmailGenerator{LLM: cli, Bounds: b},
	}
}

// GenerateWorker is the worker name carried by generation calls for kind.
func GenerateWorker(kind mt.TaskKind) string { return "generate." + string(kind) }

// factView is what a generator sees of a fact. IDs stay out so the model
// cannot cite by id.
type factView struct {
	Category    mt.Category   `json:"category"`
	Content     string        `json:"content"`
	SourceQuote string        `json:"source_quote"`
	Confidence  mt.Confidence `json:"confidence"`
}

func views(facts []mt.Fact) []factView {
	out := make([]factView, 0, len(facts))
	for _, f := range facts {
		out = append(out, factView{Category: f.Category, Content: f.Content, SourceQuote: f.SourceQuote, Confidence: f.Confidence})
	}
	return out
}

// call renders spec for this attempt and sends the relevant facts as input.
func call(ctx context.Context, cli llmclient.LLMClient, kind mt.TaskKind, spec llmtool.StructuredPromptSpec, criteria []string, facts []mt.Fact, req Request) (json.RawMessage, error) {
	state := llmtool.PromptState{Criteria: criteria}
	if req.Previous != nil {
		state.PreviousDraft = req.Previous
	}
	if req.Feedback != "" {
		state.Feedback = req.Feedback
		state.Attempt = req.Attempt - 1
	}
	prompt, err := llmtool.StructuredPrompt(spec, state)
	if err != nil {
		return nil, err
	}
	ctx = llm.WithWorker(ctx, GenerateWorker(kind))
	return cli.GenerateJSON(ctx, prompt, map[string]any{"facts": views(facts)})
}

// dedupe trims citations and drops empties and repeats, keeping order.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
