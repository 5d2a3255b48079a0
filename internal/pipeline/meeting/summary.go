package meeting

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"meetdistill/internal/llmclient"
	"meetdistill/internal/llmtool"
	mt "meetdistill/internal/types/meeting"
	"meetdistill/internal/util/jsonutil"
	"meetdistill/internal/validation"
)

type summaryOut struct {
	Summary     string   `json:"summary" prompt_desc:"One prose paragraph. Lead with the highest-priority commitments."`
	SourceFacts []string `json:"source_facts" prompt_desc:"Exact content or source_quote of every fact the summary uses."`
}

var summaryPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose:      "Summarize a meeting from its validated facts.",
	Background:   "The facts were extracted from the transcript and checked against it. They are the only source; the transcript is not available.",
	OutputFields: llmtool.MustFieldsFromStruct(summaryOut{}),
	Constraints: []string{
		"Mention decisions first, then commitments with owners and deadlines, then metrics.",
		"Write plain sentences; no headings, labels or bullet points.",
	},
	OutputFormat: "JSON object with the OUTPUT fields.",
	Language:     "English",
}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent(), llmtool.PresetVerbatimCitations(), llmtool.PresetNoConditionals())

type SummaryGenerator struct {
	LLM    llmclient.LLMClient
	Bounds validation.Bounds
}

func (g *SummaryGenerator) Kind() mt.TaskKind { return mt.TaskSummary }

func (g *SummaryGenerator) Relevant(facts *mt.FactSet) []mt.Fact { return facts.All() }

func (g *SummaryGenerator) Generate(ctx context.Context, req Request) (mt.Draft, error) {
	criteria := []string{fmt.Sprintf("Length: %d to %d words.", g.Bounds.SummaryMinWords, g.Bounds.SummaryMaxWords)}
	raw, err := call(ctx, g.LLM, g.Kind(), summaryPromptSpec, criteria, g.Relevant(req.Facts), req)
	if err != nil {
		return nil, err
	}
	var out summaryOut
	if err := jsonutil.UnmarshalFlex(raw, &out); err != nil {
		// some models answer with the bare paragraph as a JSON string
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil, fmt.Errorf("%w: %v", llmclient.ErrInvalidJSON, err)
		}
		out.Summary = s
	}
	return mt.SummaryDraft{Text: cleanSummary(out.Summary), SourceFacts: dedupe(out.SourceFacts)}, nil
}

var (
	summaryLabelRe = regexp.MustCompile(`(?i)^\s*(?:here\s+is\s+(?:the\s+|a\s+)?(?:meeting\s+)?summary|(?:meeting\s+)?summary)\s*[:\-]\s*`)
	spaceRunRe     = regexp.MustCompile(`\s+`)
)

func cleanSummary(s string) string {
	s = summaryLabelRe.ReplaceAllString(s, "")
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
}
