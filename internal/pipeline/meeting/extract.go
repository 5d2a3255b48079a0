package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"meetdistill/internal/llm"
	"meetdistill/internal/llmclient"
	"meetdistill/internal/llmtool"
	"meetdistill/internal/logger"
	mt "meetdistill/internal/types/meeting"
	"meetdistill/internal/util/jsonutil"
	"meetdistill/internal/utils"
)

// extractedFact is the per-item wire shape of an extraction reply.
type extractedFact struct {
	FactType    string `json:"fact_type" prompt:"optional" prompt_desc:"The requested category, copied as given."`
	Content     string `json:"content" prompt_desc:"One short sentence stating the fact. Name the owner and the deliverable when the quote does."`
	SourceQuote string `json:"source_quote" prompt_desc:"The exact words from the transcript that state the fact, copied character-for-character."`
	Confidence  string `json:"confidence" prompt_desc:"high, medium or low: how explicitly the quote states the fact."`
}

var extractPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose:      "Extract every fact of one category from a meeting transcript, each backed by an exact quote.",
	Background:   "Facts are the only material later steps may use. A fact without an exact supporting quote is worthless and will be discarded.",
	OutputFields: llmtool.MustFieldsFromStruct(extractedFact{}),
	Constraints: []string{
		"source_quote must be a verbatim substring of transcript: same words, same punctuation, same casing.",
		"Keep source_quote to the shortest span that fully states the fact; do not include the speaker label.",
		"content must say nothing the quote does not say.",
	},
	Rules: []string{
		"Skip conditional or hypothetical statements (if, unless, in case, assuming).",
		"Skip suggestions that nobody committed to (should, could, might, maybe).",
		"One fact per item; do not merge separate commitments.",
	},
	Assumptions:  []string{"The transcript is already cleaned of filler words."},
	OutputFormat: `JSON object {"facts": [...]} where each item has the OUTPUT fields. Return {"facts": []} when nothing qualifies.`,
	Language:     "English",
}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent(), llmtool.PresetCautious())

// extractCriteria narrows the shared prompt to one category.
var extractCriteria = map[mt.Category][]string{
	mt.CategoryDecision: {
		"Category: decision.",
		"Things that were decided or agreed upon. The quote must carry finality: decided, agreed, will, let's go with.",
	},
	mt.CategoryActionItem: {
		"Category: action_item.",
		"Work someone committed to do. The quote must carry a commitment (I will, X will, please, an explicit imperative).",
		"Skip conditionals even when they contain will.",
	},
	mt.CategoryDeadline: {
		"Category: deadline.",
		"Explicit time references attached to work: Thursday, by noon, next Tuesday at 2pm, EOD Wednesday.",
	},
	mt.CategoryMetric: {
		"Category: metric.",
		"Explicit numbers stated in the meeting: $3.5M, 3 hours, 12 clients, 23%.",
	},
}

// ExtractWorker is the worker name carried by the extraction call for cat.
func ExtractWorker(cat mt.Category) string { return "extract." + string(cat) }

// Extraction is the fan-in result of the four category calls.
type Extraction struct {
	Candidates   []mt.Fact
	SoftFailures []mt.SoftFailure
}

// Unavailable reports whether every category failed at the capability level,
// which means the backend itself could not be reached.
func (e Extraction) Unavailable() bool {
	if len(e.SoftFailures) < len(mt.Categories) {
		return false
	}
	for _, sf := range e.SoftFailures {
		if sf.Kind != mt.SoftFailureCapability {
			return false
		}
	}
	return true
}

type Extractor struct{ LLM llmclient.LLMClient }

// Extract runs one request per category concurrently. A failing category
// becomes a soft failure with zero candidates; only cancellation of ctx is
// returned as an error.
func (x *Extractor) Extract(ctx context.Context, text string) (Extraction, error) {
	results := make([]categoryResult, len(mt.Categories))
	var g errgroup.Group
	for i, cat := range mt.Categories {
		g.Go(func() error {
			results[i] = x.extractCategory(ctx, text, cat)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}

	var out Extraction
	ids := utils.NewUIDGenerator()
	for _, r := range results {
		for _, f := range r.facts {
			f.ID = ids.Generate(string(f.Category), f.Content+"\n"+f.SourceQuote)
			out.Candidates = append(out.Candidates, f)
		}
		if r.soft != nil {
			out.SoftFailures = append(out.SoftFailures, *r.soft)
		}
	}
	return out, nil
}

type categoryResult struct {
	facts []mt.Fact
	soft  *mt.SoftFailure
}

func (x *Extractor) extractCategory(ctx context.Context, text string, cat mt.Category) categoryResult {
	ctx = llm.WithWorker(ctx, ExtractWorker(cat))
	log := logger.FromContext(ctx).With("category", cat)
	fail := func(kind mt.SoftFailureKind, reason string) categoryResult {
		log.Warn("extraction soft failure", "kind", kind, "error", reason)
		return categoryResult{soft: &mt.SoftFailure{Category: cat, Kind: kind, Reason: reason}}
	}

	prompt := llmtool.MustStructuredPrompt(extractPromptSpec, llmtool.PromptState{Criteria: extractCriteria[cat]})
	input := map[string]any{"category": cat, "transcript": text}
	raw, err := x.LLM.GenerateJSON(ctx, prompt, input)
	switch {
	case err == nil:
	case errors.Is(err, llmclient.ErrInvalidJSON):
		return fail(mt.SoftFailureParse, err.Error())
	case errors.Is(err, llmclient.ErrEmptyResponse):
		return fail(mt.SoftFailureEmpty, err.Error())
	default:
		return fail(mt.SoftFailureCapability, err.Error())
	}

	items, err := decodeList[extractedFact](raw, "facts")
	if err != nil {
		return fail(mt.SoftFailureParse, err.Error())
	}
	facts, dropped := candidates(cat, items)
	if len(facts) == 0 {
		reason := "no candidates in response"
		if dropped > 0 {
			reason = fmt.Sprintf("%d items had no source_quote", dropped)
		}
		return fail(mt.SoftFailureEmpty, reason)
	}
	log.Debug("extracted", "candidates", len(facts), "dropped", dropped)
	return categoryResult{facts: facts}
}

var quoteReplacer = strings.NewReplacer("\u2018", "'", "\u2019", "'", "\u201c", `"`, "\u201d", `"`)

// candidates converts wire items to facts, dropping items without a quote.
// The requested category wins over whatever fact_type the model echoed.
func candidates(cat mt.Category, items []extractedFact) ([]mt.Fact, int) {
	var out []mt.Fact
	dropped := 0
	for _, it := range items {
		quote := strings.TrimSpace(quoteReplacer.Replace(it.SourceQuote))
		quote = strings.Trim(quote, `"`)
		if quote == "" {
			dropped++
			continue
		}
		conf, ok := mt.ParseConfidence(it.Confidence)
		if !ok {
			conf = mt.ConfidenceLow
		}
		out = append(out, mt.Fact{
			Category:    cat,
			Content:     strings.TrimSpace(it.Content),
			SourceQuote: quote,
			Confidence:  conf,
			Status:      mt.StatusCandidate,
		})
	}
	return out, dropped
}

// decodeList accepts a bare array or an object holding the array under key.
// An object without key decodes to an empty list.
func decodeList[T any](raw json.RawMessage, key string) ([]T, error) {
	var list []T
	if err := jsonutil.UnmarshalFlex(raw, &list); err == nil {
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := jsonutil.UnmarshalFlex(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", llmclient.ErrInvalidJSON, err)
	}
	inner, ok := wrapped[key]
	if !ok || string(inner) == "null" {
		return nil, nil
	}
	if err := jsonutil.UnmarshalFlex(inner, &list); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", llmclient.ErrInvalidJSON, key, err)
	}
	return list, nil
}
