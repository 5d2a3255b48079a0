package meeting

import (
	"strings"
)

// Category is the closed set of fact kinds the extractor asks for.
type Category string

const (
	CategoryDecision   Category = "decision"
	CategoryActionItem Category = "action_item"
	CategoryDeadline   Category = "deadline"
	CategoryMetric     Category = "metric"
)

// Categories lists every category in extraction order.
var Categories = []Category{
	CategoryDecision,
	CategoryActionItem,
	CategoryDeadline,
	CategoryMetric,
}

// ParseCategory accepts the spellings models tend to produce
// ("Decision", "action item", "action-item", "ActionItem").
func ParseCategory(s string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	switch key {
	case "decision", "decisions":
		return CategoryDecision, true
	case "actionitem", "actionitems", "action":
		return CategoryActionItem, true
	case "deadline", "deadlines":
		return CategoryDeadline, true
	case "metric", "metrics":
		return CategoryMetric, true
	default:
		return "", false
	}
}

// Confidence is the extractor's self-reported certainty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders confidences so that higher is more certain. Unknown values rank lowest.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// ParseConfidence defaults to high when the model omits the field.
func ParseConfidence(s string) (Confidence, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "high":
		return ConfidenceHigh, true
	case "medium", "med":
		return ConfidenceMedium, true
	case "low":
		return ConfidenceLow, true
	default:
		return "", false
	}
}

// FactStatus tracks a fact through the validation gate.
type FactStatus string

const (
	StatusCandidate FactStatus = "candidate"
	StatusAccepted  FactStatus = "accepted"
	StatusDiscarded FactStatus = "discarded"
)

// Fact is a quote-backed unit of information taken from the transcript.
// Only the fact validator changes Status; everything else is fixed at extraction.
type Fact struct {
	ID          string     `json:"id"`
	Category    Category   `json:"category"`
	Content     string     `json:"content"`
	SourceQuote string     `json:"source_quote"`
	Confidence  Confidence `json:"confidence"`
	Status      FactStatus `json:"status"`
}

// DiscardRule names the validation rule that rejected a candidate.
type DiscardRule string

const (
	RuleQuoteSupport DiscardRule = "quote_support"
	RuleCommitment   DiscardRule = "commitment_language"
	RuleConditional  DiscardRule = "conditional_language"
	RuleSpecificity  DiscardRule = "specificity"
	RuleConfidence   DiscardRule = "confidence_floor"
)

// DiscardRecord explains why a candidate did not become a validated fact.
type DiscardRecord struct {
	FactID      string      `json:"fact_id,omitempty"`
	FactContent string      `json:"fact_content"`
	Rule        DiscardRule `json:"rule"`
	Reason      string      `json:"reason"`
}

// SoftFailureKind classifies an extraction category that produced nothing usable.
type SoftFailureKind string

const (
	SoftFailureParse      SoftFailureKind = "parse"
	SoftFailureEmpty      SoftFailureKind = "empty"
	SoftFailureCapability SoftFailureKind = "capability"
)

// SoftFailure records a category whose extraction yielded zero candidates
// because of a malformed, empty or failed response.
type SoftFailure struct {
	Category Category        `json:"category"`
	Kind     SoftFailureKind `json:"kind"`
	Reason   string          `json:"reason"`
}

// FactSet is the read-only validated fact set shared by every generator.
// It is built once and never mutated, so concurrent readers need no locking.
type FactSet struct {
	facts []Fact
	texts map[string]int
}

// NewFactSet copies facts into an immutable set.
func NewFactSet(facts []Fact) *FactSet {
	out := &FactSet{
		facts: make([]Fact, len(facts)),
		texts: make(map[string]int, len(facts)*2),
	}
	copy(out.facts, facts)
	for i, f := range facts {
		for _, t := range []string{f.Content, f.SourceQuote} {
			if _, dup := out.texts[t]; t != "" && !dup {
				out.texts[t] = i
			}
		}
	}
	return out
}

// Len returns the number of facts in the set.
func (s *FactSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.facts)
}

// All returns a copy of every fact.
func (s *FactSet) All() []Fact {
	if s == nil {
		return nil
	}
	out := make([]Fact, len(s.facts))
	copy(out, s.facts)
	return out
}

// ByCategory returns the facts whose category is one of cats, in set order.
func (s *FactSet) ByCategory(cats ...Category) []Fact {
	if s == nil {
		return nil
	}
	want := make(map[Category]bool, len(cats))
	for _, c := range cats {
		want[c] = true
	}
	var out []Fact
	for _, f := range s.facts {
		if want[f.Category] {
			out = append(out, f)
		}
	}
	return out
}

// Cites reports whether text equals the content or quote of a fact in the set, verbatim.
func (s *FactSet) Cites(text string) bool {
	if s == nil {
		return false
	}
	_, ok := s.texts[text]
	return ok
}

// Lookup returns the first fact whose content or quote equals text.
func (s *FactSet) Lookup(text string) (Fact, bool) {
	if s == nil {
		return Fact{}, false
	}
	i, ok := s.texts[text]
	if !ok {
		return Fact{}, false
	}
	return s.facts[i], true
}

// Texts returns every content and quote string, facts in order, content first.
func (s *FactSet) Texts() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.facts)*2)
	for _, f := range s.facts {
		out = append(out, f.Content, f.SourceQuote)
	}
	return out
}
