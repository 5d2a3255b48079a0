package validation

import (
	"fmt"
	"regexp"
	"strings"

	"meetdistill/internal/types/meeting"
)

// Strictness picks the confidence floor.
type Strictness string

const (
	StrictnessStrict   Strictness = "strict"
	StrictnessBalanced Strictness = "balanced"
	StrictnessLenient  Strictness = "lenient"
)

// Floor maps strictness to the lowest confidence accepted without the
// "nothing better in this category" exception. Unknown values act as balanced.
func (s Strictness) Floor() meeting.Confidence {
	switch s {
	case StrictnessStrict:
		return meeting.ConfidenceHigh
	case StrictnessLenient:
		return meeting.ConfidenceLow
	default:
		return meeting.ConfidenceMedium
	}
}

// FactReport is the partition produced by FactValidator.
type FactReport struct {
	Accepted  []meeting.Fact
	Discarded []meeting.DiscardRecord
	Extracted int
}

func (r FactReport) ValidatedCount() int { return len(r.Accepted) }
func (r FactReport) DiscardedCount() int { return len(r.Discarded) }

// FactValidator is the pure gate between extraction and generation.
// Rules run in fixed precedence and the first failure wins.
type FactValidator struct {
	lex           Lexicon
	floor         meeting.Confidence
	commitment    phraseMatcher
	discretionary phraseMatcher
	hedge         *regexp.Regexp
	conditional   phraseMatcher
	vague         phraseMatcher
	imperative    *regexp.Regexp
	generic       map[string]struct{}
}

func NewFactValidator(lex Lexicon, strictness Strictness) *FactValidator {
	lex = DefaultLexicon().Merge(lex)
	v := &FactValidator{
		lex:           lex,
		floor:         strictness.Floor(),
		commitment:    newPhraseMatcher(lex.Commitment),
		discretionary: newPhraseMatcher(lex.Discretionary),
		conditional:   newPhraseMatcher(lex.Conditional),
		vague:         newPhraseMatcher(lex.Vague),
		generic:       toSet(lowerAll(lex.Generic)...),
	}
	if alts := phraseAlternatives(lex.Discretionary); len(alts) > 0 {
		// a discretionary word right before a commitment, at most one word apart
		v.hedge = regexp.MustCompile(`(?i)(` + strings.Join(alts, "|") + `)\s+(?:[\p{L}']+\s+)?$`)
	}
	if len(lex.Imperatives) > 0 {
		alts := make([]string, 0, len(lex.Imperatives))
		for _, w := range lex.Imperatives {
			alts = append(alts, strings.ReplaceAll(regexp.QuoteMeta(strings.ToLower(strings.TrimSpace(w))), " ", `\s+`))
		}
		// an imperative opens the utterance, optionally after a speaker label and "please"
		v.imperative = regexp.MustCompile(`(?i)^(?:[\p{L}][\p{L} .'-]{0,40}:\s*)?(?:(?:ok(?:ay)?|so|and|please)[,]?\s+)*(?:` +
			strings.Join(alts, "|") + `)\b`)
	}
	return v
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

// Validate partitions candidates against the normalized transcript.
// The input slice is not modified.
func (v *FactValidator) Validate(text string, candidates []meeting.Fact) FactReport {
	rep := FactReport{Extracted: len(candidates)}

	type survivor struct {
		idx  int
		fact meeting.Fact
	}
	var survivors []survivor
	discards := make(map[int]meeting.DiscardRecord)

	for i, c := range candidates {
		if rule, reason, ok := v.checkRules(text, c); !ok {
			discards[i] = discard(c, rule, reason)
			continue
		}
		survivors = append(survivors, survivor{idx: i, fact: c})
	}

	// Rule 5 needs every survivor of rules 1-4 to know whether the category
	// has something at or above the floor.
	aboveFloor := map[meeting.Category]bool{}
	for _, s := range survivors {
		if s.fact.Confidence.Rank() >= v.floor.Rank() {
			aboveFloor[s.fact.Category] = true
		}
	}
	accepted := map[int]meeting.Fact{}
	for _, s := range survivors {
		if s.fact.Confidence.Rank() < v.floor.Rank() && aboveFloor[s.fact.Category] {
			discards[s.idx] = discard(s.fact, meeting.RuleConfidence,
				fmt.Sprintf("%s confidence is below the %s floor and the %s category has stronger facts",
					s.fact.Confidence, v.floor, s.fact.Category))
			continue
		}
		f := s.fact
		f.Status = meeting.StatusAccepted
		accepted[s.idx] = f
	}

	// report in input order
	for i := range candidates {
		if f, ok := accepted[i]; ok {
			rep.Accepted = append(rep.Accepted, f)
		} else if d, ok := discards[i]; ok {
			rep.Discarded = append(rep.Discarded, d)
		}
	}
	return rep
}

func discard(f meeting.Fact, rule meeting.DiscardRule, reason string) meeting.DiscardRecord {
	return meeting.DiscardRecord{FactID: f.ID, FactContent: f.Content, Rule: rule, Reason: reason}
}

// checkRules applies rules 1-4.
func (v *FactValidator) checkRules(text string, f meeting.Fact) (meeting.DiscardRule, string, bool) {
	if reason, ok := v.quoteSupport(text, f); !ok {
		return meeting.RuleQuoteSupport, reason, false
	}
	if reason, ok := v.commitmentLanguage(f); !ok {
		return meeting.RuleCommitment, reason, false
	}
	for _, s := range []string{f.Content, f.SourceQuote} {
		if hit := v.conditional.Find(s); hit != "" {
			return meeting.RuleConditional, fmt.Sprintf("conditional framing %q", hit), false
		}
	}
	if reason, ok := v.specificity(f); !ok {
		return meeting.RuleSpecificity, reason, false
	}
	return "", "", true
}

func (v *FactValidator) quoteSupport(text string, f meeting.Fact) (string, bool) {
	q := strings.TrimSpace(f.SourceQuote)
	if len([]rune(q)) < v.lex.MinQuoteLength {
		return fmt.Sprintf("source quote %q is shorter than %d characters", q, v.lex.MinQuoteLength), false
	}
	if !strings.Contains(text, f.SourceQuote) {
		return fmt.Sprintf("source quote %q is not a verbatim substring of the transcript", q), false
	}
	content := keywords(f.Content)
	if len(content) == 0 {
		return "content has no terms the quote could support", false
	}
	quote := keywords(q)
	matched := 0
	for _, c := range content {
		for _, w := range quote {
			if sameWord(c, w) {
				matched++
				break
			}
		}
	}
	ratio := float64(matched) / float64(len(content))
	if matched == 0 || ratio < v.lex.MinSupportRatio {
		return fmt.Sprintf("quote does not support content: %d of %d content terms appear in the quote", matched, len(content)), false
	}
	return "", true
}

// commitmentLanguage applies to decisions and action items, where the quote
// must show a commitment. Deadlines and metrics are values, not promises.
func (v *FactValidator) commitmentLanguage(f meeting.Fact) (string, bool) {
	switch f.Category {
	case meeting.CategoryDecision, meeting.CategoryActionItem:
	case meeting.CategoryDeadline, meeting.CategoryMetric:
		return "", true
	default:
		return fmt.Sprintf("unknown category %q", f.Category), false
	}
	q := f.SourceQuote
	if v.imperative != nil && v.imperative.MatchString(strings.TrimSpace(q)) {
		return "", true
	}
	governed := ""
	for _, loc := range v.commitment.FindAllIndex(q) {
		h := v.hedgedBy(q[:loc[0]])
		if h == "" {
			return "", true
		}
		if governed == "" {
			governed = fmt.Sprintf("discretionary language %q governs %q", h, strings.ToLower(q[loc[0]:loc[1]]))
		}
	}
	if governed != "" {
		return governed + "; no decisive commitment", false
	}
	if hit := v.discretionary.Find(q); hit != "" {
		return fmt.Sprintf("discretionary language %q without a commitment", hit), false
	}
	return "no commitment language in the source quote", false
}

// hedgedBy returns the discretionary word that ends prefix, if any.
func (v *FactValidator) hedgedBy(prefix string) string {
	if v.hedge == nil {
		return ""
	}
	m := v.hedge.FindStringSubmatch(prefix)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func (v *FactValidator) specificity(f meeting.Fact) (string, bool) {
	min := v.lex.MinSpecificTerms
	if f.Category == meeting.CategoryDeadline || f.Category == meeting.CategoryMetric {
		min = 1
	}
	content := f.Content
	hit := v.vague.Find(content)
	if hit != "" {
		content = v.vague.Strip(content)
	}
	n := 0
	for _, k := range keywords(content) {
		if _, g := v.generic[k]; !g {
			n++
		}
	}
	if n >= min {
		return "", true
	}
	if hit != "" {
		return fmt.Sprintf("vague phrase %q without a concrete deliverable", hit), false
	}
	return "content does not name a concrete deliverable or value", false
}
