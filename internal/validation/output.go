package validation

import (
	"fmt"
	"regexp"
	"strings"

	"meetdistill/internal/types/meeting"
)

// Bounds are the per-artifact size limits.
type Bounds struct {
	SummaryMinWords int `yaml:"summary_min_words" validate:"gte=1"`
	SummaryMaxWords int `yaml:"summary_max_words" validate:"gtefield=SummaryMinWords"`
	MinActionPoints int `yaml:"min_action_points" validate:"gte=1"`
	MaxActionPoints int `yaml:"max_action_points" validate:"gtefield=MinActionPoints"`
	MinActionWords  int `yaml:"min_action_words" validate:"gte=1"`
	MinTodos        int `yaml:"min_todos" validate:"gte=1"`
	MaxTodos        int `yaml:"max_todos" validate:"gtefield=MinTodos"`
	EmailMinWords   int `yaml:"email_min_words" validate:"gte=1"`
	EmailMaxWords   int `yaml:"email_max_words" validate:"gtefield=EmailMinWords"`
}

func DefaultBounds() Bounds {
	return Bounds{
		SummaryMinWords: 40,
		SummaryMaxWords: 80,
		MinActionPoints: 1,
		MaxActionPoints: 4,
		MinActionWords:  4,
		MinTodos:        1,
		MaxTodos:        5,
		EmailMinWords:   100,
		EmailMaxWords:   200,
	}
}

// Violation is one broken rule, phrased so the next attempt can act on it.
type Violation struct {
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
}

// Verdict is Accept when Violations is empty, Reject(feedback) otherwise.
type Verdict struct {
	Violations []Violation
}

func (v Verdict) Accepted() bool { return len(v.Violations) == 0 }

// Feedback enumerates the violations, one per line.
func (v Verdict) Feedback() string {
	var b strings.Builder
	for _, x := range v.Violations {
		fmt.Fprintf(&b, "- %s: %s\n", x.Rule, x.Detail)
	}
	return strings.TrimRight(b.String(), "\n")
}

const (
	ruleProvenance  = "provenance"
	ruleCitations   = "citations_required"
	ruleCitationFmt = "citation_format"
	ruleConditional = "conditional_language"
	rulePlaceholder = "placeholder"
	ruleCount       = "item_count"
	ruleLength      = "length"
	ruleDeadline    = "deadline"
	ruleDuplicate   = "duplicate"
	ruleFormat      = "format"
)

var (
	bracketPlaceholderRe = regexp.MustCompile(`\[[^\]\n]{0,60}\]|<[^>\n]{1,60}>|\{\{[^}\n]*\}\}`)
	indexCitationRe      = regexp.MustCompile(`(?i)^\s*(?:#|fact\s*|item\s*)?\d+\s*$`)
	bulletLineRe         = regexp.MustCompile(`^\s*(?:[-*\x{2022}]|\d+[.)])\s+\S`)
	closingLineRe        = regexp.MustCompile(`(?i)^\s*(?:best(?:\s+regards)?|kind\s+regards|warm\s+regards|regards|thanks(?:\s+again|\s+everyone|\s+all)?|thank\s+you(?:\s+all)?|cheers|sincerely)\s*[,.!]?\s*$`)
)

// OutputValidator scores drafts against the artifact rules. Safe for concurrent use.
type OutputValidator struct {
	bounds      Bounds
	conditional phraseMatcher
	placeholder phraseMatcher
	absent      map[string]struct{}
	taskVerb    phraseMatcher
}

func NewOutputValidator(lex Lexicon, bounds Bounds) *OutputValidator {
	lex = DefaultLexicon().Merge(lex)
	return &OutputValidator{
		bounds:      bounds,
		conditional: newPhraseMatcher(lex.Conditional),
		placeholder: newPhraseMatcher(lex.Placeholders),
		absent:      toSet(lowerAll(lex.AbsentDeadline)...),
		taskVerb:    newPhraseMatcher(lex.TaskVerbs),
	}
}

// Check validates one draft against the validated fact set. Every variant is
// handled explicitly; an unknown draft type is itself a violation.
func (o *OutputValidator) Check(d meeting.Draft, facts *meeting.FactSet) Verdict {
	var vs []Violation
	add := func(rule, format string, args ...any) {
		vs = append(vs, Violation{Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}

	switch d := d.(type) {
	case meeting.SummaryDraft:
		o.checkSummary(d, add)
	case meeting.ActionPointsDraft:
		o.checkActionPoints(d, add)
	case meeting.TodosDraft:
		o.checkTodos(d, facts, add)
	case meeting.EmailDraft:
		o.checkEmail(d, add)
	default:
		add(ruleFormat, "unsupported draft type %T", d)
		return Verdict{Violations: vs}
	}

	// provenance holds for every variant, whatever the prose looks like
	seen := map[string]bool{}
	for _, c := range d.Citations() {
		if seen[c] {
			continue
		}
		seen[c] = true
		switch {
		case indexCitationRe.MatchString(c):
			add(ruleCitationFmt, "source_facts entry %q is an index; copy the fact text instead", c)
		case !facts.Cites(c):
			add(ruleProvenance, "source_facts entry %q is not the exact content or quote of any validated fact", c)
		}
	}
	return Verdict{Violations: vs}
}

type addFunc func(rule, format string, args ...any)

func (o *OutputValidator) checkText(field, text string, add addFunc) {
	if hit := o.conditional.Find(text); hit != "" {
		add(ruleConditional, "%s contains conditional phrasing %q", field, hit)
	}
	if hit := o.placeholderIn(text); hit != "" {
		add(rulePlaceholder, "%s contains placeholder %q", field, hit)
	}
}

func (o *OutputValidator) placeholderIn(text string) string {
	if m := bracketPlaceholderRe.FindString(text); m != "" {
		return m
	}
	return o.placeholder.Find(text)
}

func (o *OutputValidator) checkSummary(d meeting.SummaryDraft, add addFunc) {
	n := wordCount(d.Text)
	if n < o.bounds.SummaryMinWords || n > o.bounds.SummaryMaxWords {
		add(ruleLength, "summary has %d words; it must have %d-%d", n, o.bounds.SummaryMinWords, o.bounds.SummaryMaxWords)
	}
	if len(d.SourceFacts) == 0 {
		add(ruleCitations, "summary must list the facts it draws on in source_facts")
	}
	o.checkText("summary", d.Text, add)
}

func (o *OutputValidator) checkActionPoints(d meeting.ActionPointsDraft, add addFunc) {
	n := len(d.Items)
	if n < o.bounds.MinActionPoints || n > o.bounds.MaxActionPoints {
		add(ruleCount, "%d action points; there must be %d-%d", n, o.bounds.MinActionPoints, o.bounds.MaxActionPoints)
	}
	seen := map[string]int{}
	for i, it := range d.Items {
		field := fmt.Sprintf("action_points[%d].description", i)
		if w := wordCount(it.Description); w < o.bounds.MinActionWords {
			add(ruleLength, "%s has %d words; a strategic statement needs at least %d", field, w, o.bounds.MinActionWords)
		}
		if len(it.SourceFacts) == 0 {
			add(ruleCitations, "action_points[%d] has no source_facts", i)
		}
		key := normKey(it.Description)
		if j, dup := seen[key]; dup && key != "" {
			add(ruleDuplicate, "action_points[%d] repeats action_points[%d]", i, j)
		} else {
			seen[key] = i
		}
		o.checkText(field, it.Description, add)
	}
}

func (o *OutputValidator) checkTodos(d meeting.TodosDraft, facts *meeting.FactSet, add addFunc) {
	n := len(d.Items)
	if n < o.bounds.MinTodos || n > o.bounds.MaxTodos {
		add(ruleCount, "%d todos; there must be %d-%d", n, o.bounds.MinTodos, o.bounds.MaxTodos)
	}
	byTask := map[string]int{}
	for i, it := range d.Items {
		field := fmt.Sprintf("todos[%d].task", i)
		if strings.TrimSpace(it.Task) == "" {
			add(ruleFormat, "%s is empty", field)
		}
		if len(it.SourceFacts) == 0 {
			add(ruleCitations, "todos[%d] has no source_facts", i)
		}
		if it.Deadline != nil {
			o.checkDeadline(i, *it.Deadline, facts, add)
		}
		key := normKey(it.Task)
		if j, dup := byTask[key]; dup && key != "" {
			add(ruleDuplicate, "todos[%d] repeats the task of todos[%d]", i, j)
		} else {
			byTask[key] = i
		}
		o.checkText(field, it.Task, add)
	}

	// an undated todo must not shadow a dated one for the same work
	for i, a := range d.Items {
		if a.Deadline != nil {
			continue
		}
		for j, b := range d.Items {
			if i == j || b.Deadline == nil {
				continue
			}
			if shadows(a, b, facts) {
				add(ruleDuplicate, "todos[%d] is a null-deadline duplicate of todos[%d]; merge them and keep the deadline", i, j)
				break
			}
		}
	}
}

func (o *OutputValidator) checkDeadline(i int, dl string, facts *meeting.FactSet, add addFunc) {
	t := strings.TrimSpace(dl)
	if _, absent := o.absent[strings.ToLower(t)]; absent {
		add(ruleDeadline, "todos[%d].deadline %q signals absence; use null instead", i, dl)
		return
	}
	if o.looksLikeTask(t) {
		add(ruleDeadline, "todos[%d].deadline %q reads like a task, not a time", i, dl)
		return
	}
	for _, s := range facts.Texts() {
		if strings.Contains(s, t) {
			return
		}
	}
	add(ruleDeadline, "todos[%d].deadline %q is not copied from any validated fact; copy the exact time text or use null", i, dl)
}

// looksLikeTask flags deadlines such as "Send the deck": a leading task verb
// or a long phrase. Real deadlines are short time expressions.
func (o *OutputValidator) looksLikeTask(s string) bool {
	if wordCount(s) > 8 {
		return true
	}
	first := strings.Fields(s)
	if len(first) == 0 {
		return false
	}
	return o.taskVerb.Find(first[0]) == strings.ToLower(strings.Trim(first[0], ".,;:"))
}

func (o *OutputValidator) checkEmail(d meeting.EmailDraft, add addFunc) {
	e := d.Email
	if strings.TrimSpace(e.Subject) == "" {
		add(ruleFormat, "email subject is empty")
	}
	n := wordCount(e.Body)
	if n < o.bounds.EmailMinWords || n > o.bounds.EmailMaxWords {
		add(ruleLength, "email body has %d words; it must have %d-%d", n, o.bounds.EmailMinWords, o.bounds.EmailMaxWords)
	}
	if len(e.SourceFacts) == 0 {
		add(ruleCitations, "email has no source_facts")
	}

	lines := strings.Split(strings.TrimSpace(e.Body), "\n")
	bullets, closings, closingAt := 0, 0, -1
	for i, ln := range lines {
		if bulletLineRe.MatchString(ln) {
			bullets++
		}
		if closingLineRe.MatchString(ln) {
			closings++
			closingAt = i
		}
	}
	if bullets == 0 {
		add(ruleFormat, "email body must list the commitments as bullet points")
	}
	switch {
	case closings == 0:
		add(ruleFormat, "email body must end with a single closing line such as \"Best regards,\"")
	case closings > 1:
		add(ruleFormat, "email body has %d closing lines; keep exactly one", closings)
	default:
		for _, ln := range lines[closingAt+1:] {
			if strings.TrimSpace(ln) != "" {
				add(ruleFormat, "email body has a signature block after the closing line; end with the closing line only")
				break
			}
		}
	}
	o.checkText("email subject", e.Subject, add)
	o.checkText("email body", e.Body, add)
}

// shadows reports whether the undated todo a covers the same work as the
// dated todo b: same wording, same keyword set, same citations, or a shared
// action item citation.
func shadows(a, b meeting.Todo, facts *meeting.FactSet) bool {
	if normKey(a.Task) == normKey(b.Task) || sameKeywords(a.Task, b.Task) || sameCitations(a.SourceFacts, b.SourceFacts) {
		return true
	}
	for _, ca := range a.SourceFacts {
		f, ok := facts.Lookup(ca)
		if !ok || f.Category != meeting.CategoryActionItem {
			continue
		}
		for _, cb := range b.SourceFacts {
			if g, ok := facts.Lookup(cb); ok && g.ID == f.ID && g.Content == f.Content {
				return true
			}
		}
	}
	return false
}

func sameKeywords(a, b string) bool {
	ka, kb := toSet(keywords(a)...), toSet(keywords(b)...)
	if len(ka) == 0 || len(ka) != len(kb) {
		return false
	}
	for k := range ka {
		if _, ok := kb[k]; !ok {
			return false
		}
	}
	return true
}

func normKey(s string) string {
	return strings.Join(tokens(s), " ")
}

func sameCitations(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	set := map[string]int{}
	for _, s := range a {
		set[s]++
	}
	for _, s := range b {
		if set[s] == 0 {
			return false
		}
		set[s]--
	}
	return true
}
