package validation

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"meetdistill/internal/types/meeting"
)

// Artifacts is what the compliance pass looks at: one draft per slot.
type Artifacts struct {
	Summary      meeting.SummaryDraft
	ActionPoints meeting.ActionPointsDraft
	Todos        meeting.TodosDraft
	Email        meeting.EmailDraft
}

// ComplianceChecker is the final cross-artifact policy pass. It only reports.
type ComplianceChecker struct {
	out *OutputValidator
}

func NewComplianceChecker(lex Lexicon) *ComplianceChecker {
	return &ComplianceChecker{out: NewOutputValidator(lex, DefaultBounds())}
}

// Check never mutates a; it returns every policy violation found.
func (c *ComplianceChecker) Check(a Artifacts, facts *meeting.FactSet) meeting.ComplianceReport {
	var issues []meeting.ComplianceIssue
	add := func(kind meeting.TaskKind, rule, format string, args ...any) {
		issues = append(issues, meeting.ComplianceIssue{Artifact: kind, Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}

	texts := func(kind meeting.TaskKind, field, s string) {
		if hit := c.out.placeholderIn(s); hit != "" {
			add(kind, rulePlaceholder, "%s contains placeholder %q", field, hit)
		}
		if hit := c.out.conditional.Find(s); hit != "" {
			add(kind, ruleConditional, "%s contains conditional phrasing %q", field, hit)
		}
	}
	texts(meeting.TaskSummary, "summary", a.Summary.Text)
	for i, it := range a.ActionPoints.Items {
		texts(meeting.TaskActionPoints, fmt.Sprintf("action_points[%d]", i), it.Description)
		if len(it.SourceFacts) == 0 {
			add(meeting.TaskActionPoints, ruleCitations, "action_points[%d] has no source_facts", i)
		}
	}
	for i, it := range a.Todos.Items {
		texts(meeting.TaskTodos, fmt.Sprintf("todos[%d]", i), it.Task)
		if len(it.SourceFacts) == 0 {
			add(meeting.TaskTodos, ruleCitations, "todos[%d] has no source_facts", i)
		}
		if it.Deadline != nil {
			if _, absent := c.out.absent[strings.ToLower(strings.TrimSpace(*it.Deadline))]; absent {
				add(meeting.TaskTodos, ruleDeadline, "todos[%d].deadline %q is a placeholder for a missing deadline", i, *it.Deadline)
			}
		}
	}
	if !a.Email.Email.IsZero() {
		texts(meeting.TaskEmail, "email subject", a.Email.Email.Subject)
		texts(meeting.TaskEmail, "email body", a.Email.Email.Body)
	}

	for _, d := range []meeting.Draft{a.Summary, a.ActionPoints, a.Todos, a.Email} {
		for _, cite := range d.Citations() {
			if !facts.Cites(cite) {
				add(d.Kind(), ruleProvenance, "cites %q, which is not a validated fact", cite)
			}
		}
	}

	issues = append(issues, contradictions(a)...)
	return meeting.ComplianceReport{Passed: len(issues) == 0, Issues: issues}
}

type commitment struct {
	kind     meeting.TaskKind
	where    string
	priority meeting.Priority
	deadline *string
}

// contradictions finds the same commitment stated twice with different
// details: identical action/task text with another priority or deadline, or
// two todos built on the same fact that disagree on the deadline.
func contradictions(a Artifacts) []meeting.ComplianceIssue {
	var issues []meeting.ComplianceIssue
	byText := map[string][]commitment{}
	for i, it := range a.ActionPoints.Items {
		k := normKey(it.Description)
		byText[k] = append(byText[k], commitment{meeting.TaskActionPoints, fmt.Sprintf("action_points[%d]", i), it.Priority, nil})
	}
	byFact := map[string][]commitment{}
	for i, it := range a.Todos.Items {
		c := commitment{meeting.TaskTodos, fmt.Sprintf("todos[%d]", i), it.Priority, it.Deadline}
		k := normKey(it.Task)
		byText[k] = append(byText[k], c)
		for _, f := range it.SourceFacts {
			byFact[f] = append(byFact[f], c)
		}
	}

	for _, k := range slices.Sorted(maps.Keys(byText)) {
		cs := byText[k]
		if k == "" || len(cs) < 2 {
			continue
		}
		for _, other := range cs[1:] {
			if other.priority != cs[0].priority {
				issues = append(issues, meeting.ComplianceIssue{Artifact: other.kind, Rule: "contradiction",
					Detail: fmt.Sprintf("%s and %s state the same commitment with priorities %s and %s", cs[0].where, other.where, cs[0].priority, other.priority)})
			}
			bothTodos := cs[0].kind == meeting.TaskTodos && other.kind == meeting.TaskTodos
			if bothTodos && deadlinesDiffer(cs[0].deadline, other.deadline) {
				issues = append(issues, meeting.ComplianceIssue{Artifact: other.kind, Rule: "contradiction",
					Detail: fmt.Sprintf("%s and %s state the same commitment with different deadlines", cs[0].where, other.where)})
			}
		}
	}
	for _, f := range slices.Sorted(maps.Keys(byFact)) {
		cs := byFact[f]
		for _, other := range cs[1:] {
			if cs[0].deadline != nil && other.deadline != nil && deadlinesDiffer(cs[0].deadline, other.deadline) {
				issues = append(issues, meeting.ComplianceIssue{Artifact: meeting.TaskTodos, Rule: "contradiction",
					Detail: fmt.Sprintf("%s and %s cite %q but give deadlines %q and %q", cs[0].where, other.where, f, *cs[0].deadline, *other.deadline)})
			}
		}
	}
	return issues
}

func deadlinesDiffer(a, b *string) bool {
	if a == nil || b == nil {
		return a != b
	}
	return !strings.EqualFold(strings.TrimSpace(*a), strings.TrimSpace(*b))
}
