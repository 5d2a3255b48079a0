package validation

import (
	"regexp"
	"strings"

	"meetdistill/internal/types/meeting"
)

var deadlineTailRe = regexp.MustCompile(`(?i)\b(?:by|before|until|due|on)\s+(.+?)\s*[.!]?$`)

// DeadlineFixer repairs the deadline mistakes models make most often before a
// todo draft is checked. It never invents a deadline: it either keeps the
// text, narrows it to a time phrase that a validated fact contains, or
// clears it.
type DeadlineFixer struct {
	absent   map[string]struct{}
	taskVerb phraseMatcher
}

func NewDeadlineFixer(lex Lexicon) DeadlineFixer {
	lex = DefaultLexicon().Merge(lex)
	return DeadlineFixer{
		absent:   toSet(lowerAll(lex.AbsentDeadline)...),
		taskVerb: newPhraseMatcher(lex.TaskVerbs),
	}
}

// Fix returns nil for absence markers ("not specified", "TBD"). A deadline
// that carries a task verb ("Send summary by Friday morning") is cut down to
// its trailing time phrase when a fact contains that phrase, else cleared.
func (f DeadlineFixer) Fix(d *string, facts *meeting.FactSet) *string {
	if d == nil {
		return nil
	}
	t := strings.TrimSpace(*d)
	if _, absent := f.absent[strings.ToLower(t)]; absent {
		return nil
	}
	if !f.taskVerb.Match(t) {
		return &t
	}
	m := deadlineTailRe.FindStringSubmatch(t)
	if m == nil || f.taskVerb.Match(m[1]) {
		return nil
	}
	tail := strings.TrimSpace(m[1])
	for _, s := range facts.Texts() {
		if strings.Contains(s, tail) {
			return &tail
		}
	}
	return nil
}
