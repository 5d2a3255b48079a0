// Package validation holds the deterministic gates of the pipeline: the fact
// validator, the per-artifact output validator and the final compliance pass.
// Nothing here performs I/O.
package validation

import (
	"regexp"
	"strings"
	"unicode"
)

// Lexicon is the tunable word lists and thresholds behind every rule.
// Zero-valued fields fall back to DefaultLexicon.
type Lexicon struct {
	Commitment     []string `yaml:"commitment"`
	Imperatives    []string `yaml:"imperatives"`
	Discretionary  []string `yaml:"discretionary"`
	Conditional    []string `yaml:"conditional"`
	Vague          []string `yaml:"vague"`
	Generic        []string `yaml:"generic"`
	Placeholders   []string `yaml:"placeholders"`
	AbsentDeadline []string `yaml:"absent_deadline"`
	TaskVerbs      []string `yaml:"task_verbs"`

	MinQuoteLength   int     `yaml:"min_quote_length"`
	MinSupportRatio  float64 `yaml:"min_support_ratio"`
	MinSpecificTerms int     `yaml:"min_specific_terms"`
}

func DefaultLexicon() Lexicon {
	return Lexicon{
		Commitment: []string{
			"will", "'ll", "going to", "gonna", "shall", "must",
			"agreed", "agree", "decided", "decide", "let's", "go with", "going with",
			"approved", "confirmed", "committed", "please", "on it", "signed off",
		},
		Imperatives: []string{
			"send", "run", "schedule", "reach out", "set up", "ensure", "upload",
			"book", "draft", "prepare", "share", "review", "update", "email", "call",
		},
		Discretionary: []string{
			"should", "might", "could", "may", "maybe", "perhaps", "probably",
			"possibly", "consider", "ideally", "would be nice", "it'd be good",
		},
		Conditional: []string{
			"if", "in case", "unless", "provided that", "assuming", "depending on",
			"in the event", "might have to", "may need to", "would be", "otherwise",
			"could be", "should consider",
		},
		Vague: []string{
			"follow up", "look into", "think about", "work on", "check on",
			"touch base", "circle back", "sync up", "keep an eye on",
		},
		Generic: []string{
			"thing", "things", "stuff", "item", "items", "issue", "issues", "matter",
			"matters", "everything", "something", "anything", "topic", "topics",
			"it", "that", "this", "those", "these", "etc", "team", "people",
		},
		Placeholders: []string{
			"tbd", "tba", "xxx", "lorem ipsum", "your name", "recipient name",
			"placeholder", "not specified", "n/a",
		},
		AbsentDeadline: []string{
			"not specified", "unspecified", "none", "n/a", "na", "tbd", "tba",
			"null", "nil", "not available", "no deadline", "unknown", "-", "",
		},
		TaskVerbs: []string{
			"run", "send", "schedule", "review", "prepare", "draft", "update",
			"upload", "set up", "reach out", "finish", "complete", "deliver",
			"write", "fix", "test", "call", "email", "share", "submit",
		},
		MinQuoteLength:   5,
		MinSupportRatio:  0.5,
		MinSpecificTerms: 2,
	}
}

// Merge overlays the non-zero fields of o onto l.
func (l Lexicon) Merge(o Lexicon) Lexicon {
	pick := func(a, b []string) []string {
		if len(b) > 0 {
			return b
		}
		return a
	}
	l.Commitment = pick(l.Commitment, o.Commitment)
	l.Imperatives = pick(l.Imperatives, o.Imperatives)
	l.Discretionary = pick(l.Discretionary, o.Discretionary)
	l.Conditional = pick(l.Conditional, o.Conditional)
	l.Vague = pick(l.Vague, o.Vague)
	l.Generic = pick(l.Generic, o.Generic)
	l.Placeholders = pick(l.Placeholders, o.Placeholders)
	l.AbsentDeadline = pick(l.AbsentDeadline, o.AbsentDeadline)
	l.TaskVerbs = pick(l.TaskVerbs, o.TaskVerbs)
	if o.MinQuoteLength > 0 {
		l.MinQuoteLength = o.MinQuoteLength
	}
	if o.MinSupportRatio > 0 {
		l.MinSupportRatio = o.MinSupportRatio
	}
	if o.MinSpecificTerms > 0 {
		l.MinSpecificTerms = o.MinSpecificTerms
	}
	return l
}

// phraseMatcher finds whole-word occurrences of any phrase, case-insensitively.
// Phrases that start with punctuation ("'ll") match as suffixes of a word.
type phraseMatcher struct {
	re *regexp.Regexp
}

func newPhraseMatcher(phrases []string) phraseMatcher {
	alts := phraseAlternatives(phrases)
	if len(alts) == 0 {
		return phraseMatcher{}
	}
	return phraseMatcher{re: regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)}
}

// phraseAlternatives turns phrases into regexp alternatives with word
// boundaries on their word-character ends.
func phraseAlternatives(phrases []string) []string {
	var alts []string
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		pat := strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
		if isWordByte(p[0]) {
			pat = `\b` + pat
		}
		if isWordByte(p[len(p)-1]) {
			pat += `\b`
		}
		alts = append(alts, pat)
	}
	return alts
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// Find returns the first matching phrase in s, lowercased, or "".
func (m phraseMatcher) Find(s string) string {
	if m.re == nil {
		return ""
	}
	return strings.ToLower(m.re.FindString(s))
}

func (m phraseMatcher) Match(s string) bool { return m.Find(s) != "" }

// FindAllIndex returns the byte ranges of every match in s.
func (m phraseMatcher) FindAllIndex(s string) [][]int {
	if m.re == nil {
		return nil
	}
	return m.re.FindAllStringIndex(s, -1)
}

// Strip removes every match from s.
func (m phraseMatcher) Strip(s string) string {
	if m.re == nil {
		return s
	}
	return m.re.ReplaceAllString(s, " ")
}

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}$%]+(?:['.,][\p{L}\p{N}%]+)*`)

// tokens lowercases s and splits it into words, keeping "3.5", "$40k", "i'll".
func tokens(s string) []string {
	s = strings.ReplaceAll(s, "\u2019", "'")
	return tokenRe.FindAllString(strings.ToLower(s), -1)
}

// stopwords never count as content keywords.
var stopwords = toSet(
	"a", "an", "the", "and", "or", "but", "of", "to", "in", "on", "at", "by", "for",
	"with", "from", "as", "is", "are", "was", "were", "be", "been", "being", "am",
	"will", "shall", "would", "can", "do", "does", "did", "has", "have", "had",
	"i", "we", "you", "he", "she", "they", "me", "us", "him", "her", "them",
	"i'll", "we'll", "you'll", "he'll", "she'll", "they'll", "i'm", "we're",
	"my", "our", "your", "his", "their", "its", "it's", "let's", "so", "up",
	"also", "just", "then", "than", "there", "here", "about", "into", "out",
	"going", "gonna", "get", "got", "all", "any", "some", "not", "no", "yes",
	"ok", "okay", "right", "well", "now",
)

func toSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

// keywords returns the content-bearing tokens of s.
func keywords(s string) []string {
	var out []string
	for _, t := range tokens(s) {
		if _, stop := stopwords[t]; stop {
			continue
		}
		if len([]rune(t)) < 2 && !hasDigit(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// sameWord treats inflections as equal: "update"/"updated", "test"/"testing".
// A shared prefix of four or more runes is required, so "docs" and
// "documentation" stay distinct.
func sameWord(a, b string) bool {
	if a == b {
		return true
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) < 4 || len(rb) < 4 {
		return false
	}
	n := 0
	for n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	short := len(ra)
	if len(rb) < short {
		short = len(rb)
	}
	return n >= 4 && n >= short-2
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
