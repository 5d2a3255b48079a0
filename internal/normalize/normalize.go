// Package normalize cleans raw meeting transcripts before extraction.
// The output is what every source quote is checked against.
package normalize

import (
	"errors"
	"regexp"
	"strings"
)

var ErrEmptyTranscript = errors.New("normalize: empty transcript")

// DefaultFillers are spoken tokens that carry no content.
var DefaultFillers = []string{
	"um", "uh", "er", "ah",
	"like,", "you know,", "basically,", "actually,", "literally,",
}

var (
	artifactRe   = regexp.MustCompile(`(?i)\[(?:inaudible|crosstalk|laughter|laughs|silence|music|pause|background noise)[^\]]*\]`)
	spaceRe      = regexp.MustCompile(`[ \t\f\v]+`)
	lineSpaceRe  = regexp.MustCompile(` *\n *`)
	blankLinesRe = regexp.MustCompile(`\n{2,}`)
	// orphaned punctuation left behind after a filler is removed
	spaceBeforePunctRe = regexp.MustCompile(` +([,.;:!?])`)
	leadingPunctRe     = regexp.MustCompile(`(?m)^[,;] *`)
)

var quoteReplacer = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'",
	"\u201c", `"`, "\u201d", `"`,
	"\u00a0", " ",
	"\r\n", "\n", "\r", "\n",
)

// Normalizer is safe for concurrent use once built.
type Normalizer struct {
	fillers []*regexp.Regexp
}

// New compiles the filler list. A nil list selects DefaultFillers; an empty
// non-nil list disables filler removal.
func New(fillers []string) *Normalizer {
	if fillers == nil {
		fillers = DefaultFillers
	}
	n := &Normalizer{}
	for _, f := range fillers {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		var pat string
		if strings.HasSuffix(f, ",") {
			pat = `(?i)\b` + regexp.QuoteMeta(f)
		} else {
			pat = `(?i)\b` + regexp.QuoteMeta(f) + `\b,?`
		}
		n.fillers = append(n.fillers, regexp.MustCompile(pat))
	}
	return n
}

// Normalize removes fillers and transcription artifacts and collapses whitespace.
// Speaker labels and line structure are kept.
func (n *Normalizer) Normalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyTranscript
	}
	s := quoteReplacer.Replace(raw)
	s = artifactRe.ReplaceAllString(s, "")
	for _, re := range n.fillers {
		s = re.ReplaceAllString(s, "")
	}
	s = spaceRe.ReplaceAllString(s, " ")
	s = spaceBeforePunctRe.ReplaceAllString(s, "$1")
	s = lineSpaceRe.ReplaceAllString(s, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n")
	s = leadingPunctRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyTranscript
	}
	return s, nil
}
