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

type emailOut struct {
	Subject     string   `json:"subject" prompt_desc:"Short subject naming the meeting topic."`
	Body        string   `json:"body" prompt_desc:"Greeting, one context sentence, the commitments as \"- \" bullets with deadlines where known, then one closing line such as \"Best regards,\" and nothing after it."`
	SourceFacts []string `json:"source_facts" prompt_desc:"Exact content or source_quote of every fact the email mentions."`
}

var emailPromptSpec = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose:      "Write the follow-up email sent to attendees after the meeting.",
	Background:   "The email restates what was decided and who committed to what. It is built from validated facts only.",
	OutputFields: llmtool.MustFieldsFromStruct(emailOut{}),
	Constraints: []string{
		"Address the attendees collectively (\"Hi all,\"); never use a recipient name placeholder.",
		"End the body with exactly one closing line. No signature, sender name or title after it.",
		"Use \\n for line breaks inside body.",
	},
	OutputFormat: `JSON object {"email": {...}} holding the OUTPUT fields.`,
	Language:     "English",
}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent(), llmtool.PresetVerbatimCitations(), llmtool.PresetNoConditionals())

type EmailGenerator struct {
	LLM    llmclient.LLMClient
	Bounds validation.Bounds
}

func (g *EmailGenerator) Kind() mt.TaskKind { return mt.TaskEmail }

func (g *EmailGenerator) Relevant(facts *mt.FactSet) []mt.Fact {
	return facts.ByCategory(mt.CategoryDecision, mt.CategoryActionItem, mt.CategoryDeadline)
}

func (g *EmailGenerator) Generate(ctx context.Context, req Request) (mt.Draft, error) {
	criteria := []string{fmt.Sprintf("Body length: %d to %d words.", g.Bounds.EmailMinWords, g.Bounds.EmailMaxWords)}
	raw, err := call(ctx, g.LLM, g.Kind(), emailPromptSpec, criteria, g.Relevant(req.Facts), req)
	if err != nil {
		return nil, err
	}
	out, err := decodeEmail(raw)
	if err != nil {
		return nil, err
	}
	return mt.EmailDraft{Email: mt.Email{
		Subject:     cleanSubject(out.Subject),
		Body:        cleanBody(out.Body),
		SourceFacts: dedupe(out.SourceFacts),
	}}, nil
}

// decodeEmail accepts {"email": {...}}, a flat object, or a one-element array.
func decodeEmail(raw json.RawMessage) (emailOut, error) {
	var wrapped struct {
		Email json.RawMessage `json:"email"`
	}
	if err := jsonutil.UnmarshalFlex(raw, &wrapped); err == nil && len(wrapped.Email) > 0 && string(wrapped.Email) != "null" {
		raw = wrapped.Email
	}
	var out emailOut
	if err := jsonutil.UnmarshalFlex(raw, &out); err == nil {
		return out, nil
	}
	list, err := decodeList[emailOut](raw, "follow_up_emails")
	if err != nil {
		return emailOut{}, err
	}
	if len(list) == 0 {
		return emailOut{}, nil
	}
	return list[0], nil
}

var (
	subjectLabelRe = regexp.MustCompile(`(?i)^\s*subject\s*:\s*`)
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
	hSpaceRunRe    = regexp.MustCompile(`[ \t]{2,}`)
)

func cleanSubject(s string) string {
	return strings.TrimSpace(subjectLabelRe.ReplaceAllString(s, ""))
}

func cleanBody(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = hSpaceRunRe.ReplaceAllString(s, " ")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
