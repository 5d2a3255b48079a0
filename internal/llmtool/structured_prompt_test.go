package llmtool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredPrompt_RendersSections(t *testing.T) {
	spec := ApplyPresets(StructuredPromptSpec{
		Purpose:      "Extract facts.",
		Background:   "Meeting transcript.",
		OutputFormat: "JSON only.",
		Language:     "English",
		OutputFields: []PromptField{
			{Name: "facts", Type: "[]object", Required: true, Description: "Extracted facts."},
			{Name: "notes", Type: "string"},
		},
		Constraints: []string{"Quote verbatim."},
		Rules:       []string{"Be concise."},
		Assumptions: []string{"Missing categories can be empty arrays."},
		Examples:    []PromptExample{{InputJSON: `{"t":"x"}`, OutputJSON: `{"facts":[]}`}},
	}, PresetStrictJSON())

	out, err := StructuredPrompt(spec, PromptState{Criteria: []string{"decisions only"}})
	require.NoError(t, err)

	for _, sec := range []string{"[PURPOSE]", "[BACKGROUND]", "[CRITERIA]", "[OUTPUT]", "[CONSTRAINTS]",
		"[RULES]", "[ASSUMPTIONS]", "[OUTPUT_FORMAT]", "[LANGUAGE]", "[EXAMPLES]"} {
		assert.Contains(t, out, sec)
	}
	assert.NotContains(t, out, "[PREVIOUS_DRAFT]")
	assert.NotContains(t, out, "[PREVIOUS_ATTEMPT_FEEDBACK]")
	assert.Contains(t, out, "- facts ([]object, required): Extracted facts.")
	assert.Contains(t, out, "- notes (string, optional)")
	assert.Less(t, strings.Index(out, "Return strict JSON only."), strings.Index(out, "Quote verbatim."),
		"preset constraints come first")
}

func TestStructuredPrompt_Retry(t *testing.T) {
	spec := StructuredPromptSpec{Purpose: "p", OutputFields: []PromptField{{Name: "x", Type: "string"}}}
	out, err := StructuredPrompt(spec, PromptState{
		PreviousDraft: map[string]string{"summary": "a < b"},
		Feedback:      "- word_count: 12 words, need 40-80",
		Attempt:       1,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "[PREVIOUS_DRAFT]")
	assert.Contains(t, out, `"summary": "a < b"`)
	assert.Contains(t, out, "Attempt 1 was rejected")
	assert.Contains(t, out, "word_count: 12 words")
}

func TestStructuredPrompt_Invalid(t *testing.T) {
	_, err := StructuredPrompt(StructuredPromptSpec{}, PromptState{})
	assert.Error(t, err)
	_, err = StructuredPrompt(StructuredPromptSpec{Purpose: "p"}, PromptState{})
	assert.Error(t, err)
}

func TestFieldsFromStruct(t *testing.T) {
	type item struct {
		Task     string   `json:"task" prompt_desc:"What to do."`
		Deadline *string  `json:"deadline" prompt:"optional"`
		Sources  []string `json:"source_facts"`
		Internal string   `json:"-"`
		Skip     int      `json:"skip" prompt:"-"`
		hidden   string
	}
	_ = item{}.hidden
	fields, err := FieldsFromStruct(&item{})
	require.NoError(t, err)
	assert.Equal(t, []PromptField{
		{Name: "task", Type: "string", Required: true, Description: "What to do."},
		{Name: "deadline", Type: "string|null", Required: false},
		{Name: "source_facts", Type: "[]string", Required: true},
	}, fields)

	_, err = FieldsFromStruct(42)
	assert.Error(t, err)
}
