package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetdistill/internal/types/meeting"
)

const transcript = `Sarah: We agreed to go with Acme as the payments vendor.
Mark: I'll run the API test Thursday.
Sarah: Great. Please send the summary by Friday morning.
Lee: The docs are outdated.
Mark: If the test fails, we'll delay the launch by a week.
Lee: We should maybe look at the pricing page at some point.
Sarah: The budget is $40k for this quarter.
Mark: I'll follow up on things.
Sarah: We might go with Acme as the payments vendor.
Lee: We should decide on the launch date next week.
Mark: Maybe we could agree on the rollout plan.
Lee: Perhaps not the cheapest option, but we decided on Acme.`

func fact(cat meeting.Category, content, quote string, conf meeting.Confidence) meeting.Fact {
	return meeting.Fact{Category: cat, Content: content, SourceQuote: quote, Confidence: conf, Status: meeting.StatusCandidate}
}

func TestFactValidator_Rules(t *testing.T) {
	v := NewFactValidator(Lexicon{}, StrictnessBalanced)

	cases := []struct {
		name   string
		fact   meeting.Fact
		rule   meeting.DiscardRule
		reason string
	}{
		{
			name: "accepts a supported action item",
			fact: fact(meeting.CategoryActionItem, "Mark will run API test", "I'll run the API test Thursday", meeting.ConfidenceHigh),
		},
		{
			name: "accepts a deadline value without commitment language",
			fact: fact(meeting.CategoryDeadline, "Summary due Friday morning", "by Friday morning", meeting.ConfidenceHigh),
		},
		{
			name: "accepts a decision",
			fact: fact(meeting.CategoryDecision, "Acme chosen as payments vendor", "We agreed to go with Acme as the payments vendor", meeting.ConfidenceHigh),
		},
		{
			name: "accepts a metric",
			fact: fact(meeting.CategoryMetric, "Quarterly budget of $40k", "The budget is $40k for this quarter", meeting.ConfidenceMedium),
		},
		{
			name:   "rejects a quote that does not support the content",
			fact:   fact(meeting.CategoryActionItem, "Team will update documentation", "The docs are outdated", meeting.ConfidenceHigh),
			rule:   meeting.RuleQuoteSupport,
			reason: "does not support content",
		},
		{
			name:   "rejects a quote missing from the transcript",
			fact:   fact(meeting.CategoryActionItem, "Mark will run API test", "I will run the API test on Thursday", meeting.ConfidenceHigh),
			rule:   meeting.RuleQuoteSupport,
			reason: "not a verbatim substring",
		},
		{
			name:   "rejects a short quote",
			fact:   fact(meeting.CategoryMetric, "Budget $40k", "$40k", meeting.ConfidenceHigh),
			rule:   meeting.RuleQuoteSupport,
			reason: "shorter than",
		},
		{
			name:   "rejects discretionary language",
			fact:   fact(meeting.CategoryActionItem, "Lee to review the pricing page", "We should maybe look at the pricing page", meeting.ConfidenceHigh),
			rule:   meeting.RuleCommitment,
			reason: "discretionary",
		},
		{
			name:   "rejects a commitment verb under might",
			fact:   fact(meeting.CategoryDecision, "Acme chosen as payments vendor", "We might go with Acme as the payments vendor", meeting.ConfidenceHigh),
			rule:   meeting.RuleCommitment,
			reason: `discretionary language "might" governs "go with"`,
		},
		{
			name:   "rejects a commitment verb under should",
			fact:   fact(meeting.CategoryDecision, "Launch date decided", "We should decide on the launch date next week", meeting.ConfidenceHigh),
			rule:   meeting.RuleCommitment,
			reason: `"should" governs "decide"`,
		},
		{
			name:   "rejects a commitment verb under could",
			fact:   fact(meeting.CategoryDecision, "Rollout plan agreed", "Maybe we could agree on the rollout plan", meeting.ConfidenceHigh),
			rule:   meeting.RuleCommitment,
			reason: `"could" governs "agree"`,
		},
		{
			name: "accepts a decisive commitment after an unrelated hedge",
			fact: fact(meeting.CategoryDecision, "Decided on Acme", "Perhaps not the cheapest option, but we decided on Acme", meeting.ConfidenceHigh),
		},
		{
			name:   "rejects conditionals even with commitment language",
			fact:   fact(meeting.CategoryActionItem, "Delay the launch if the test fails", "If the test fails, we'll delay the launch by a week", meeting.ConfidenceHigh),
			rule:   meeting.RuleConditional,
			reason: `"if"`,
		},
		{
			name:   "rejects generic follow-ups",
			fact:   fact(meeting.CategoryActionItem, "Follow up on things", "I'll follow up on things", meeting.ConfidenceHigh),
			rule:   meeting.RuleSpecificity,
			reason: "follow up",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rep := v.Validate(transcript, []meeting.Fact{tc.fact})
			assert.Equal(t, 1, rep.Extracted)
			if tc.rule == "" {
				require.Len(t, rep.Accepted, 1, "discarded: %+v", rep.Discarded)
				assert.Equal(t, meeting.StatusAccepted, rep.Accepted[0].Status)
				return
			}
			require.Len(t, rep.Discarded, 1)
			assert.Empty(t, rep.Accepted)
			assert.Equal(t, tc.rule, rep.Discarded[0].Rule)
			assert.Contains(t, rep.Discarded[0].Reason, tc.reason)
			assert.Equal(t, tc.fact.Content, rep.Discarded[0].FactContent)
		})
	}
}

func TestFactValidator_ConfidenceFloor(t *testing.T) {
	v := NewFactValidator(Lexicon{}, StrictnessBalanced)
	high := fact(meeting.CategoryActionItem, "Mark will run API test", "I'll run the API test Thursday", meeting.ConfidenceHigh)
	low := fact(meeting.CategoryActionItem, "Send the summary by Friday morning", "Please send the summary by Friday morning", meeting.ConfidenceLow)
	lowDeadline := fact(meeting.CategoryDeadline, "Summary due Friday morning", "by Friday morning", meeting.ConfidenceLow)

	t.Run("Should discard low confidence when the category has stronger facts", func(t *testing.T) {
		rep := v.Validate(transcript, []meeting.Fact{high, low})
		require.Len(t, rep.Accepted, 1)
		assert.Equal(t, high.Content, rep.Accepted[0].Content)
		require.Len(t, rep.Discarded, 1)
		assert.Equal(t, meeting.RuleConfidence, rep.Discarded[0].Rule)
	})

	t.Run("Should keep low confidence when nothing better exists in its category", func(t *testing.T) {
		rep := v.Validate(transcript, []meeting.Fact{high, lowDeadline})
		assert.Len(t, rep.Accepted, 2)
	})

	t.Run("Should keep low confidence when the stronger candidate was discarded", func(t *testing.T) {
		fabricated := fact(meeting.CategoryActionItem, "Mark will run load test", "I'll run the load test Thursday", meeting.ConfidenceHigh)
		rep := v.Validate(transcript, []meeting.Fact{fabricated, low})
		require.Len(t, rep.Accepted, 1)
		assert.Equal(t, low.Content, rep.Accepted[0].Content)
		require.Len(t, rep.Discarded, 1)
		assert.Equal(t, meeting.RuleQuoteSupport, rep.Discarded[0].Rule)
	})

	t.Run("Should apply the strict floor to medium confidence", func(t *testing.T) {
		medium := low
		medium.Confidence = meeting.ConfidenceMedium
		rep := NewFactValidator(Lexicon{}, StrictnessStrict).Validate(transcript, []meeting.Fact{high, medium})
		assert.Len(t, rep.Accepted, 1)

		rep = NewFactValidator(Lexicon{}, StrictnessLenient).Validate(transcript, []meeting.Fact{high, low})
		assert.Len(t, rep.Accepted, 2)
	})
}

func TestFactValidator_Invariants(t *testing.T) {
	v := NewFactValidator(Lexicon{}, StrictnessBalanced)
	candidates := []meeting.Fact{
		fact(meeting.CategoryDecision, "Acme chosen as payments vendor", "We agreed to go with Acme as the payments vendor", meeting.ConfidenceHigh),
		fact(meeting.CategoryActionItem, "Team will update documentation", "The docs are outdated", meeting.ConfidenceHigh),
		fact(meeting.CategoryActionItem, "Mark will run API test", "I'll run the API test Thursday", meeting.ConfidenceHigh),
		fact(meeting.CategoryActionItem, "Delay launch a week", "If the test fails, we'll delay the launch by a week", meeting.ConfidenceHigh),
		fact(meeting.CategoryDeadline, "Summary due Friday morning", "by Friday morning", meeting.ConfidenceHigh),
		fact(meeting.CategoryMetric, "Budget", "", meeting.ConfidenceHigh),
	}
	before := append([]meeting.Fact(nil), candidates...)

	rep := v.Validate(transcript, candidates)

	assert.Equal(t, rep.Extracted, rep.ValidatedCount()+rep.DiscardedCount())
	assert.Equal(t, before, candidates, "input must not be mutated")
	for _, f := range rep.Accepted {
		assert.NotEmpty(t, f.SourceQuote)
		assert.True(t, strings.Contains(transcript, f.SourceQuote))
		assert.NotContains(t, strings.ToLower(f.SourceQuote), "if ")
	}
	assert.Len(t, rep.Accepted, 3)
}

func TestFactValidator_LexiconOverride(t *testing.T) {
	lex := Lexicon{Conditional: []string{"at some point"}}
	v := NewFactValidator(lex, StrictnessBalanced)

	rep := v.Validate(transcript, []meeting.Fact{
		fact(meeting.CategoryActionItem, "Delay the launch by a week", "If the test fails, we'll delay the launch by a week", meeting.ConfidenceHigh),
	})
	assert.Len(t, rep.Accepted, 1, "'if' is no longer in the overridden conditional list")
}

func TestSameWord(t *testing.T) {
	assert.True(t, sameWord("update", "updated"))
	assert.True(t, sameWord("test", "testing"))
	assert.False(t, sameWord("docs", "documentation"))
	assert.False(t, sameWord("run", "running"))
}
