package meeting

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetdistill/internal/llm"
	mt "meetdistill/internal/types/meeting"
	"meetdistill/internal/validation"
)

const transcript = `Sarah: We agreed to go with Acme as the payments vendor.
Mark: I'll run the API test Thursday.
Sarah: Please send the summary by Friday morning.`

var (
	apiTestFact  = mt.Fact{ID: "action-item-1", Category: mt.CategoryActionItem, Content: "Mark will run API test", SourceQuote: "I'll run the API test Thursday", Confidence: mt.ConfidenceHigh, Status: mt.StatusAccepted}
	deadlineFact = mt.Fact{ID: "deadline-1", Category: mt.CategoryDeadline, Content: "Summary due Friday morning", SourceQuote: "by Friday morning", Confidence: mt.ConfidenceHigh, Status: mt.StatusAccepted}
	vendorFact   = mt.Fact{ID: "decision-1", Category: mt.CategoryDecision, Content: "Acme chosen as payments vendor", SourceQuote: "We agreed to go with Acme as the payments vendor", Confidence: mt.ConfidenceHigh, Status: mt.StatusAccepted}
)

func TestExtractor_Extract(t *testing.T) {
	t.Run("Should fan in candidates and record soft failures per category", func(t *testing.T) {
		fake := llm.NewFakeClient().
			Script(ExtractWorker(mt.CategoryDecision), llm.FakeReply{Raw: "```json\n[{\"fact_type\":\"decision\",\"content\":\"Acme chosen as payments vendor\",\"source_quote\":\"We agreed to go with Acme as the payments vendor\",\"confidence\":\"High\"},]\n```"}).
			ScriptJSON(ExtractWorker(mt.CategoryActionItem), map[string]any{"facts": []map[string]any{
				{"content": "Mark will run API test", "source_quote": "I’ll run the API test Thursday", "confidence": "medium"},
				{"content": "Someone will do something", "source_quote": ""},
			}}).
			Script(ExtractWorker(mt.CategoryDeadline), llm.FakeReply{Err: errors.New("connection refused")}).
			Script(ExtractWorker(mt.CategoryMetric), llm.FakeReply{Raw: "I could not find any metrics."})
		x := &Extractor{LLM: fake}

		out, err := x.Extract(context.Background(), transcript)
		require.NoError(t, err)
		require.Len(t, out.Candidates, 2)

		dec, act := out.Candidates[0], out.Candidates[1]
		assert.Equal(t, mt.CategoryDecision, dec.Category)
		assert.Equal(t, mt.ConfidenceHigh, dec.Confidence)
		assert.Equal(t, mt.StatusCandidate, dec.Status)
		assert.True(t, strings.HasPrefix(dec.ID, "decision-"))

		assert.Equal(t, mt.CategoryActionItem, act.Category)
		assert.Equal(t, "I'll run the API test Thursday", act.SourceQuote)
		assert.Equal(t, mt.ConfidenceMedium, act.Confidence)
		assert.True(t, strings.HasPrefix(act.ID, "action-item-"))

		kinds := map[mt.Category]mt.SoftFailureKind{}
		for _, sf := range out.SoftFailures {
			kinds[sf.Category] = sf.Kind
		}
		assert.Equal(t, map[mt.Category]mt.SoftFailureKind{
			mt.CategoryDeadline: mt.SoftFailureCapability,
			mt.CategoryMetric:   mt.SoftFailureParse,
		}, kinds)
		assert.False(t, out.Unavailable())
	})

	t.Run("Should send the transcript and category as input", func(t *testing.T) {
		fake := llm.NewFakeClient()
		_, err := (&Extractor{LLM: fake}).Extract(context.Background(), transcript)
		require.NoError(t, err)

		calls := fake.CallsFor(ExtractWorker(mt.CategoryMetric))
		require.Len(t, calls, 1)
		in, ok := calls[0].Input.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, transcript, in["transcript"])
		assert.Contains(t, calls[0].Prompt, "Category: metric.")
		assert.Len(t, fake.Calls(), 4)
	})

	t.Run("Should report empty categories as soft failures", func(t *testing.T) {
		out, err := (&Extractor{LLM: llm.NewFakeClient()}).Extract(context.Background(), transcript)
		require.NoError(t, err)
		assert.Empty(t, out.Candidates)
		require.Len(t, out.SoftFailures, 4)
		for _, sf := range out.SoftFailures {
			assert.Equal(t, mt.SoftFailureEmpty, sf.Kind)
		}
		assert.False(t, out.Unavailable())
	})

	t.Run("Should be unavailable when every call fails", func(t *testing.T) {
		fake := llm.NewFakeClient()
		fake.Fallback = func(string, string, any) llm.FakeReply { return llm.FakeReply{Err: errors.New("503")} }
		out, err := (&Extractor{LLM: fake}).Extract(context.Background(), transcript)
		require.NoError(t, err)
		assert.True(t, out.Unavailable())
	})

	t.Run("Should return the context error when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := (&Extractor{LLM: llm.NewFakeClient()}).Extract(ctx, transcript)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestTodosGenerator(t *testing.T) {
	facts := mt.NewFactSet([]mt.Fact{apiTestFact, deadlineFact})
	fake := llm.NewFakeClient().ScriptJSON(GenerateWorker(mt.TaskTodos), map[string]any{"todos": []map[string]any{
		{"task": "Run the API test", "deadline": "Thursday", "priority": "high", "source_facts": []string{apiTestFact.Content, apiTestFact.Content}},
		{"task": "Send the meeting summary", "deadline": "Send summary by Friday morning", "priority": "Medium", "source_facts": []string{deadlineFact.Content}},
		{"task": "Book a retro", "deadline": "not specified", "priority": "bogus", "source_facts": []string{apiTestFact.SourceQuote}},
	}})
	g := &TodosGenerator{LLM: fake, Bounds: validation.DefaultBounds(), Deadlines: validation.NewDeadlineFixer(validation.Lexicon{})}

	d, err := g.Generate(context.Background(), Request{Facts: facts, Attempt: 1})
	require.NoError(t, err)
	todos, ok := d.(mt.TodosDraft)
	require.True(t, ok)
	require.Len(t, todos.Items, 3)

	t.Run("Should keep deadlines copied from facts", func(t *testing.T) {
		require.NotNil(t, todos.Items[0].Deadline)
		assert.Equal(t, "Thursday", *todos.Items[0].Deadline)
		assert.Equal(t, mt.PriorityHigh, todos.Items[0].Priority)
		assert.Equal(t, []string{apiTestFact.Content}, todos.Items[0].SourceFacts)
	})

	t.Run("Should narrow a task-like deadline to the fact's time text", func(t *testing.T) {
		require.NotNil(t, todos.Items[1].Deadline)
		assert.Equal(t, "Friday morning", *todos.Items[1].Deadline)
	})

	t.Run("Should turn absence markers into null", func(t *testing.T) {
		assert.Nil(t, todos.Items[2].Deadline)
		assert.Equal(t, mt.PriorityMedium, todos.Items[2].Priority)
	})

	t.Run("Should pass the output validator", func(t *testing.T) {
		v := validation.NewOutputValidator(validation.Lexicon{}, validation.DefaultBounds()).Check(d, facts)
		assert.True(t, v.Accepted(), v.Feedback())
	})
}

func TestTodosGenerator_Relevant(t *testing.T) {
	g := &TodosGenerator{}
	assert.Empty(t, g.Relevant(mt.NewFactSet([]mt.Fact{deadlineFact})))
	assert.Len(t, g.Relevant(mt.NewFactSet([]mt.Fact{vendorFact, apiTestFact, deadlineFact})), 2)
}

func TestGenerator_RetryPrompt(t *testing.T) {
	facts := mt.NewFactSet([]mt.Fact{vendorFact, apiTestFact})
	fake := llm.NewFakeClient().ScriptJSON(GenerateWorker(mt.TaskActionPoints), map[string]any{
		"action_points": []map[string]any{{"description": "Finalize Acme as the payments vendor", "priority": "High", "source_facts": []string{vendorFact.Content}}},
	})
	g := &ActionPointsGenerator{LLM: fake, Bounds: validation.DefaultBounds()}
	prev := mt.ActionPointsDraft{Items: []mt.ActionPoint{{Description: "Vendor", Priority: mt.PriorityLow, SourceFacts: []string{"1"}}}}

	d, err := g.Generate(context.Background(), Request{Facts: facts, Previous: prev, Feedback: "- citation_format: use text", Attempt: 2})
	require.NoError(t, err)
	assert.Equal(t, mt.PriorityHigh, d.(mt.ActionPointsDraft).Items[0].Priority)

	calls := fake.CallsFor(GenerateWorker(mt.TaskActionPoints))
	require.Len(t, calls, 1)
	p := calls[0].Prompt
	assert.Contains(t, p, "[PREVIOUS_DRAFT]")
	assert.Contains(t, p, `"Vendor"`)
	assert.Contains(t, p, "Attempt 1 was rejected")
	assert.Contains(t, p, "- citation_format: use text")
	assert.Contains(t, p, "Return 1 to 4 action points.")

	in := calls[0].Input.(map[string]any)
	fv := in["facts"].([]factView)
	require.Len(t, fv, 2)
	assert.Equal(t, vendorFact.Content, fv[0].Content)
}

func TestGenerator_FirstAttemptHasNoFeedback(t *testing.T) {
	fake := llm.NewFakeClient()
	g := &ActionPointsGenerator{LLM: fake, Bounds: validation.DefaultBounds()}
	d, err := g.Generate(context.Background(), Request{Facts: mt.NewFactSet([]mt.Fact{vendorFact}), Attempt: 1})
	require.NoError(t, err)
	assert.Empty(t, d.(mt.ActionPointsDraft).Items, "a reply without action_points decodes to an empty draft")
	p := fake.Calls()[0].Prompt
	assert.NotContains(t, p, "PREVIOUS_DRAFT")
	assert.NotContains(t, p, "PREVIOUS_ATTEMPT_FEEDBACK")
}

func TestSummaryGenerator(t *testing.T) {
	facts := mt.NewFactSet([]mt.Fact{vendorFact})

	t.Run("Should strip labels and collapse whitespace", func(t *testing.T) {
		fake := llm.NewFakeClient().ScriptJSON(GenerateWorker(mt.TaskSummary), map[string]any{
			"summary": "Summary:  Acme was chosen\n as the payments vendor.", "source_facts": []string{vendorFact.Content, " " + vendorFact.Content},
		})
		d, err := (&SummaryGenerator{LLM: fake, Bounds: validation.DefaultBounds()}).Generate(context.Background(), Request{Facts: facts, Attempt: 1})
		require.NoError(t, err)
		s := d.(mt.SummaryDraft)
		assert.Equal(t, "Acme was chosen as the payments vendor.", s.Text)
		assert.Equal(t, []string{vendorFact.Content}, s.SourceFacts)
	})

	t.Run("Should accept a bare string reply", func(t *testing.T) {
		fake := llm.NewFakeClient().Script(GenerateWorker(mt.TaskSummary), llm.FakeReply{Raw: `"Acme was chosen."`})
		d, err := (&SummaryGenerator{LLM: fake, Bounds: validation.DefaultBounds()}).Generate(context.Background(), Request{Facts: facts, Attempt: 1})
		require.NoError(t, err)
		assert.Equal(t, "Acme was chosen.", d.(mt.SummaryDraft).Text)
	})

	t.Run("Should surface undecodable replies", func(t *testing.T) {
		fake := llm.NewFakeClient().Script(GenerateWorker(mt.TaskSummary), llm.FakeReply{Raw: `{"summary": `})
		_, err := (&SummaryGenerator{LLM: fake, Bounds: validation.DefaultBounds()}).Generate(context.Background(), Request{Facts: facts, Attempt: 1})
		assert.Error(t, err)
	})
}

func TestEmailGenerator(t *testing.T) {
	facts := mt.NewFactSet([]mt.Fact{vendorFact, apiTestFact})

	t.Run("Should decode a flat object and clean the body", func(t *testing.T) {
		fake := llm.NewFakeClient().ScriptJSON(GenerateWorker(mt.TaskEmail), map[string]any{
			"subject": "Subject: Payments vendor", "body": "Hi all,\r\n\n\n\n- Acme  is the vendor.\nBest regards,", "source_facts": []string{vendorFact.Content},
		})
		d, err := (&EmailGenerator{LLM: fake, Bounds: validation.DefaultBounds()}).Generate(context.Background(), Request{Facts: facts, Attempt: 1})
		require.NoError(t, err)
		e := d.(mt.EmailDraft).Email
		assert.Equal(t, "Payments vendor", e.Subject)
		assert.Equal(t, "Hi all,\n\n- Acme is the vendor.\nBest regards,", e.Body)
	})

	t.Run("Should decode the wrapped form", func(t *testing.T) {
		fake := llm.NewFakeClient().ScriptJSON(GenerateWorker(mt.TaskEmail), map[string]any{
			"email": map[string]any{"subject": "Vendor", "body": "Hi all,", "source_facts": []string{vendorFact.SourceQuote}},
		})
		d, err := (&EmailGenerator{LLM: fake, Bounds: validation.DefaultBounds()}).Generate(context.Background(), Request{Facts: facts, Attempt: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{vendorFact.SourceQuote}, d.(mt.EmailDraft).Citations())
	})
}

func TestNewGenerators_Order(t *testing.T) {
	gens := NewGenerators(llm.NewFakeClient(), validation.Lexicon{}, validation.DefaultBounds())
	require.Len(t, gens, len(mt.TaskKinds))
	for i, g := range gens {
		assert.Equal(t, mt.TaskKinds[i], g.Kind())
	}
}
