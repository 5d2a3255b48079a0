// Package orchestrator runs the fact-first pipeline as an explicit state
// machine: normalize, extract, validate, generate the four artifacts
// concurrently with bounded retries, then check compliance and assemble the
// result bundle.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"meetdistill/internal/llmclient"
	"meetdistill/internal/logger"
	"meetdistill/internal/normalize"
	pm "meetdistill/internal/pipeline/meeting"
	mt "meetdistill/internal/types/meeting"
	"meetdistill/internal/validation"
)

// CompliancePolicy decides what a failed compliance report does to the run.
type CompliancePolicy string

const (
	// PolicyAdvisory returns the bundle with the failing report inside it.
	PolicyAdvisory CompliancePolicy = "advisory"
	// PolicyFailClosed also returns ErrComplianceFailed.
	PolicyFailClosed CompliancePolicy = "fail_closed"
)

// Options is the immutable run configuration.
type Options struct {
	// RetryBudget is the total number of drafts per artifact.
	RetryBudget int
	// MaxConcurrency caps concurrent generator loops; 0 means no cap.
	MaxConcurrency int
	Strictness     validation.Strictness
	Lexicon        validation.Lexicon
	Bounds         validation.Bounds
	// Fillers overrides normalize.DefaultFillers when non-nil.
	Fillers    []string
	Compliance CompliancePolicy
}

func DefaultOptions() Options {
	return Options{
		RetryBudget: 3,
		Strictness:  validation.StrictnessBalanced,
		Bounds:      validation.DefaultBounds(),
		Compliance:  PolicyAdvisory,
	}
}

type Orchestrator struct {
	opts       Options
	normalizer *normalize.Normalizer
	extractor  *pm.Extractor
	facts      *validation.FactValidator
	output     *validation.OutputValidator
	compliance *validation.ComplianceChecker
	generators []pm.Generator
	now        func() time.Time
	newID      func() string
}

// New wires every stage to cli. Zero-valued options take their defaults.
func New(cli llmclient.LLMClient, opts Options) *Orchestrator {
	def := DefaultOptions()
	if opts.RetryBudget < 1 {
		opts.RetryBudget = def.RetryBudget
	}
	if opts.Strictness == "" {
		opts.Strictness = def.Strictness
	}
	if opts.Bounds == (validation.Bounds{}) {
		opts.Bounds = def.Bounds
	}
	if opts.Compliance == "" {
		opts.Compliance = def.Compliance
	}
	return &Orchestrator{
		opts:       opts,
		normalizer: normalize.New(opts.Fillers),
		extractor:  &pm.Extractor{LLM: cli},
		facts:      validation.NewFactValidator(opts.Lexicon, opts.Strictness),
		output:     validation.NewOutputValidator(opts.Lexicon, opts.Bounds),
		compliance: validation.NewComplianceChecker(opts.Lexicon),
		generators: pm.NewGenerators(cli, opts.Lexicon, opts.Bounds),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// run tracks the stage of one invocation.
type run struct {
	id    string
	state State
	log   logger.Logger
}

func (r *run) advance() {
	next, ok := r.state.Next()
	if !ok {
		panic(fmt.Sprintf("orchestrator: no transition out of %s", r.state))
	}
	r.log.Debug("state", "from", r.state, "to", next)
	r.state = next
}

func (r *run) fail(err error) error {
	r.log.Error("run failed", "state", r.state, "error", err)
	return &StageError{Stage: r.state, Err: err}
}

// Run executes the whole pipeline. On cancellation it returns a StageError
// wrapping ctx.Err() and no bundle. With PolicyFailClosed a failed
// compliance report returns the bundle together with ErrComplianceFailed.
func (o *Orchestrator) Run(ctx context.Context, transcript string) (*mt.ResultBundle, error) {
	started := o.now()
	r := &run{id: o.newID(), state: StateNormalizing}
	r.log = logger.FromContext(ctx).With("run_id", r.id)
	ctx = logger.ContextWithLogger(ctx, r.log)

	_, ext, rep, err := o.front(ctx, r, transcript)
	if err != nil {
		return nil, err
	}
	facts := mt.NewFactSet(rep.Accepted)

	r.advance() // generating
	tasks := o.generate(ctx, facts)
	if err := ctx.Err(); err != nil {
		return nil, r.fail(err)
	}

	r.advance() // compliance
	arts := acceptedArtifacts(tasks)
	report := o.compliance.Check(arts, facts)
	if !report.Passed {
		r.log.Warn("compliance failed", "issues", len(report.Issues), "policy", o.opts.Compliance)
	}

	r.advance() // done
	bundle := assemble(r.id, arts, ext, rep, tasks, report)
	bundle.Metadata.ProcessingStarted = started
	bundle.Metadata.ProcessingCompleted = o.now()
	r.log.Info("run complete",
		"facts_extracted", rep.Extracted,
		"facts_validated", rep.ValidatedCount(),
		"failed_artifacts", len(bundle.Metadata.FailedArtifacts),
		"compliance_passed", report.Passed)

	if !report.Passed && o.opts.Compliance == PolicyFailClosed {
		return bundle, fmt.Errorf("%w: %d issues", ErrComplianceFailed, len(report.Issues))
	}
	return bundle, nil
}

// FactsResult is the output of the fact-only front half of the pipeline.
type FactsResult struct {
	RunID      string
	Normalized string
	Extraction pm.Extraction
	Report     validation.FactReport
}

// ExtractFacts runs Normalize, Extract and Validate only.
func (o *Orchestrator) ExtractFacts(ctx context.Context, transcript string) (FactsResult, error) {
	r := &run{id: o.newID(), state: StateNormalizing}
	r.log = logger.FromContext(ctx).With("run_id", r.id)
	ctx = logger.ContextWithLogger(ctx, r.log)

	text, ext, rep, err := o.front(ctx, r, transcript)
	if err != nil {
		return FactsResult{}, err
	}
	return FactsResult{RunID: r.id, Normalized: text, Extraction: ext, Report: rep}, nil
}

// front runs Normalizing through Validating and leaves r in Validating.
func (o *Orchestrator) front(ctx context.Context, r *run, transcript string) (string, pm.Extraction, validation.FactReport, error) {
	var (
		ext pm.Extraction
		rep validation.FactReport
	)
	text, err := o.normalizer.Normalize(transcript)
	if err != nil {
		return "", ext, rep, r.fail(err)
	}

	r.advance() // extracting
	ext, err = o.extractor.Extract(ctx, text)
	if err != nil {
		return "", ext, rep, r.fail(err)
	}
	if ext.Unavailable() {
		return "", ext, rep, r.fail(fmt.Errorf("%w: %s", ErrCapabilityUnavailable, ext.SoftFailures[0].Reason))
	}

	r.advance() // validating
	rep = o.facts.Validate(text, ext.Candidates)
	for _, d := range rep.Discarded {
		r.log.Debug("fact discarded", "fact", d.FactID, "rule", d.Rule, "reason", d.Reason)
	}
	r.log.Info("facts validated", "extracted", rep.Extracted, "validated", rep.ValidatedCount(), "discarded", rep.DiscardedCount())
	if err := ctx.Err(); err != nil {
		return "", ext, rep, r.fail(err)
	}
	return text, ext, rep, nil
}

// generate runs every generator loop concurrently and returns once all of
// them are terminal or abandoned. Each goroutine owns exactly one task.
func (o *Orchestrator) generate(ctx context.Context, facts *mt.FactSet) []*mt.GenerationTask {
	tasks := make([]*mt.GenerationTask, len(o.generators))
	var g errgroup.Group
	if o.opts.MaxConcurrency > 0 {
		g.SetLimit(o.opts.MaxConcurrency)
	}
	for i, gen := range o.generators {
		task := &mt.GenerationTask{Kind: gen.Kind(), Status: mt.TaskPending}
		tasks[i] = task
		g.Go(func() error {
			o.runTask(ctx, gen, facts, task)
			return nil
		})
	}
	_ = g.Wait()
	return tasks
}

// runTask drives one Draft -> Check -> (Accepted | Retry -> Draft | FailedAfterBudget)
// loop. It returns early, leaving the task Pending, only when ctx is done.
func (o *Orchestrator) runTask(ctx context.Context, gen pm.Generator, facts *mt.FactSet, task *mt.GenerationTask) {
	log := logger.FromContext(ctx).With("task", task.Kind)
	if len(gen.Relevant(facts)) == 0 {
		task.Status = mt.TaskFailed
		task.LastFeedback = "no validated facts for " + string(task.Kind)
		log.Warn("task skipped", "reason", task.LastFeedback)
		return
	}

	var verdict validation.Verdict
	state := TaskDraft
	for !state.Terminal() {
		switch state {
		case TaskDraft:
			v, err := o.attempt(ctx, gen, facts, task)
			if err != nil {
				log.Debug("task abandoned", "attempt", task.Attempts, "error", err)
				return
			}
			verdict = v
			state = TaskCheck
		case TaskCheck:
			state = route(verdict.Accepted(), task.Attempts, o.opts.RetryBudget)
		case TaskRetry:
			task.RetryCount++
			state = TaskDraft
		}
	}

	if state == TaskAccepted {
		task.Status = mt.TaskAccepted
		log.Debug("task accepted", "attempts", task.Attempts)
		return
	}
	task.Status = mt.TaskFailed
	log.Warn("retry budget exhausted", "attempts", task.Attempts, "feedback", task.LastFeedback)
}

// attempt makes one draft and checks it. A generation error counts as a
// rejected draft; only cancellation is returned.
func (o *Orchestrator) attempt(ctx context.Context, gen pm.Generator, facts *mt.FactSet, task *mt.GenerationTask) (validation.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return validation.Verdict{}, err
	}
	task.Attempts++
	draft, err := gen.Generate(ctx, pm.Request{
		Facts:    facts,
		Previous: task.Draft,
		Feedback: task.LastFeedback,
		Attempt:  task.Attempts,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return validation.Verdict{}, ctxErr
		}
		v := validation.Verdict{Violations: []validation.Violation{{Rule: "generation_error", Detail: generationDetail(err)}}}
		task.LastFeedback = v.Feedback()
		logger.FromContext(ctx).Debug("generation attempt", "task", task.Kind, "attempt", task.Attempts, "error", err)
		return v, nil
	}
	v := o.output.Check(draft, facts)
	task.Draft = draft
	task.LastFeedback = v.Feedback()
	logger.FromContext(ctx).Debug("generation attempt", "task", task.Kind, "attempt", task.Attempts, "accepted", v.Accepted(), "feedback", task.LastFeedback)
	return v, nil
}

func generationDetail(err error) string {
	switch {
	case errors.Is(err, llmclient.ErrInvalidJSON):
		return "the response was not valid JSON in the requested shape: " + err.Error()
	default:
		return err.Error()
	}
}

func acceptedArtifacts(tasks []*mt.GenerationTask) validation.Artifacts {
	var a validation.Artifacts
	for _, t := range tasks {
		if t.Status != mt.TaskAccepted {
			continue
		}
		switch d := t.Draft.(type) {
		case mt.SummaryDraft:
			a.Summary = d
		case mt.ActionPointsDraft:
			a.ActionPoints = d
		case mt.TodosDraft:
			a.Todos = d
		case mt.EmailDraft:
			a.Email = d
		}
	}
	return a
}

func assemble(runID string, a validation.Artifacts, ext pm.Extraction, rep validation.FactReport, tasks []*mt.GenerationTask, report mt.ComplianceReport) *mt.ResultBundle {
	md := mt.Metadata{
		RunID:            runID,
		FactsExtracted:   rep.Extracted,
		FactsValidated:   rep.ValidatedCount(),
		FactsDiscarded:   rep.DiscardedCount(),
		DiscardReasons:   rep.Discarded,
		SoftFailures:     ext.SoftFailures,
		Tasks:            make(map[mt.TaskKind]mt.TaskOutcome, len(tasks)),
		CompliancePassed: report.Passed,
		ComplianceIssues: report.Issues,
	}
	for _, t := range tasks {
		out := mt.TaskOutcome{Status: t.Status, Attempts: t.Attempts, LastFeedback: t.LastFeedback}
		if t.Status == mt.TaskFailed {
			out.LastDraft = t.Draft
			md.FailedArtifacts = append(md.FailedArtifacts, t.Kind)
		}
		md.Tasks[t.Kind] = out
	}
	return &mt.ResultBundle{
		Summary:      a.Summary.Text,
		ActionPoints: a.ActionPoints.Items,
		Todos:        a.Todos.Items,
		Email:        a.Email.Email,
		Metadata:     md,
		Compliance:   report,
	}
}
