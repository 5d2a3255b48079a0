package meeting

import (
	"encoding/json"
	"time"
)

// ComplianceIssue is one cross-artifact policy violation.
type ComplianceIssue struct {
	Artifact TaskKind `json:"artifact"`
	Rule     string   `json:"rule"`
	Detail   string   `json:"detail"`
}

// ComplianceReport is the pass/fail outcome of the final policy pass.
type ComplianceReport struct {
	Passed bool              `json:"passed"`
	Issues []ComplianceIssue `json:"issues"`
}

// TaskOutcome is the per-artifact marker kept in metadata so a Failed
// slot is visible even when its draft is empty. A failed task's last draft
// lives here, never in the artifact slot, so bundle citations stay valid.
type TaskOutcome struct {
	Status       TaskStatus `json:"status"`
	Attempts     int        `json:"attempts"`
	LastFeedback string     `json:"last_feedback,omitempty"`
	LastDraft    Draft      `json:"last_draft,omitempty"`
}

// Metadata holds the run counts and every degraded-path marker.
type Metadata struct {
	RunID               string                   `json:"run_id"`
	FactsExtracted      int                      `json:"total_facts_extracted"`
	FactsValidated      int                      `json:"total_facts_validated"`
	FactsDiscarded      int                      `json:"facts_discarded"`
	DiscardReasons      []DiscardRecord          `json:"discard_reasons"`
	SoftFailures        []SoftFailure            `json:"soft_failures"`
	Tasks               map[TaskKind]TaskOutcome `json:"tasks"`
	FailedArtifacts     []TaskKind               `json:"failed_artifacts"`
	CompliancePassed    bool                     `json:"compliance_passed"`
	ComplianceIssues    []ComplianceIssue        `json:"compliance_issues"`
	ProcessingStarted   time.Time                `json:"processing_started"`
	ProcessingCompleted time.Time                `json:"processing_completed"`
}

// ResultBundle is the single output of a pipeline run.
type ResultBundle struct {
	Summary      string
	ActionPoints []ActionPoint
	Todos        []Todo
	Email        Email
	Metadata     Metadata
	Compliance   ComplianceReport
}

type bundleWire struct {
	Summary        string           `json:"summary"`
	ActionPoints   []ActionPoint    `json:"action_points"`
	Todos          []Todo           `json:"todos"`
	FollowUpEmails []Email          `json:"follow_up_emails"`
	Metadata       Metadata         `json:"metadata"`
	Compliance     ComplianceReport `json:"compliance"`
}

// MarshalJSON writes the external result format. Slices are always
// arrays, never null, and an undrafted email becomes an empty list.
func (b ResultBundle) MarshalJSON() ([]byte, error) {
	w := bundleWire{
		Summary:        b.Summary,
		ActionPoints:   nonNil(b.ActionPoints),
		Todos:          nonNil(b.Todos),
		FollowUpEmails: []Email{},
		Metadata:       b.Metadata,
		Compliance:     b.Compliance,
	}
	for i := range w.ActionPoints {
		w.ActionPoints[i].SourceFacts = nonNil(w.ActionPoints[i].SourceFacts)
	}
	for i := range w.Todos {
		w.Todos[i].SourceFacts = nonNil(w.Todos[i].SourceFacts)
	}
	if !b.Email.IsZero() {
		e := b.Email
		e.SourceFacts = nonNil(e.SourceFacts)
		w.FollowUpEmails = append(w.FollowUpEmails, e)
	}
	w.Metadata.DiscardReasons = nonNil(w.Metadata.DiscardReasons)
	w.Metadata.SoftFailures = nonNil(w.Metadata.SoftFailures)
	w.Metadata.FailedArtifacts = nonNil(w.Metadata.FailedArtifacts)
	w.Metadata.ComplianceIssues = nonNil(w.Metadata.ComplianceIssues)
	w.Compliance.Issues = nonNil(w.Compliance.Issues)
	return json.Marshal(w)
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
