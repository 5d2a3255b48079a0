package meeting

// TaskKind tags the four generation variants.
type TaskKind string

const (
	TaskSummary      TaskKind = "summary"
	TaskActionPoints TaskKind = "action_points"
	TaskTodos        TaskKind = "todos"
	TaskEmail        TaskKind = "follow_up_email"
)

// TaskKinds lists every variant in bundle order.
var TaskKinds = []TaskKind{TaskSummary, TaskActionPoints, TaskTodos, TaskEmail}

// Draft is the closed sum of generator payloads. Only the four types in
// this package implement it; consumers switch on the concrete type.
type Draft interface {
	Kind() TaskKind
	// Citations returns every source_facts entry the draft carries, in order.
	Citations() []string
	isDraft()
}

type SummaryDraft struct {
	Text        string   `json:"summary"`
	SourceFacts []string `json:"source_facts,omitempty"`
}

type ActionPointsDraft struct {
	Items []ActionPoint `json:"action_points"`
}

type TodosDraft struct {
	Items []Todo `json:"todos"`
}

type EmailDraft struct {
	Email Email `json:"email"`
}

func (SummaryDraft) Kind() TaskKind      { return TaskSummary }
func (ActionPointsDraft) Kind() TaskKind { return TaskActionPoints }
func (TodosDraft) Kind() TaskKind        { return TaskTodos }
func (EmailDraft) Kind() TaskKind        { return TaskEmail }

func (SummaryDraft) isDraft()      {}
func (ActionPointsDraft) isDraft() {}
func (TodosDraft) isDraft()        {}
func (EmailDraft) isDraft()        {}

func (d SummaryDraft) Citations() []string {
	return append([]string(nil), d.SourceFacts...)
}

func (d ActionPointsDraft) Citations() []string {
	var out []string
	for _, it := range d.Items {
		out = append(out, it.SourceFacts...)
	}
	return out
}

func (d TodosDraft) Citations() []string {
	var out []string
	for _, it := range d.Items {
		out = append(out, it.SourceFacts...)
	}
	return out
}

func (d EmailDraft) Citations() []string {
	return append([]string(nil), d.Email.SourceFacts...)
}

// TaskStatus is the terminal-or-not state of one generation task.
type TaskStatus string

const (
	TaskPending  TaskStatus = "pending"
	TaskAccepted TaskStatus = "accepted"
	TaskFailed   TaskStatus = "failed"
)

// GenerationTask carries one artifact through its draft/check loop.
// Drafts reference facts by text only; facts are never owned by a task.
type GenerationTask struct {
	Kind         TaskKind   `json:"kind"`
	Draft        Draft      `json:"-"`
	Attempts     int        `json:"attempts"`
	RetryCount   int        `json:"retry_count"`
	LastFeedback string     `json:"last_feedback,omitempty"`
	Status       TaskStatus `json:"status"`
}
