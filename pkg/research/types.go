package research

import (
	"context"
	"strings"
)

const (
	DefaultIterationCap = 3
	DefaultResultCount  = 5
	DefaultDesiredWords = 500
)

// RawHit is a single search result as returned by a Searcher. Absent fields are
// left as empty strings.
type RawHit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// EvidenceRecord is the normalized form of one search hit. Text is the
// canonical representation used for indexing.
type EvidenceRecord struct {
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
	SourceURL string `json:"source_url"`
	Text      string `json:"text"`
}

// Searcher issues a web search and returns up to count hits.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]RawHit, error)
}

// EvidenceStore builds a queryable index over a set of evidence records.
// Every call to Build produces an independent index.
type EvidenceStore interface {
	Build(ctx context.Context, records []EvidenceRecord) (EvidenceIndex, error)
}

// EvidenceIndex answers a query with a natural-language summary of the most
// relevant indexed evidence.
type EvidenceIndex interface {
	Query(ctx context.Context, query string) (string, error)
	Release(ctx context.Context) error
}

// Action is the decision taken after a round of reasoning.
type Action int

const (
	ActionTerminate Action = iota
	ActionContinue
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Decision is the parsed output of the reasoning oracle. NextQuery is only set
// when Action is ActionContinue.
type Decision struct {
	Action    Action
	NextQuery string
	Raw       string
}

// Phase is the orchestrator state.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseSearching
	PhaseExtracting
	PhaseIndexingRound
	PhaseReasoning
	PhaseSynthesizing
	PhaseDone
)

var phaseNames = [...]string{
	PhaseInit:          "init",
	PhaseSearching:     "searching",
	PhaseExtracting:    "extracting",
	PhaseIndexingRound: "indexing_round",
	PhaseReasoning:     "reasoning",
	PhaseSynthesizing:  "synthesizing",
	PhaseDone:          "done",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Request holds the inputs of one research invocation.
type Request struct {
	Topic        string `json:"topic"`
	UserInsights string `json:"user_insights"`
	DesiredWords int    `json:"desired_words"`
	IterationCap int    `json:"iteration_cap"`
	ResultCount  int    `json:"result_count"`
}

// WithDefaults fills zero or negative numeric fields with their defaults.
func (r Request) WithDefaults() Request {
	if r.DesiredWords <= 0 {
		r.DesiredWords = DefaultDesiredWords
	}
	if r.IterationCap <= 0 {
		r.IterationCap = DefaultIterationCap
	}
	if r.ResultCount <= 0 {
		r.ResultCount = DefaultResultCount
	}
	return r
}

// OriginalQuery is the query the session starts from and synthesizes against.
func (r Request) OriginalQuery() string {
	return r.Topic + " " + r.UserInsights
}

// Round records one search, extract, index and reason pass.
type Round struct {
	Index           int              `json:"index"`
	Query           string           `json:"query"`
	NewEvidence     []EvidenceRecord `json:"new_evidence"`
	Summary         string           `json:"summary"`
	ReasoningOutput string           `json:"reasoning_output"`
	Decision        Action           `json:"decision"`
}

// Session is the state of a single Run. It is owned by that call and is not
// shared with other invocations.
type Session struct {
	OriginalQuery string           `json:"original_query"`
	CurrentQuery  string           `json:"current_query"`
	Evidence      []EvidenceRecord `json:"evidence"`
	Rounds        []Round          `json:"rounds"`
	RoundIndex    int              `json:"round_index"`
	Terminated    bool             `json:"terminated"`
	Phase         Phase            `json:"phase"`
	Context       string           `json:"context"`
}

// EvidenceTexts returns the canonical text of every record, in order.
func EvidenceTexts(records []EvidenceRecord) []string {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	return texts
}

func joinEvidence(title, snippet, link string) string {
	return strings.Join([]string{title, snippet, link}, "\n")
}
