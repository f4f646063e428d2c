package research

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
)

type ResearchEngine struct {
	Searcher      Searcher
	Store         EvidenceStore
	Oracle        *Oracle
	Synthesizer   *Synthesizer
	Logger        *slog.Logger
	OnRound       func(round Round)
	OnStateUpdate func(state Session)
}

// NewEngine wires an engine whose oracle and synthesizer share one model.
func NewEngine(searcher Searcher, store EvidenceStore, llm llms.Model) *ResearchEngine {
	return &ResearchEngine{
		Searcher:    searcher,
		Store:       store,
		Oracle:      NewOracle(llm),
		Synthesizer: NewSynthesizer(llm),
		Logger:      slog.Default(),
	}
}

// WithLogger returns a copy of the engine that logs to logger, including from
// its oracle and synthesizer. The receiver is left untouched.
func (e *ResearchEngine) WithLogger(logger *slog.Logger) *ResearchEngine {
	c := *e
	c.Logger = logger
	if e.Oracle != nil {
		o := *e.Oracle
		o.Logger = logger
		c.Oracle = &o
	}
	if e.Synthesizer != nil {
		s := *e.Synthesizer
		s.Logger = logger
		c.Synthesizer = &s
	}
	return &c
}

// Research runs the loop with the default iteration cap and result count and
// returns the synthesized context. The result is empty when no context could
// be produced.
func (e *ResearchEngine) Research(ctx context.Context, topic, userInsights string, desiredWords int) string {
	return e.Run(ctx, Request{
		Topic:        topic,
		UserInsights: userInsights,
		DesiredWords: desiredWords,
	}).Context
}

// Run executes one research session. Collaborator failures degrade to empty
// values, so Run always returns a finished session.
func (e *ResearchEngine) Run(ctx context.Context, req Request) *Session {
	req = req.WithDefaults()

	s := &Session{
		OriginalQuery: req.OriginalQuery(),
		Evidence:      []EvidenceRecord{},
		Phase:         PhaseInit,
	}
	s.CurrentQuery = s.OriginalQuery

	e.logger().Info("Starting research loop",
		"query", s.OriginalQuery, "iteration_cap", req.IterationCap, "result_count", req.ResultCount)
	e.notify(s)

	for !s.Terminated {
		round, decision := e.runRound(ctx, s, req.ResultCount)
		s.Rounds = append(s.Rounds, round)
		if e.OnRound != nil {
			e.OnRound(round)
		}

		if decision.Action == ActionTerminate {
			e.logger().Info("Reasoning chose to generate the final context", "round", s.RoundIndex)
			s.Terminated = true
		} else if s.RoundIndex+1 >= req.IterationCap {
			e.logger().Info("Iteration cap reached", "round", s.RoundIndex, "cap", req.IterationCap)
			s.Terminated = true
		} else {
			e.logger().Info("Adjusting query", "round", s.RoundIndex, "next_query", decision.NextQuery)
			s.CurrentQuery = decision.NextQuery
			s.RoundIndex++
		}
		e.notify(s)
	}

	s.Phase = PhaseSynthesizing
	e.notify(s)
	e.logger().Info("Compiling final context", "evidence", len(s.Evidence), "words", req.DesiredWords)

	summary := e.retrieve(ctx, s.Evidence, s.OriginalQuery)
	s.Context = e.synthesizer().Synthesize(ctx, summary, req.DesiredWords)

	s.Phase = PhaseDone
	e.notify(s)
	e.logger().Info("Research complete", "rounds", len(s.Rounds), "context_length", len(s.Context))
	return s
}

func (e *ResearchEngine) runRound(ctx context.Context, s *Session, resultCount int) (Round, Decision) {
	log := e.logger().With("round", s.RoundIndex)

	s.Phase = PhaseSearching
	log.Info("Searching", "query", s.CurrentQuery)
	var hits []RawHit
	if e.Searcher != nil {
		var err error
		hits, err = e.Searcher.Search(ctx, s.CurrentQuery, resultCount)
		if err != nil {
			log.Error("Error during search", "query", s.CurrentQuery, "error", err)
			hits = nil
		}
	}

	s.Phase = PhaseExtracting
	evidence := Extract(hits)
	s.Evidence = append(s.Evidence, evidence...)
	log.Info("Extracted evidence", "new", len(evidence), "total", len(s.Evidence))

	s.Phase = PhaseIndexingRound
	summary := e.retrieve(ctx, evidence, s.CurrentQuery)

	s.Phase = PhaseReasoning
	decision := e.oracle().Decide(ctx, summary)
	log.Debug("Reasoning output", "output", decision.Raw, "decision", decision.Action.String())

	return Round{
		Index:           s.RoundIndex,
		Query:           s.CurrentQuery,
		NewEvidence:     evidence,
		Summary:         summary,
		ReasoningOutput: decision.Raw,
		Decision:        decision.Action,
	}, decision
}

// retrieve builds a fresh index over records, queries it and discards it.
func (e *ResearchEngine) retrieve(ctx context.Context, records []EvidenceRecord, query string) string {
	if e.Store == nil {
		return ""
	}
	idx, err := e.Store.Build(ctx, records)
	if err != nil {
		e.logger().Error("Failed to build evidence index", "records", len(records), "error", err)
		return ""
	}
	defer func() {
		if err := idx.Release(ctx); err != nil {
			e.logger().Warn("Failed to release evidence index", "error", err)
		}
	}()

	summary, err := idx.Query(ctx, query)
	if err != nil {
		e.logger().Error("Failed to query evidence index", "query", query, "error", err)
		return ""
	}
	return summary
}

func (e *ResearchEngine) notify(s *Session) {
	if e.OnStateUpdate != nil {
		e.OnStateUpdate(*s)
	}
}

func (e *ResearchEngine) oracle() *Oracle {
	if e.Oracle == nil {
		return &Oracle{Logger: e.logger()}
	}
	return e.Oracle
}

func (e *ResearchEngine) synthesizer() *Synthesizer {
	if e.Synthesizer == nil {
		return &Synthesizer{Logger: e.logger()}
	}
	return e.Synthesizer
}

func (e *ResearchEngine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
