package research

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
)

func newTestEngine(searcher Searcher, store EvidenceStore, llm *scriptedLLM) *ResearchEngine {
	return NewEngine(searcher, store, llm).WithLogger(discardLogger())
}

func alwaysContinue(n int, _ string) (string, error) {
	return fmt.Sprintf("Need more detail. Next query: follow-up %d", n), nil
}

func echoSynth(user string) (string, error) {
	return "CONTEXT: " + user, nil
}

func TestRunThreeRounds(t *testing.T) {
	searcher := &stubSearcher{}
	store := &recordingStore{}
	llm := &scriptedLLM{reason: alwaysContinue, synth: echoSynth}
	engine := newTestEngine(searcher, store, llm)

	s := engine.Run(context.Background(), Request{
		Topic:        "Climate Change Impact on Agriculture",
		UserInsights: "Focus on developing countries",
		DesiredWords: 500,
		IterationCap: 3,
	})

	if len(s.Rounds) != 3 {
		t.Fatalf("rounds = %d, want 3", len(s.Rounds))
	}
	if len(s.Evidence) != 15 {
		t.Errorf("evidence = %d, want 15", len(s.Evidence))
	}
	if s.Context == "" {
		t.Error("expected a non-empty context")
	}
	if s.Phase != PhaseDone || !s.Terminated {
		t.Errorf("phase = %v terminated = %v", s.Phase, s.Terminated)
	}

	wantQueries := []string{"Climate Change Impact on Agriculture Focus on developing countries", "follow-up 0", "follow-up 1"}
	got := searcher.Queries()
	if strings.Join(got, "|") != strings.Join(wantQueries, "|") {
		t.Errorf("search queries = %q, want %q", got, wantQueries)
	}
	for i, r := range s.Rounds {
		if r.Index != i || r.Query != wantQueries[i] || len(r.NewEvidence) != 5 {
			t.Errorf("round %d = index %d query %q evidence %d", i, r.Index, r.Query, len(r.NewEvidence))
		}
	}

	// three round indexes plus the final one
	if len(store.builds) != 4 {
		t.Fatalf("builds = %d, want 4", len(store.builds))
	}
	if store.released != 4 {
		t.Errorf("released = %d, want 4", store.released)
	}
	if n := len(store.builds[3]); n != 15 {
		t.Errorf("final index covers %d records, want 15", n)
	}
	if last := store.queries[len(store.queries)-1]; last != s.OriginalQuery {
		t.Errorf("final query = %q, want the original query %q", last, s.OriginalQuery)
	}

	calls := llm.Calls()
	synth := calls[len(calls)-1]
	if synth.Options.MaxTokens != 750 {
		t.Errorf("synthesis MaxTokens = %d, want 750", synth.Options.MaxTokens)
	}
}

func TestRunRespectsIterationCap(t *testing.T) {
	for limit := 1; limit <= 5; limit++ {
		t.Run(fmt.Sprintf("cap %d", limit), func(t *testing.T) {
			searcher := &stubSearcher{}
			llm := &scriptedLLM{reason: alwaysContinue, synth: echoSynth}
			engine := newTestEngine(searcher, &recordingStore{}, llm)

			s := engine.Run(context.Background(), Request{Topic: "t", IterationCap: limit, ResultCount: 2})

			if len(s.Rounds) != limit {
				t.Errorf("rounds = %d, want %d", len(s.Rounds), limit)
			}
			if len(searcher.Queries()) != limit {
				t.Errorf("searches = %d, want %d", len(searcher.Queries()), limit)
			}
			if len(s.Evidence) != 2*limit {
				t.Errorf("evidence = %d, want %d", len(s.Evidence), 2*limit)
			}
		})
	}
}

func TestRunStopsWhenReasoningTerminates(t *testing.T) {
	llm := &scriptedLLM{
		reason: func(n int, _ string) (string, error) {
			if n == 1 {
				return "That covers it, generate the final context now.", nil
			}
			return "Next query: deeper", nil
		},
		synth: echoSynth,
	}
	engine := newTestEngine(&stubSearcher{}, &recordingStore{}, llm)

	s := engine.Run(context.Background(), Request{Topic: "t", IterationCap: 5})

	if len(s.Rounds) != 2 {
		t.Fatalf("rounds = %d, want 2", len(s.Rounds))
	}
	if s.Rounds[0].Decision != ActionContinue || s.Rounds[1].Decision != ActionTerminate {
		t.Errorf("decisions = %v, %v", s.Rounds[0].Decision, s.Rounds[1].Decision)
	}
	if s.CurrentQuery != "deeper" {
		t.Errorf("CurrentQuery = %q, want deeper", s.CurrentQuery)
	}
}

func TestRunTerminatesOnMissingNextQuery(t *testing.T) {
	llm := &scriptedLLM{
		reason: func(int, string) (string, error) { return "I am not sure what to do.", nil },
		synth:  echoSynth,
	}
	engine := newTestEngine(&stubSearcher{}, &recordingStore{}, llm)

	s := engine.Run(context.Background(), Request{Topic: "t"})
	if len(s.Rounds) != 1 {
		t.Errorf("rounds = %d, want 1", len(s.Rounds))
	}
}

func TestRunSearchFailure(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("quota exceeded")}
	llm := &scriptedLLM{reason: alwaysContinue, synth: echoSynth}
	engine := newTestEngine(searcher, &recordingStore{}, llm)

	s := engine.Run(context.Background(), Request{Topic: "t"})

	if len(s.Rounds) != DefaultIterationCap {
		t.Errorf("rounds = %d, want %d", len(s.Rounds), DefaultIterationCap)
	}
	if len(s.Evidence) != 0 {
		t.Errorf("evidence = %d, want 0", len(s.Evidence))
	}
	for _, r := range s.Rounds {
		if r.Summary != "" {
			t.Errorf("round %d summary = %q, want empty", r.Index, r.Summary)
		}
	}
}

func TestRunBuildFailure(t *testing.T) {
	llm := &scriptedLLM{reason: alwaysContinue, synth: echoSynth}
	engine := newTestEngine(&stubSearcher{}, &recordingStore{buildErr: errors.New("embedding down")}, llm)

	s := engine.Run(context.Background(), Request{Topic: "t", IterationCap: 2})

	if len(s.Rounds) != 2 {
		t.Errorf("rounds = %d, want 2", len(s.Rounds))
	}
	if s.Context != "CONTEXT: "+"Using the following information, generate a context of around 500 words:\n\n" {
		t.Errorf("Context = %q", s.Context)
	}
}

func TestRunSynthesisFailure(t *testing.T) {
	llm := &scriptedLLM{
		reason: alwaysContinue,
		synth:  func(string) (string, error) { return "", errors.New("rate limited") },
	}
	engine := newTestEngine(&stubSearcher{}, &recordingStore{}, llm)

	if got := engine.Research(context.Background(), "t", "i", 300); got != "" {
		t.Errorf("Research() = %q, want empty", got)
	}
}

func TestRunKeepsOriginalQuery(t *testing.T) {
	llm := &scriptedLLM{reason: alwaysContinue, synth: echoSynth}
	engine := newTestEngine(&stubSearcher{}, &recordingStore{}, llm)

	var seen []string
	engine.OnStateUpdate = func(s Session) {
		seen = append(seen, s.OriginalQuery)
	}
	s := engine.Run(context.Background(), Request{Topic: "solar", UserInsights: "storage"})

	if len(seen) == 0 {
		t.Fatal("OnStateUpdate was never called")
	}
	for _, q := range seen {
		if q != "solar storage" {
			t.Fatalf("OriginalQuery changed to %q", q)
		}
	}
	if s.CurrentQuery == s.OriginalQuery {
		t.Error("CurrentQuery should have moved on from the original query")
	}
}

func TestRunCallbacks(t *testing.T) {
	llm := &scriptedLLM{reason: alwaysContinue, synth: echoSynth}
	engine := newTestEngine(&stubSearcher{}, &recordingStore{}, llm)

	var rounds []Round
	var phases []Phase
	engine.OnRound = func(r Round) { rounds = append(rounds, r) }
	engine.OnStateUpdate = func(s Session) { phases = append(phases, s.Phase) }

	s := engine.Run(context.Background(), Request{Topic: "t", IterationCap: 2})

	if len(rounds) != len(s.Rounds) {
		t.Errorf("OnRound called %d times, want %d", len(rounds), len(s.Rounds))
	}
	if phases[0] != PhaseInit {
		t.Errorf("first phase = %v, want init", phases[0])
	}
	if phases[len(phases)-1] != PhaseDone {
		t.Errorf("last phase = %v, want done", phases[len(phases)-1])
	}
}

func TestRunWithoutCollaborators(t *testing.T) {
	engine := (&ResearchEngine{}).WithLogger(discardLogger())

	s := engine.Run(context.Background(), Request{Topic: "t"})
	if len(s.Rounds) != 1 {
		t.Errorf("rounds = %d, want 1", len(s.Rounds))
	}
	if s.Context != "" {
		t.Errorf("Context = %q, want empty", s.Context)
	}
}

var topicPattern = regexp.MustCompile(`topic-\d+`)

func TestConcurrentSessionsAreIsolated(t *testing.T) {
	llm := &scriptedLLM{
		reason: func(_ int, user string) (string, error) {
			return "Next query: " + topicPattern.FindString(user) + " details", nil
		},
		synth: echoSynth,
	}
	engine := newTestEngine(&stubSearcher{}, &recordingStore{}, llm)

	const sessions = 8
	results := make([]*Session, sessions)
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.Run(context.Background(), Request{Topic: fmt.Sprintf("topic-%d", i)})
		}(i)
	}
	wg.Wait()

	for i, s := range results {
		topic := fmt.Sprintf("topic-%d", i)
		if len(s.Evidence) != DefaultIterationCap*DefaultResultCount {
			t.Errorf("session %d evidence = %d", i, len(s.Evidence))
		}
		for _, ev := range s.Evidence {
			if got := topicPattern.FindString(ev.Title); got != topic {
				t.Errorf("session %d holds evidence from %q", i, got)
			}
		}
		if !strings.Contains(s.Context, topic) {
			t.Errorf("session %d context does not mention %s", i, topic)
		}
	}
}
