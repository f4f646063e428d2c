package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type llmCall struct {
	System  string
	User    string
	Options llms.CallOptions
}

// scriptedLLM answers reasoning and synthesis prompts through separate
// callbacks and records every call.
type scriptedLLM struct {
	mu      sync.Mutex
	calls   []llmCall
	reason  func(n int, user string) (string, error)
	synth   func(user string) (string, error)
	reasonN int
}

func (m *scriptedLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var call llmCall
	for _, opt := range options {
		opt(&call.Options)
	}
	for _, msg := range messages {
		var text string
		for _, p := range msg.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				text += tc.Text
			}
		}
		switch msg.Role {
		case llms.ChatMessageTypeSystem:
			call.System = text
		case llms.ChatMessageTypeHuman:
			call.User = text
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	isReasoning := strings.HasPrefix(call.System, reasoningSystemPrompt)
	n := m.reasonN
	if isReasoning {
		m.reasonN++
	}
	m.mu.Unlock()

	var out string
	var err error
	switch {
	case isReasoning && m.reason != nil:
		out, err = m.reason(n, call.User)
	case !isReasoning && m.synth != nil:
		out, err = m.synth(call.User)
	default:
		err = errors.New("no response scripted")
	}
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: out}}}, nil
}

func (m *scriptedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *scriptedLLM) Calls() []llmCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llmCall(nil), m.calls...)
}

// stubSearcher returns count numbered hits per query unless err is set.
type stubSearcher struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (s *stubSearcher) Search(_ context.Context, query string, count int) ([]RawHit, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	hits := make([]RawHit, count)
	for i := range hits {
		hits[i] = RawHit{
			Title:   fmt.Sprintf("%s result %d", query, i),
			Snippet: fmt.Sprintf("snippet %d about %s", i, query),
			Link:    fmt.Sprintf("https://example.com/%d", i),
		}
	}
	return hits, nil
}

func (s *stubSearcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// recordingStore summarizes an index as the joined texts of its records and
// remembers every build, query and release.
type recordingStore struct {
	mu       sync.Mutex
	builds   [][]EvidenceRecord
	queries  []string
	released int
	buildErr error
}

func (s *recordingStore) Build(_ context.Context, records []EvidenceRecord) (EvidenceIndex, error) {
	if s.buildErr != nil {
		return nil, s.buildErr
	}
	s.mu.Lock()
	s.builds = append(s.builds, append([]EvidenceRecord(nil), records...))
	s.mu.Unlock()
	return &recordingIndex{store: s, records: records}, nil
}

type recordingIndex struct {
	store   *recordingStore
	records []EvidenceRecord
}

func (i *recordingIndex) Query(_ context.Context, query string) (string, error) {
	i.store.mu.Lock()
	i.store.queries = append(i.store.queries, query)
	i.store.mu.Unlock()
	if len(i.records) == 0 {
		return "", nil
	}
	return strings.Join(EvidenceTexts(i.records), "\n\n"), nil
}

func (i *recordingIndex) Release(context.Context) error {
	i.store.mu.Lock()
	i.store.released++
	i.store.mu.Unlock()
	return nil
}
