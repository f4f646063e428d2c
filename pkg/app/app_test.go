package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mikeboe/react-research/pkg/clients"
	"github.com/mikeboe/react-research/pkg/config"
	"github.com/mikeboe/react-research/pkg/research"
)

func TestDefaults(t *testing.T) {
	got := Defaults(&config.Config{DesiredWords: 900, IterationCap: 0, ResultCount: 8})
	want := research.Request{DesiredWords: 900, IterationCap: research.DefaultIterationCap, ResultCount: 8}
	if got != want {
		t.Errorf("Defaults() = %+v, want %+v", got, want)
	}
}

func TestNewEngineRequiresAPIKey(t *testing.T) {
	cfg := &config.Config{LLMProvider: "openai", Rag: &config.RagConfig{Backend: "memory"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewEngine(context.Background(), cfg, nil, logger)
	if !errors.Is(err, clients.ErrMissingAPIKey) {
		t.Errorf("NewEngine() error = %v, want ErrMissingAPIKey", err)
	}
}
