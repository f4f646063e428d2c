package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/semaphore"

	"github.com/mikeboe/react-research/pkg/database"
	"github.com/mikeboe/react-research/pkg/research"
)

var (
	ErrEmptyTopic  = errors.New("topic is required")
	ErrJobNotFound = errors.New("job not found")
)

type Service struct {
	DB       *database.PostgresDB
	Engine   *research.ResearchEngine
	Defaults research.Request

	slots *semaphore.Weighted
}

// NewService runs at most maxConcurrent research jobs at a time; further jobs
// stay pending until a slot frees up.
func NewService(db *database.PostgresDB, engine *research.ResearchEngine, defaults research.Request, maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Service{
		DB:       db,
		Engine:   engine,
		Defaults: defaults.WithDefaults(),
		slots:    semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

type Job struct {
	ID           uuid.UUID       `json:"id"`
	Topic        string          `json:"topic"`
	UserInsights string          `json:"user_insights"`
	Status       string          `json:"status"`
	Context      *string         `json:"context,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Config       json.RawMessage `json:"config"`
	State        json.RawMessage `json:"state,omitempty"`
}

type CreateJobRequest struct {
	Topic        string `json:"topic"`
	UserInsights string `json:"user_insights"`
	DesiredWords int    `json:"desired_words"`
	IterationCap int    `json:"iteration_cap"`
	ResultCount  int    `json:"result_count"`
}

// Request merges the job request over the service defaults.
func (s *Service) Request(req CreateJobRequest) research.Request {
	r := research.Request{
		Topic:        req.Topic,
		UserInsights: req.UserInsights,
		DesiredWords: req.DesiredWords,
		IterationCap: req.IterationCap,
		ResultCount:  req.ResultCount,
	}
	if r.DesiredWords <= 0 {
		r.DesiredWords = s.Defaults.DesiredWords
	}
	if r.IterationCap <= 0 {
		r.IterationCap = s.Defaults.IterationCap
	}
	if r.ResultCount <= 0 {
		r.ResultCount = s.Defaults.ResultCount
	}
	return r.WithDefaults()
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, ErrEmptyTopic
	}
	r := s.Request(req)
	configJSON, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job config: %w", err)
	}

	jobID := uuid.New()
	query := `
		INSERT INTO research_jobs (id, topic, user_insights, status, config)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING id, topic, user_insights, status, created_at, updated_at, config
	`

	job := &Job{}
	err = s.DB.Pool.QueryRow(ctx, query, jobID, r.Topic, r.UserInsights, configJSON).Scan(
		&job.ID, &job.Topic, &job.UserInsights, &job.Status, &job.CreatedAt, &job.UpdatedAt, &job.Config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	// Start background worker
	go s.runWorker(job.ID, r)

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, topic, user_insights, status, context, created_at, updated_at, config, state
		FROM research_jobs
		WHERE id = $1
	`
	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Topic, &job.UserInsights, &job.Status, &job.Context, &job.CreatedAt, &job.UpdatedAt, &job.Config, &job.State,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, topic, user_insights, status, context, created_at, updated_at, config
		FROM research_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return collect(rows, scanJob, "jobs")
}

// collect reads every row with scan. Scan and iteration errors fail the whole read.
func collect[T any](rows pgx.Rows, scan pgx.RowToFunc[T], what string) ([]T, error) {
	items, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", what, err)
	}
	return items, nil
}

func scanJob(row pgx.CollectableRow) (Job, error) {
	var job Job
	err := row.Scan(&job.ID, &job.Topic, &job.UserInsights, &job.Status, &job.Context, &job.CreatedAt, &job.UpdatedAt, &job.Config)
	return job, err
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}

	return collect(rows, scanLogEntry, "logs")
}

func scanLogEntry(row pgx.CollectableRow) (LogEntry, error) {
	var l LogEntry
	err := row.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata)
	return l, err
}

// RoundEntry is the persisted form of one research round.
type RoundEntry struct {
	Index           int             `json:"index"`
	Query           string          `json:"query"`
	Evidence        json.RawMessage `json:"evidence"`
	Summary         string          `json:"summary"`
	ReasoningOutput string          `json:"reasoning_output"`
	Decision        string          `json:"decision"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (s *Service) GetJobRounds(ctx context.Context, jobID uuid.UUID) ([]RoundEntry, error) {
	query := `
		SELECT round_index, query, evidence, summary, reasoning_output, decision, created_at
		FROM research_rounds
		WHERE job_id = $1
		ORDER BY round_index ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rounds: %w", err)
	}

	return collect(rows, scanRound, "rounds")
}

func scanRound(row pgx.CollectableRow) (RoundEntry, error) {
	var r RoundEntry
	err := row.Scan(&r.Index, &r.Query, &r.Evidence, &r.Summary, &r.ReasoningOutput, &r.Decision, &r.CreatedAt)
	return r, err
}

func (s *Service) runWorker(jobID uuid.UUID, req research.Request) {
	ctx := context.Background()

	if err := s.slots.Acquire(ctx, 1); err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Failed to schedule job: %v", err))
		return
	}
	defer s.slots.Release(1)

	// Update status to running
	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'running', updated_at = NOW() WHERE id = $1", jobID)

	dbLogger := slog.New(NewDBLogHandler(s.DB.Pool, jobID))
	engine := s.Engine.WithLogger(dbLogger)

	engine.OnRound = func(round research.Round) {
		if err := s.saveRound(ctx, jobID, round); err != nil {
			dbLogger.Error("Failed to save round to DB", "round", round.Index, "error", err)
		}
	}

	// Hook for state persistence
	engine.OnStateUpdate = func(state research.Session) {
		stateJSON, err := json.Marshal(state)
		if err != nil {
			dbLogger.Error("Failed to marshal state", "error", err)
			return
		}

		_, err = s.DB.Pool.Exec(ctx,
			"UPDATE research_jobs SET state = $2, updated_at = NOW() WHERE id = $1",
			jobID, stateJSON)

		if err != nil {
			dbLogger.Error("Failed to save state to DB", "error", err)
		}
	}

	session := engine.Run(ctx, req)
	if session.Context == "" {
		s.failJob(ctx, jobID, "Research produced no context")
		return
	}

	_, err := s.DB.Pool.Exec(ctx,
		"UPDATE research_jobs SET status = 'completed', context = $2, updated_at = NOW() WHERE id = $1",
		jobID, session.Context)

	if err != nil {
		dbLogger.Error("Failed to save final context to DB", "error", err)
	}
}

func (s *Service) saveRound(ctx context.Context, jobID uuid.UUID, round research.Round) error {
	evidenceJSON, err := json.Marshal(round.NewEvidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	_, err = s.DB.Pool.Exec(ctx, `
		INSERT INTO research_rounds (job_id, round_index, query, evidence, summary, reasoning_output, decision)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_id, round_index) DO NOTHING
	`, jobID, round.Index, round.Query, evidenceJSON, round.Summary, round.ReasoningOutput, round.Decision.String())
	return err
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	// Log the failure
	dbLogger := slog.New(NewDBLogHandler(s.DB.Pool, jobID))
	dbLogger.Error(reason)

	// Update status
	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'failed', updated_at = NOW() WHERE id = $1", jobID)
}
