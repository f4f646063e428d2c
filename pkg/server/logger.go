package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// execer is satisfied by *pgxpool.Pool.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DBLogHandler is a slog.Handler that writes records to research_logs
type DBLogHandler struct {
	DB    execer
	JobID uuid.UUID
	Level slog.Leveler

	attrs []slog.Attr
}

func NewDBLogHandler(db execer, jobID uuid.UUID) *DBLogHandler {
	return &DBLogHandler{
		DB:    db,
		JobID: jobID,
		Level: slog.LevelDebug,
	}
}

func (h *DBLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	threshold := slog.LevelDebug
	if h.Level != nil {
		threshold = h.Level.Level()
	}
	return level >= threshold
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]interface{})
	for _, a := range h.attrs {
		addAttr(attrs, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(attrs, a)
		return true
	})

	metaJSON, err := json.Marshal(attrs)
	if err != nil {
		metaJSON = []byte("{}")
	}

	query := `
		INSERT INTO research_logs (job_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`

	// Logs persist even when the job context is cancelled.
	_, err = h.DB.Exec(context.WithoutCancel(ctx), query, h.JobID, r.Time, r.Level.String(), r.Message, metaJSON)
	return err
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &c
}

// WithGroup is not supported; grouped attributes are stored flat.
func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	return h
}

func addAttr(m map[string]interface{}, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		sub := make(map[string]interface{})
		for _, ga := range v.Group() {
			addAttr(sub, ga)
		}
		if a.Key == "" {
			for k, val := range sub {
				m[k] = val
			}
			return
		}
		m[a.Key] = sub
		return
	}
	if err, ok := v.Any().(error); ok {
		m[a.Key] = err.Error()
		return
	}
	m[a.Key] = v.Any()
}
