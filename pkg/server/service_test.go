package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows replays fixed values and can fail on scan or after iteration.
type fakeRows struct {
	values  [][]any
	scanErr error
	iterErr error
	pos     int
	closed  bool
}

func (r *fakeRows) Close() { r.closed = true }

func (r *fakeRows) Err() error { return r.iterErr }

func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *fakeRows) RawValues() [][]byte { return nil }

func (r *fakeRows) Conn() *pgx.Conn { return nil }

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.values[r.pos-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.values[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, v := range row {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func roundRow(index int, query string) []any {
	return []any{index, query, json.RawMessage(`[]`), "summary", "reasoning", "search", time.Unix(0, 0)}
}

func TestCollectRounds(t *testing.T) {
	iterErr := errors.New("connection reset")
	scanErr := errors.New("bad column")

	tests := []struct {
		name        string
		rows        *fakeRows
		wantQueries []string
		wantErr     error
	}{
		{
			name:        "all rows",
			rows:        &fakeRows{values: [][]any{roundRow(1, "a"), roundRow(2, "b")}},
			wantQueries: []string{"a", "b"},
		},
		{
			name:    "iteration error after rows",
			rows:    &fakeRows{values: [][]any{roundRow(1, "a")}, iterErr: iterErr},
			wantErr: iterErr,
		},
		{
			name:    "scan error",
			rows:    &fakeRows{values: [][]any{roundRow(1, "a")}, scanErr: scanErr},
			wantErr: scanErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collect(tt.rows, scanRound, "rounds")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("collect() error = %v, want %v", err, tt.wantErr)
			}
			if !tt.rows.closed {
				t.Error("rows were not closed")
			}
			if tt.wantErr != nil {
				if got != nil {
					t.Errorf("collect() = %v, want nil on error", got)
				}
				return
			}
			var queries []string
			for _, r := range got {
				queries = append(queries, r.Query)
			}
			if !reflect.DeepEqual(queries, tt.wantQueries) {
				t.Errorf("queries = %v, want %v", queries, tt.wantQueries)
			}
		})
	}
}

func TestCollectLogsReportsIterationError(t *testing.T) {
	iterErr := errors.New("canceled")
	rows := &fakeRows{
		values:  [][]any{{1, time.Unix(0, 0), "INFO", "started", json.RawMessage(`{}`)}},
		iterErr: iterErr,
	}
	if _, err := collect(rows, scanLogEntry, "logs"); !errors.Is(err, iterErr) {
		t.Errorf("collect() error = %v, want %v", err, iterErr)
	}
}
