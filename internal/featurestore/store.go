// Package featurestore persists feature rows to SQLite so runs can be queried
// after the CSV has been written. Values are stored long-form, one row per
// (input row, column).
package featurestore

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/sensor.features/internal/features"
	"github.com/banshee-data/sensor.features/internal/timeutil"
)

// Store is a SQLite-backed feature store.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Run describes one featurization run.
type Run struct {
	RunID           string
	InputPath       string
	Version         string
	StartedAtNs     int64
	FinishedAtNs    *int64
	Rows            int
	ChannelFailures int
}

// Open opens (or creates) the database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	return OpenWithClock(path, timeutil.RealClock{})
}

// OpenWithClock is Open with an injected clock for run timestamps.
func OpenWithClock(path string, clock timeutil.Clock) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open feature store: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, clock: clock}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun records the start of a run and returns it with a fresh run id.
func (s *Store) BeginRun(inputPath, version string) (*Run, error) {
	run := &Run{
		RunID:       uuid.New().String(),
		InputPath:   inputPath,
		Version:     version,
		StartedAtNs: s.clock.Now().UnixNano(),
	}
	_, err := s.db.Exec(`
		INSERT INTO feature_runs (run_id, input_path, version, started_at_ns)
		VALUES (?, ?, ?, ?)
	`, run.RunID, run.InputPath, run.Version, run.StartedAtNs)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the completion time and counters of a run.
func (s *Store) FinishRun(runID string, rows, channelFailures int) error {
	res, err := s.db.Exec(`
		UPDATE feature_runs
		SET finished_at_ns = ?, row_count = ?, channel_failures = ?
		WHERE run_id = ?
	`, s.clock.Now().UnixNano(), rows, channelFailures, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(runID string) (*Run, error) {
	var run Run
	var finished sql.NullInt64
	err := s.db.QueryRow(`
		SELECT run_id, input_path, version, started_at_ns, finished_at_ns,
		       row_count, channel_failures
		FROM feature_runs
		WHERE run_id = ?
	`, runID).Scan(
		&run.RunID,
		&run.InputPath,
		&run.Version,
		&run.StartedAtNs,
		&finished,
		&run.Rows,
		&run.ChannelFailures,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if finished.Valid {
		v := finished.Int64
		run.FinishedAtNs = &v
	}
	return &run, nil
}

// WriteRow stores every column of one feature row in a single transaction.
func (s *Store) WriteRow(runID string, index int, row features.Row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin row %d: %w", index, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO feature_values (run_id, row_index, column_index, channel, feature, defined, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare row %d: %w", index, err)
	}
	defer stmt.Close()

	col := 0
	for _, cr := range row.Channels {
		for f, v := range cr.Vector {
			if _, err := stmt.Exec(runID, index, col, cr.Channel.String(), features.Feature(f).String(),
				v.OK, nullValue(v)); err != nil {
				return fmt.Errorf("insert row %d column %d: %w", index, col, err)
			}
			col++
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit row %d: %w", index, err)
	}
	return nil
}

// nullValue maps undefined and NaN values to NULL; SQLite has no NaN. The
// defined column keeps the two apart.
func nullValue(v features.Value) sql.NullFloat64 {
	if !v.OK || math.IsNaN(v.V) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v.V, Valid: true}
}

// RowValues reads a stored row back in header order.
func (s *Store) RowValues(runID string, index int) ([]features.Value, error) {
	rows, err := s.db.Query(`
		SELECT column_index, defined, value
		FROM feature_values
		WHERE run_id = ? AND row_index = ?
		ORDER BY column_index
	`, runID, index)
	if err != nil {
		return nil, fmt.Errorf("query row %d: %w", index, err)
	}
	defer rows.Close()

	out := make([]features.Value, 0, features.NumChannels*features.NumFeatures)
	for rows.Next() {
		var col int
		var defined bool
		var value sql.NullFloat64
		if err := rows.Scan(&col, &defined, &value); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", index, err)
		}
		switch {
		case !defined:
			out = append(out, features.Undefined)
		case !value.Valid:
			out = append(out, features.Defined(math.NaN()))
		default:
			out = append(out, features.Defined(value.Float64))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate row %d: %w", index, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("row %d not found in run %s", index, runID)
	}
	return out, nil
}

// ColumnSeries returns one feature for one channel across every stored row of
// a run, ordered by row index.
func (s *Store) ColumnSeries(runID string, c features.Channel, f features.Feature) ([]features.Value, error) {
	rows, err := s.db.Query(`
		SELECT defined, value
		FROM feature_values
		WHERE run_id = ? AND channel = ? AND feature = ?
		ORDER BY row_index
	`, runID, c.String(), f.String())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", features.ColumnName(c, f), err)
	}
	defer rows.Close()

	var out []features.Value
	for rows.Next() {
		var defined bool
		var value sql.NullFloat64
		if err := rows.Scan(&defined, &value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", features.ColumnName(c, f), err)
		}
		if !defined {
			out = append(out, features.Undefined)
			continue
		}
		if !value.Valid {
			out = append(out, features.Defined(math.NaN()))
			continue
		}
		out = append(out, features.Defined(value.Float64))
	}
	return out, rows.Err()
}

// RunSink adapts a Store to the pipeline's row sink for a single run.
type RunSink struct {
	store *Store
	runID string
}

// Sink returns a row sink that writes into runID.
func (s *Store) Sink(runID string) *RunSink {
	return &RunSink{store: s, runID: runID}
}

// WriteRow stores one row under the sink's run.
func (r *RunSink) WriteRow(index int, row features.Row) error {
	return r.store.WriteRow(r.runID, index, row)
}
