package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/mgasm/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Run history ---

// CreateRun inserts a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", run.ID)

	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	resultsJSON, manifestJSON, err := marshalOutcome(run)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, state, params, output_dir, results, manifest, error, created_at, updated_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.State), string(paramsJSON), run.OutputDir,
		resultsJSON, manifestJSON, run.Error,
		run.CreatedAt.Format(time.RFC3339Nano), run.UpdatedAt.Format(time.RFC3339Nano),
		formatTimePtr(run.CompletedAt),
	)
	return err
}

// UpdateRun stores the mutable fields of run: state, outcome, error and
// timestamps.
func (s *SQLiteStore) UpdateRun(ctx context.Context, run *model.Run) error {
	s.logger.Debug("sql", "op", "update", "table", "runs", "id", run.ID, "state", run.State)

	resultsJSON, manifestJSON, err := marshalOutcome(run)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state=?, results=?, manifest=?, error=?, updated_at=?, completed_at=? WHERE id=?`,
		string(run.State), resultsJSON, manifestJSON, run.Error,
		run.UpdatedAt.Format(time.RFC3339Nano), formatTimePtr(run.CompletedAt), run.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

// GetRun returns the run with its steps, or nil if there is no such run.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT id, state, params, output_dir, results, manifest, error, created_at, updated_at, completed_at
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	steps, err := s.ListSteps(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}
	run.Steps = steps
	return run, nil
}

// ListRuns returns one page of runs, newest first, and the total number of
// runs matching opts. Steps are not loaded.
func (s *SQLiteStore) ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "runs", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	whereSQL := ""
	var countArgs []any
	if opts.State != "" {
		whereSQL = " WHERE state = ?"
		countArgs = append(countArgs, string(opts.State))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT id, state, params, output_dir, results, manifest, error, created_at, updated_at, completed_at
		FROM runs` + whereSQL + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

// --- Step history ---

// AddStep appends a step record to its run.
func (s *SQLiteStore) AddStep(ctx context.Context, step *model.StepRecord) error {
	s.logger.Debug("sql", "op", "insert", "table", "steps", "run_id", step.RunID, "step", step.Step)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO steps (run_id, seq, step, command, version, exit_code, duration_ns, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		step.RunID, step.Seq, step.Step, step.Command, step.Version, step.ExitCode,
		int64(step.Duration), step.At.Format(time.RFC3339Nano),
	)
	return err
}

// ListSteps returns the steps of a run in execution order.
func (s *SQLiteStore) ListSteps(ctx context.Context, runID string) ([]model.StepRecord, error) {
	s.logger.Debug("sql", "op", "list", "table", "steps", "run_id", runID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, seq, step, command, version, exit_code, duration_ns, at
		 FROM steps WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []model.StepRecord
	for rows.Next() {
		var st model.StepRecord
		var duration int64
		var at string
		if err := rows.Scan(&st.RunID, &st.Seq, &st.Step, &st.Command, &st.Version,
			&st.ExitCode, &duration, &at); err != nil {
			return nil, err
		}
		st.Duration = time.Duration(duration)
		st.At, _ = time.Parse(time.RFC3339Nano, at)
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// --- Object catalog ---

// CreateObject registers a stored object.
func (s *SQLiteStore) CreateObject(ctx context.Context, obj *model.StoredObject) error {
	s.logger.Debug("sql", "op", "insert", "table", "objects", "ref", obj.Ref)

	metaJSON, err := json.Marshal(obj.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO objects (ref, kind, name, workspace, path, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		obj.Ref, obj.Kind, obj.Name, obj.Workspace, obj.Path, string(metaJSON),
		obj.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetObject returns the object with the given ref, or nil if there is none.
func (s *SQLiteStore) GetObject(ctx context.Context, ref string) (*model.StoredObject, error) {
	s.logger.Debug("sql", "op", "select", "table", "objects", "ref", ref)

	row := s.db.QueryRowContext(ctx,
		`SELECT ref, kind, name, workspace, path, metadata, created_at FROM objects WHERE ref = ?`, ref)
	obj, err := scanObject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return obj, err
}

// ListObjects returns the objects of one kind, or of every kind when kind is
// empty, oldest first.
func (s *SQLiteStore) ListObjects(ctx context.Context, kind string) ([]*model.StoredObject, error) {
	s.logger.Debug("sql", "op", "list", "table", "objects", "kind", kind)

	query := `SELECT ref, kind, name, workspace, path, metadata, created_at FROM objects`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at, ref`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objs []*model.StoredObject
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, rows.Err()
}

// --- helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.Run, error) {
	var run model.Run
	var state, paramsJSON, resultsJSON, manifestJSON string
	var createdAt, updatedAt string
	var completedAt *string

	if err := sc.Scan(&run.ID, &state, &paramsJSON, &run.OutputDir, &resultsJSON, &manifestJSON,
		&run.Error, &createdAt, &updatedAt, &completedAt); err != nil {
		return nil, err
	}

	run.State = model.RunState(state)
	if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if err := json.Unmarshal([]byte(resultsJSON), &run.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	if err := json.Unmarshal([]byte(manifestJSON), &run.Manifest); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if completedAt != nil {
		t, _ := time.Parse(time.RFC3339Nano, *completedAt)
		run.CompletedAt = &t
	}
	return &run, nil
}

func scanObject(sc scanner) (*model.StoredObject, error) {
	var obj model.StoredObject
	var metaJSON, createdAt string
	if err := sc.Scan(&obj.Ref, &obj.Kind, &obj.Name, &obj.Workspace, &obj.Path, &metaJSON, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metaJSON), &obj.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	obj.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &obj, nil
}

// marshalOutcome encodes the results and manifest of run; absent values
// are stored as JSON null.
func marshalOutcome(run *model.Run) (string, string, error) {
	resultsJSON, err := json.Marshal(run.Results)
	if err != nil {
		return "", "", fmt.Errorf("marshal results: %w", err)
	}
	manifestJSON, err := json.Marshal(run.Manifest)
	if err != nil {
		return "", "", fmt.Errorf("marshal manifest: %w", err)
	}
	return string(resultsJSON), string(manifestJSON), nil
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}
