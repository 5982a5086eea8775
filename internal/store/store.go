// Package store keeps a history of calibration runs in SQLite.
//
// Every run records the detection options it used, each measured sample, each
// frame that failed, and the fitted model when the fit succeeded. The most
// recent successful model can be read back to convert angles to defocus
// without refitting.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ironsheep/dhpsf-tools-mcp/internal/calibration"
	"github.com/ironsheep/dhpsf-tools-mcp/internal/detection"
)

// ErrRunNotFound is returned when no run matches a lookup.
var ErrRunNotFound = errors.New("calibration run not found")

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	created_at    TEXT NOT NULL,
	source        TEXT NOT NULL,
	options_json  TEXT NOT NULL,
	defocus_bound REAL NOT NULL,
	slope         REAL,
	intercept     REAL,
	min_defocus   REAL,
	max_defocus   REAL,
	r_squared     REAL,
	fit_error     TEXT
);

CREATE TABLE IF NOT EXISTS samples (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   TEXT NOT NULL,
	seq      INTEGER NOT NULL,
	defocus  REAL NOT NULL,
	angle    REAL NOT NULL,
	path     TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS failures (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   TEXT NOT NULL,
	defocus  REAL NOT NULL,
	path     TEXT NOT NULL,
	error    TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_samples_run ON samples(run_id, seq);
CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
`

// RunSample is one measured frame of a run.
type RunSample struct {
	Defocus float64 `json:"defocus"`
	Angle   float64 `json:"angle_degrees"`
	Path    string  `json:"path"`
}

// RunFailure is one frame of a run that could not be measured.
type RunFailure struct {
	Defocus float64 `json:"defocus"`
	Path    string  `json:"path"`
	Error   string  `json:"error"`
}

// Run is a stored calibration run.
type Run struct {
	ID           string             `json:"run_id"`
	CreatedAt    time.Time          `json:"created_at"`
	Source       string             `json:"source"`
	Options      detection.Options  `json:"options"`
	DefocusBound float64            `json:"defocus_bound"`
	Model        *calibration.Model `json:"model,omitempty"`
	RSquared     float64            `json:"r_squared,omitempty"`
	FitError     string             `json:"fit_error,omitempty"`
	Samples      []RunSample        `json:"samples"`
	Failures     []RunFailure       `json:"failures,omitempty"`
}

// RunSummary is the list view of a run.
type RunSummary struct {
	ID        string             `json:"run_id"`
	CreatedAt time.Time          `json:"created_at"`
	Source    string             `json:"source"`
	Samples   int                `json:"samples"`
	Failures  int                `json:"failures"`
	Model     *calibration.Model `json:"model,omitempty"`
	RSquared  float64            `json:"r_squared,omitempty"`
}

// NewRun builds a Run from a finished sweep. fit may be nil when fitErr explains why.
func NewRun(source string, opts detection.Options, bound float64, sweep *calibration.Sweep, fit *calibration.Fit, fitErr error) *Run {
	run := &Run{
		Source:       source,
		Options:      opts,
		DefocusBound: bound,
	}
	for _, r := range sweep.Results {
		run.Samples = append(run.Samples, RunSample{
			Defocus: r.Frame.Defocus,
			Angle:   r.Estimate.AngleDegrees,
			Path:    r.Frame.Path,
		})
	}
	for _, f := range sweep.Failures {
		run.Failures = append(run.Failures, RunFailure{
			Defocus: f.Frame.Defocus,
			Path:    f.Frame.Path,
			Error:   f.Err.Error(),
		})
	}
	if fit != nil {
		m := fit.Model
		run.Model = &m
		run.RSquared = fit.RSquared
	}
	if fitErr != nil {
		run.FitError = fitErr.Error()
	}
	return run
}

// Store manages calibration runs in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
//
// Pragmas go in the DSN so the driver applies them to every pooled
// connection, not just the first.
func NewStore(dbPath string) (*Store, error) {
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores run and returns its ID. An empty ID is filled with a new
// UUID and a zero CreatedAt with the current time.
func (s *Store) SaveRun(ctx context.Context, run *Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	optsJSON, err := json.Marshal(run.Options)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}

	var slope, intercept, minD, maxD, r2 sql.NullFloat64
	if run.Model != nil {
		slope = sql.NullFloat64{Float64: run.Model.Slope, Valid: true}
		intercept = sql.NullFloat64{Float64: run.Model.Intercept, Valid: true}
		minD = sql.NullFloat64{Float64: run.Model.MinDefocus, Valid: true}
		maxD = sql.NullFloat64{Float64: run.Model.MaxDefocus, Valid: true}
		r2 = sql.NullFloat64{Float64: run.RSquared, Valid: true}
	}
	fitErr := sql.NullString{String: run.FitError, Valid: run.FitError != ""}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, source, options_json, defocus_bound,
			slope, intercept, min_defocus, max_defocus, r_squared, fit_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(timeLayout), run.Source, string(optsJSON), run.DefocusBound,
		slope, intercept, minD, maxD, r2, fitErr,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for i, smp := range run.Samples {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO samples (run_id, seq, defocus, angle, path) VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, smp.Defocus, smp.Angle, smp.Path,
		)
		if err != nil {
			return "", fmt.Errorf("insert sample %d: %w", i, err)
		}
	}

	for _, f := range run.Failures {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO failures (run_id, defocus, path, error) VALUES (?, ?, ?, ?)`,
			run.ID, f.Defocus, f.Path, f.Error,
		)
		if err != nil {
			return "", fmt.Errorf("insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return run.ID, nil
}

// GetRun loads a run with its samples and failures.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, created_at, source, options_json, defocus_bound,
			slope, intercept, min_defocus, max_defocus, r_squared, fit_error
		 FROM runs WHERE run_id = ?`, id)

	var (
		run       Run
		createdAt string
		optsJSON  string
		slope     sql.NullFloat64
		intercept sql.NullFloat64
		minD      sql.NullFloat64
		maxD      sql.NullFloat64
		r2        sql.NullFloat64
		fitErr    sql.NullString
	)
	err := row.Scan(&run.ID, &createdAt, &run.Source, &optsJSON, &run.DefocusBound,
		&slope, &intercept, &minD, &maxD, &r2, &fitErr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at of run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(optsJSON), &run.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if slope.Valid {
		run.Model = &calibration.Model{
			Slope:      slope.Float64,
			Intercept:  intercept.Float64,
			MinDefocus: minD.Float64,
			MaxDefocus: maxD.Float64,
		}
		run.RSquared = r2.Float64
	}
	run.FitError = fitErr.String

	if run.Samples, err = s.samples(ctx, id); err != nil {
		return nil, err
	}
	if run.Failures, err = s.failures(ctx, id); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) samples(ctx context.Context, runID string) ([]RunSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT defocus, angle, path FROM samples WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []RunSample
	for rows.Next() {
		var smp RunSample
		if err := rows.Scan(&smp.Defocus, &smp.Angle, &smp.Path); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

func (s *Store) failures(ctx context.Context, runID string) ([]RunFailure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT defocus, path, error FROM failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var out []RunFailure
	for rows.Next() {
		var f RunFailure
		if err := rows.Scan(&f.Defocus, &f.Path, &f.Error); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.run_id, r.created_at, r.source, r.slope, r.intercept, r.min_defocus, r.max_defocus, r.r_squared,
			(SELECT COUNT(*) FROM samples s WHERE s.run_id = r.run_id),
			(SELECT COUNT(*) FROM failures f WHERE f.run_id = r.run_id)
		 FROM runs r
		 ORDER BY r.created_at DESC, r.rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			sum       RunSummary
			createdAt string
			slope     sql.NullFloat64
			intercept sql.NullFloat64
			minD      sql.NullFloat64
			maxD      sql.NullFloat64
			r2        sql.NullFloat64
		)
		if err := rows.Scan(&sum.ID, &createdAt, &sum.Source, &slope, &intercept, &minD, &maxD, &r2,
			&sum.Samples, &sum.Failures); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of run %s: %w", sum.ID, err)
		}
		if slope.Valid {
			sum.Model = &calibration.Model{
				Slope:      slope.Float64,
				Intercept:  intercept.Float64,
				MinDefocus: minD.Float64,
				MaxDefocus: maxD.Float64,
			}
			sum.RSquared = r2.Float64
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// LatestModel returns the model of the newest run whose fit succeeded, with that run's ID.
func (s *Store) LatestModel(ctx context.Context) (*calibration.Model, string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, slope, intercept, min_defocus, max_defocus
		 FROM runs WHERE slope IS NOT NULL
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`)

	var (
		id string
		m  calibration.Model
	)
	err := row.Scan(&id, &m.Slope, &m.Intercept, &m.MinDefocus, &m.MaxDefocus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("%w: no run with a fitted model", ErrRunNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("scan model: %w", err)
	}
	return &m, id, nil
}
