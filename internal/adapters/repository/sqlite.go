package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/pkg/metrics"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DB is the subset of *sql.DB the SQLite store needs.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS report (
	id TEXT PRIMARY KEY,
	player_name TEXT NOT NULL,
	opponent TEXT NOT NULL DEFAULT '',
	match_date TEXT NOT NULL DEFAULT '',
	r90_score REAL,
	minutes_played REAL,
	stats TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS report_action (
	report_id TEXT NOT NULL,
	action_number INTEGER NOT NULL,
	minute REAL NOT NULL,
	score REAL NOT NULL,
	action_type TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	video_url TEXT NOT NULL DEFAULT '',
	FOREIGN KEY (report_id) REFERENCES report(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_report_action_report ON report_action(report_id, action_number);
CREATE INDEX IF NOT EXISTS idx_report_updated ON report(updated_at);
`

// OpenSQLite opens the database at dsn and creates the schema.
// The pool is pinned to one connection so per-connection pragmas and
// ":memory:" databases behave.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	if err := InitSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// InitSchema enables foreign keys and WAL, then creates the report tables.
func InitSchema(ctx context.Context, db DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db  DB
	cfg settings
}

// NewSQLiteStore wraps an initialized database.
func NewSQLiteStore(db DB, opts ...Option) *SQLiteStore {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SQLiteStore{db: db, cfg: cfg}
}

func (s *SQLiteStore) CreateReport(ctx context.Context, r model.Report) (model.Report, error) {
	defer observe("create", time.Now())

	r = r.Clone()
	if r.ID == "" {
		r.ID = s.cfg.newID()
	}
	now := s.cfg.now()
	r.CreatedAt, r.UpdatedAt = now, now
	r.Actions = r.SortedActions()
	if r.Stats == nil {
		r.Stats = model.StatBag{}
	}

	statsJSON, err := encodeStats(r.Stats)
	if err != nil {
		return model.Report{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Report{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM report WHERE id = ?", r.ID).Scan(&exists)
	if err != nil {
		return model.Report{}, err
	}
	if exists > 0 {
		return model.Report{}, ErrConflict
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO report (id, player_name, opponent, match_date, r90_score, minutes_played, stats, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PlayerName, r.Opponent, r.MatchDate,
		nullable(r.R90Score), nullable(r.MinutesPlayed), statsJSON,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return model.Report{}, fmt.Errorf("insert report: %w", err)
	}
	if err := insertActions(ctx, tx, r.ID, r.Actions); err != nil {
		return model.Report{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Report{}, err
	}
	s.refreshTotal(ctx)
	return r, nil
}

func (s *SQLiteStore) FetchReport(ctx context.Context, id string) (model.Report, error) {
	defer observe("fetch", time.Now())

	row := s.db.QueryRowContext(ctx, selectReport+" WHERE id = ?", id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Report{}, ErrNotFound
	}
	if err != nil {
		return model.Report{}, err
	}
	if r.Actions, err = s.fetchActions(ctx, id); err != nil {
		return model.Report{}, err
	}
	return r, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, limit int) ([]model.Report, error) {
	defer observe("list", time.Now())
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, selectReport+" ORDER BY updated_at DESC, id ASC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, r)
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Actions, err = s.fetchActions(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteStore) UpdateReport(ctx context.Context, r model.Report) (model.Report, error) {
	defer observe("update", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Report{}, err
	}
	defer func() { _ = tx.Rollback() }()

	stamp, err := s.touch(ctx, tx, r.ID)
	if err != nil {
		return model.Report{}, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE report SET player_name = ?, opponent = ?, match_date = ?, r90_score = ?, minutes_played = ?, updated_at = ?
		 WHERE id = ?`,
		r.PlayerName, r.Opponent, r.MatchDate,
		nullable(r.R90Score), nullable(r.MinutesPlayed), formatTime(stamp),
		r.ID,
	)
	if err != nil {
		return model.Report{}, fmt.Errorf("update report: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Report{}, err
	}
	return s.FetchReport(ctx, r.ID)
}

func (s *SQLiteStore) SaveActions(ctx context.Context, id string, actions []model.Action) error {
	defer observe("save_actions", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stamp, err := s.touch(ctx, tx, id)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE report SET updated_at = ? WHERE id = ?", formatTime(stamp), id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM report_action WHERE report_id = ?", id); err != nil {
		return fmt.Errorf("clear actions: %w", err)
	}
	if err := insertActions(ctx, tx, id, actions); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveStats(ctx context.Context, id string, bag model.StatBag) error {
	defer observe("save_stats", time.Now())

	statsJSON, err := encodeStats(bag)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stamp, err := s.touch(ctx, tx, id)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE report SET stats = ?, updated_at = ? WHERE id = ?",
		statsJSON, formatTime(stamp), id); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return tx.Commit()
}

// touch returns a stamp strictly after the stored updated_at of id so every
// write bumps the version, even when the clock has not moved.
func (s *SQLiteStore) touch(ctx context.Context, tx *sql.Tx, id string) (time.Time, error) {
	var raw string
	err := tx.QueryRowContext(ctx, "SELECT updated_at FROM report WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	prev, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	now := s.cfg.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now, nil
}

func (s *SQLiteStore) DeleteReport(ctx context.Context, id string) error {
	defer observe("delete", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM report_action WHERE report_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM report WHERE id = ?", id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.refreshTotal(ctx)
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM report").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the underlying database when it can be closed.
func (s *SQLiteStore) Close() error {
	if c, ok := s.db.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (s *SQLiteStore) refreshTotal(ctx context.Context) {
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateReportsTotal(n)
	}
}

func (s *SQLiteStore) fetchActions(ctx context.Context, id string) ([]model.Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action_number, minute, score, action_type, description, notes, video_url
		 FROM report_action WHERE report_id = ? ORDER BY action_number ASC, rowid ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Action, 0)
	for rows.Next() {
		var a model.Action
		if err := rows.Scan(&a.ActionNumber, &a.Minute, &a.Score, &a.Type, &a.Description, &a.Notes, &a.VideoURL); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const selectReport = `SELECT id, player_name, opponent, match_date, r90_score, minutes_played, stats, created_at, updated_at FROM report`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (model.Report, error) {
	var (
		r                  model.Report
		r90, minutes       sql.NullFloat64
		statsJSON          string
		createdAt, updated string
	)
	if err := row.Scan(&r.ID, &r.PlayerName, &r.Opponent, &r.MatchDate, &r90, &minutes, &statsJSON, &createdAt, &updated); err != nil {
		return model.Report{}, err
	}
	if r90.Valid {
		r.R90Score = model.Float64(r90.Float64)
	}
	if minutes.Valid {
		r.MinutesPlayed = model.Float64(minutes.Float64)
	}
	if err := json.Unmarshal([]byte(statsJSON), &r.Stats); err != nil {
		return model.Report{}, fmt.Errorf("failed to decode stats for %s: %w", r.ID, err)
	}
	var err error
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return model.Report{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return model.Report{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return r, nil
}

func insertActions(ctx context.Context, tx *sql.Tx, id string, actions []model.Action) error {
	if len(actions) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO report_action (report_id, action_number, minute, score, action_type, description, notes, video_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range actions {
		if _, err := stmt.ExecContext(ctx, id, a.ActionNumber, a.Minute, a.Score, a.Type, a.Description, a.Notes, a.VideoURL); err != nil {
			return fmt.Errorf("insert action %d: %w", a.ActionNumber, err)
		}
	}
	return nil
}

func encodeStats(bag model.StatBag) (string, error) {
	if bag == nil {
		return "{}", nil
	}
	b, err := json.Marshal(bag)
	if err != nil {
		return "", fmt.Errorf("encode stats: %w", err)
	}
	return string(b), nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// timeLayout keeps a fixed width so stored stamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }
