// Package repository persists inventory snapshots and risk assessments in
// SQLite. It is the data provider the evaluation pipeline reads from and
// the sink its caller writes assessments back to.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"github.com/DataCraft-Labs/smartshelf/internal/domain/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS inventory_snapshots (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id        TEXT NOT NULL,
	product_id      TEXT NOT NULL,
	product_name    TEXT NOT NULL DEFAULT '',
	section         TEXT NOT NULL,
	subsection_code TEXT NOT NULL,
	store_code      TEXT NOT NULL,
	received_at     TEXT NOT NULL,
	shelf_life_days INTEGER NOT NULL,
	units_sold_90d  INTEGER NOT NULL,
	current_stock   INTEGER,
	price           REAL,
	is_seasonal     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_snapshots_batch ON inventory_snapshots(batch_id);

CREATE TABLE IF NOT EXISTS risk_assessments (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id               TEXT NOT NULL,
	evaluated_at         TEXT NOT NULL,
	product_id           TEXT NOT NULL,
	product_name         TEXT NOT NULL DEFAULT '',
	section              TEXT NOT NULL,
	subsection_code      TEXT NOT NULL,
	store_code           TEXT NOT NULL,
	days_in_stock        INTEGER NOT NULL,
	remaining_shelf_life INTEGER NOT NULL,
	sales_velocity       REAL NOT NULL,
	stock_coverage_days  REAL,
	risk_index           REAL,
	will_expire          INTEGER NOT NULL,
	expiry_probability   REAL,
	days_to_action       INTEGER NOT NULL,
	recommended_action   TEXT NOT NULL,
	urgency              TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assessments_run ON risk_assessments(run_id);
`

// Store wraps the SQLite connection.
type Store struct {
	db          *sqlx.DB
	busyTimeout time.Duration
	journalMode string
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		busyTimeout: defaultBusyTimeout,
		journalMode: defaultJournalMode,
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d", path, s.journalMode, s.busyTimeout.Milliseconds())
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %s: %w", path, err)
	}
	s.db = db
	return s, nil
}

// Init creates the tables when they do not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// snapshotRow pairs a raw record with the batch it belongs to.
type snapshotRow struct {
	BatchID string `db:"batch_id"`
	snapshot.Record
}

// SaveSnapshots inserts a batch of raw inventory rows in one transaction.
func (s *Store) SaveSnapshots(ctx context.Context, batchID string, records []snapshot.Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const q = `INSERT INTO inventory_snapshots
		(batch_id, product_id, product_name, section, subsection_code, store_code,
		 received_at, shelf_life_days, units_sold_90d, current_stock, price, is_seasonal)
		VALUES
		(:batch_id, :product_id, :product_name, :section, :subsection_code, :store_code,
		 :received_at, :shelf_life_days, :units_sold_90d, :current_stock, :price, :is_seasonal)`

	for _, r := range records {
		if _, err := tx.NamedExecContext(ctx, q, snapshotRow{BatchID: batchID, Record: r}); err != nil {
			return fmt.Errorf("insert snapshot for product %s: %w", r.ProductID, err)
		}
	}
	return tx.Commit()
}

// LoadSnapshots returns the raw rows of one batch, or of every batch when
// batchID is empty.
func (s *Store) LoadSnapshots(ctx context.Context, batchID string) ([]snapshot.Record, error) {
	const cols = `product_id, product_name, section, subsection_code, store_code,
		received_at, shelf_life_days, units_sold_90d, current_stock, price, is_seasonal`

	var records []snapshot.Record
	var err error
	if batchID == "" {
		err = s.db.SelectContext(ctx, &records, `SELECT `+cols+` FROM inventory_snapshots ORDER BY id`)
	} else {
		err = s.db.SelectContext(ctx, &records, `SELECT `+cols+` FROM inventory_snapshots WHERE batch_id = ? ORDER BY id`, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	return records, nil
}

// LatestBatchID returns the most recently inserted batch id.
func (s *Store) LatestBatchID(ctx context.Context) (string, error) {
	var batchID string
	err := s.db.GetContext(ctx, &batchID, `SELECT batch_id FROM inventory_snapshots ORDER BY id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("latest batch id: %w", err)
	}
	return batchID, nil
}

// assessmentRow pairs an assessment with its evaluation run.
type assessmentRow struct {
	RunID       string    `db:"run_id"`
	EvaluatedAt time.Time `db:"evaluated_at"`
	snapshot.Assessment
}

// SaveAssessments persists the output of one evaluation run.
func (s *Store) SaveAssessments(ctx context.Context, runID string, evaluatedAt time.Time, assessments []snapshot.Assessment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assessment insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	const q = `INSERT INTO risk_assessments
		(run_id, evaluated_at, product_id, product_name, section, subsection_code, store_code,
		 days_in_stock, remaining_shelf_life, sales_velocity, stock_coverage_days, risk_index,
		 will_expire, expiry_probability, days_to_action, recommended_action, urgency)
		VALUES
		(:run_id, :evaluated_at, :product_id, :product_name, :section, :subsection_code, :store_code,
		 :days_in_stock, :remaining_shelf_life, :sales_velocity, :stock_coverage_days, :risk_index,
		 :will_expire, :expiry_probability, :days_to_action, :recommended_action, :urgency)`

	for _, a := range assessments {
		if _, err := tx.NamedExecContext(ctx, q, assessmentRow{RunID: runID, EvaluatedAt: evaluatedAt, Assessment: a}); err != nil {
			return fmt.Errorf("insert assessment for product %s: %w", a.ProductID, err)
		}
	}
	return tx.Commit()
}

// ActionCounts aggregates the recommended actions of one run.
func (s *Store) ActionCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT recommended_action, COUNT(*) FROM risk_assessments WHERE run_id = ? GROUP BY recommended_action`, runID)
	if err != nil {
		return nil, fmt.Errorf("action counts: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("scan action count: %w", err)
		}
		counts[action] = n
	}
	return counts, rows.Err()
}
