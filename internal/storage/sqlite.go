package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/mdsim/internal/metrics"
	"gonum.org/v1/gonum/spatial/r3"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps runs in a single database file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			meta BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS frames (
			run_id TEXT NOT NULL,
			frame INTEGER NOT NULL,
			time REAL NOT NULL,
			kinetic REAL NOT NULL,
			potential REAL NOT NULL,
			PRIMARY KEY (run_id, frame)
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			run_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			PRIMARY KEY (run_id, idx)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec *Record) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}

	now := time.Now()
	meta := rec.Meta
	meta.ID = newRunID(meta.Scenario, now)
	meta.Timestamp = now

	payload, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (id, created_at, meta) VALUES (?, ?, ?)`,
		meta.ID, now.UnixNano(), payload); err != nil {
		return "", err
	}

	for _, f := range rec.Frames {
		if _, err := tx.ExecContext(ctx, `INSERT INTO frames (run_id, frame, time, kinetic, potential) VALUES (?, ?, ?, ?, ?)`,
			meta.ID, f.Frame, f.Time, f.Kinetic, f.Potential); err != nil {
			return "", err
		}
	}

	for i, p := range rec.Positions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO positions (run_id, idx, x, y, z) VALUES (?, ?, ?, ?, ?)`,
			meta.ID, i, p.X, p.Y, p.Z); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	rec.Meta = meta
	return meta.ID, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]RunMetadata, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT meta FROM runs ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var meta RunMetadata
		if err := json.Unmarshal(payload, &meta); err != nil {
			return nil, err
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Load(ctx context.Context, runID string) (*Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT meta FROM runs WHERE id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, err
	}

	rec := &Record{}
	if err := json.Unmarshal(payload, &rec.Meta); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}

	if rec.Frames, err = loadFrames(ctx, db, runID); err != nil {
		return nil, err
	}
	if rec.Positions, err = loadPositions(ctx, db, runID); err != nil {
		return nil, err
	}
	return rec, nil
}

func loadFrames(ctx context.Context, db *sql.DB, runID string) ([]metrics.Sample, error) {
	rows, err := db.QueryContext(ctx, `SELECT frame, time, kinetic, potential FROM frames WHERE run_id = ? ORDER BY frame`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	frames := make([]metrics.Sample, 0)
	for rows.Next() {
		var f metrics.Sample
		if err := rows.Scan(&f.Frame, &f.Time, &f.Kinetic, &f.Potential); err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

func loadPositions(ctx context.Context, db *sql.DB, runID string) ([]r3.Vec, error) {
	rows, err := db.QueryContext(ctx, `SELECT x, y, z FROM positions WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := make([]r3.Vec, 0)
	for rows.Next() {
		var p r3.Vec
		if err := rows.Scan(&p.X, &p.Y, &p.Z); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}
