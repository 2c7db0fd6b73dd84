package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection to the SQLite database.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// createdAtLayout is fixed width so created_at sorts chronologically as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Analysis is a stored analysis request and its statistics.
type Analysis struct {
	ID        string
	Kind      string // rain, flow, rainflow
	Request   string // JSON body as posted
	Result    string // JSON statistics object
	CreatedAt string
}

// Open creates a new DB connection and runs all pending migrations.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	d := &DB{conn: conn, now: time.Now}
	if err := d.migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying *sql.DB.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

func (d *DB) migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations dir: %w", err)
	}
	provider, err := goose.NewProvider(database.DialectSQLite3, d.conn, sub)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

const analysisColumns = `id, kind, request_json, result_json, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scanner, a *Analysis) error {
	return row.Scan(&a.ID, &a.Kind, &a.Request, &a.Result, &a.CreatedAt)
}

// InsertAnalysis stores a, assigning an ID and creation time when unset,
// and returns the ID.
func (d *DB) InsertAnalysis(a *Analysis) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt == "" {
		a.CreatedAt = d.now().UTC().Format(createdAtLayout)
	}
	_, err := d.conn.Exec(
		`INSERT INTO analyses (`+analysisColumns+`) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Kind, a.Request, a.Result, a.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert analysis: %w", err)
	}
	return a.ID, nil
}

// GetAnalysis returns the analysis with the given ID, or nil if there is none.
func (d *DB) GetAnalysis(id string) (*Analysis, error) {
	a := &Analysis{}
	row := d.conn.QueryRow(`SELECT `+analysisColumns+` FROM analyses WHERE id = ?`, id)
	if err := scanAnalysis(row, a); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}
	return a, nil
}

// ListAnalyses returns analyses newest first.
func (d *DB) ListAnalyses(limit, offset int) ([]Analysis, error) {
	rows, err := d.conn.Query(
		`SELECT `+analysisColumns+` FROM analyses ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var analyses []Analysis
	for rows.Next() {
		var a Analysis
		if err := scanAnalysis(rows, &a); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}
