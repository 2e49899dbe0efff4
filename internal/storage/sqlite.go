package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/folio-hq/folio/internal/portfolio"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps one JSON document per portfolio in a local SQLite file.
// It is the zero-infrastructure backend for development and single-host
// deployments.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "folio.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *SQLiteStore) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Portfolios ---

func (s *SQLiteStore) Get(ctx context.Context, username string) (portfolio.Portfolio, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT document FROM portfolios WHERE username = ?", username).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return portfolio.Portfolio{}, portfolio.ErrNotFound
	}
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	return decodeDocument(doc)
}

func (s *SQLiteStore) Create(ctx context.Context, p portfolio.Portfolio) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt == nil {
		p.CreatedAt = &now
	}
	if p.UpdatedAt == nil {
		p.UpdatedAt = p.CreatedAt
	}

	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding portfolio: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portfolios (id, username, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Username, string(doc),
		p.CreatedAt.UTC().Format(time.RFC3339), p.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return portfolio.ErrExists
	}
	return err
}

// Update applies patch inside a transaction so concurrent edits of different
// fields do not overwrite each other.
func (s *SQLiteStore) Update(ctx context.Context, username string, patch portfolio.Patch, updatedAt time.Time) (portfolio.Portfolio, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return portfolio.Portfolio{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var doc string
	err = tx.QueryRowContext(ctx, "SELECT document FROM portfolios WHERE username = ?", username).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return portfolio.Portfolio{}, portfolio.ErrNotFound
	}
	if err != nil {
		return portfolio.Portfolio{}, err
	}

	p, err := decodeDocument(doc)
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	patch.Apply(&p)
	updatedAt = updatedAt.UTC()
	p.UpdatedAt = &updatedAt

	out, err := json.Marshal(p)
	if err != nil {
		return portfolio.Portfolio{}, fmt.Errorf("encoding portfolio: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE portfolios SET document = ?, updated_at = ? WHERE username = ?`,
		string(out), updatedAt.Format(time.RFC3339), username,
	); err != nil {
		return portfolio.Portfolio{}, err
	}
	if err := tx.Commit(); err != nil {
		return portfolio.Portfolio{}, fmt.Errorf("committing update: %w", err)
	}
	return p, nil
}

func decodeDocument(doc string) (portfolio.Portfolio, error) {
	var p portfolio.Portfolio
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return portfolio.Portfolio{}, fmt.Errorf("decoding portfolio document: %w", err)
	}
	return p, nil
}
