package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"nestor/internal/domain"
)

// Entry is a persisted debug response.
type Entry struct {
	ID        string
	Team      string
	Strings   []string
	Reply     bool
	CreatedAt time.Time
}

// Store is a debug sink backed by SQLite, so responses captured by one CLI
// invocation can be inspected by the next.
type Store struct {
	db     *sql.DB
	team   string
	logger *slog.Logger
}

var _ domain.Sink = (*Store)(nil)

// NewStore opens (or creates) the outbox database at dbPath.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create outbox directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open outbox database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("outbox migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS outbox (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		id          TEXT NOT NULL UNIQUE,
		team        TEXT,
		strings     TEXT NOT NULL,
		reply       INTEGER NOT NULL DEFAULT 0,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

// ForTeam returns a view of the store that tags appended entries with team.
func (s *Store) ForTeam(team string) *Store {
	return &Store{db: s.db, team: team, logger: s.logger}
}

// Append persists p. Write failures are logged, not returned: debug
// delivery never fails the caller.
func (s *Store) Append(p domain.OutboundPayload) {
	if err := s.insert(context.Background(), p); err != nil {
		s.logger.Warn("outbox append failed", "team", s.team, "err", err)
	}
}

func (s *Store) insert(ctx context.Context, p domain.OutboundPayload) error {
	lines := p.Strings
	if lines == nil {
		lines = []string{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal strings: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outbox (id, team, strings, reply, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), s.team, string(data), p.Reply, time.Now().UTC(),
	)
	return err
}

// List returns up to limit entries in the order they were appended.
// A limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, team, strings, reply, created_at FROM outbox ORDER BY seq ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			team sql.NullString
			raw  string
		)
		if err := rows.Scan(&e.ID, &team, &raw, &e.Reply, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		e.Team = team.String
		if err := json.Unmarshal([]byte(raw), &e.Strings); err != nil {
			return nil, fmt.Errorf("decode outbox strings %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear deletes all entries and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM outbox`)
	if err != nil {
		return 0, fmt.Errorf("clear outbox: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database shared by every team view of this store.
func (s *Store) Close() error {
	return s.db.Close()
}
