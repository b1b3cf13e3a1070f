package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/gamesession/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/gamesession/internal/services/gamesession/storage"
	"github.com/louisbranch/gamesession/internal/services/gamesession/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed game result persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a game result SQLite store and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordResult appends one finished game.
func (s *Store) RecordResult(ctx context.Context, result storage.ResultRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result.User = strings.TrimSpace(result.User)
	result.Outcome = strings.TrimSpace(result.Outcome)
	if result.User == "" {
		return fmt.Errorf("user is required")
	}
	if result.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	if result.AttemptsUsed < 0 {
		return fmt.Errorf("attempts used must not be negative")
	}
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO game_results (
	user_id,
	outcome,
	attempts_used,
	block_height,
	finished_at
) VALUES (?, ?, ?, ?, ?)
`,
		result.User,
		result.Outcome,
		result.AttemptsUsed,
		int64(result.Block),
		result.FinishedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// ListResults lists newest-first results, optionally for one user.
func (s *Store) ListResults(ctx context.Context, user string, limit int) ([]storage.ResultRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	user = strings.TrimSpace(user)
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	id,
	user_id,
	outcome,
	attempts_used,
	block_height,
	finished_at
FROM game_results
WHERE (? = '' OR user_id = ?)
ORDER BY finished_at DESC, id DESC
LIMIT ?
`, user, user, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	records := make([]storage.ResultRecord, 0, limit)
	for rows.Next() {
		var record storage.ResultRecord
		var block, finishedAt int64
		if err := rows.Scan(
			&record.ID,
			&record.User,
			&record.Outcome,
			&record.AttemptsUsed,
			&block,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		record.Block = uint64(block)
		record.FinishedAt = time.UnixMilli(finishedAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return records, nil
}

var _ storage.ResultStore = (*Store)(nil)
