package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS credentials (
	slot       TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// sqliteOpTimeout ограничивает одну операцию со слотом: контракт Store синхронный.
const sqliteOpTimeout = 5 * time.Second

// SQLite хранит слоты в файле SQLite (одна строка на слот).
type SQLite struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenSQLite открывает (и при необходимости создаёт) файл БД и схему.
func OpenSQLite(path string, log *slog.Logger) (*SQLite, error) {
	const op = "credentials.OpenSQLite"

	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s: storage path is required", op)
	}

	if log == nil {
		log = slog.Default()
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open sqlite db: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping sqlite db: %w", op, err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: apply schema: %w", op, err)
	}

	return &SQLite{db: db, log: log}, nil
}

func (s *SQLite) Get(slot Slot) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE slot = ?`, string(slot)).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("credentials_read_failed",
				slog.String("slot", string(slot)),
				slog.String("err", err.Error()),
			)
		}
		return "", false
	}

	return value, value != ""
}

func (s *SQLite) Set(slot Slot, value string) {
	if !valid(slot) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO credentials (slot, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(slot) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(slot), value, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		s.log.Warn("credentials_write_failed",
			slog.String("slot", string(slot)),
			slog.String("err", err.Error()),
		)
	}
}

func (s *SQLite) Clear(slot Slot) {
	ctx, cancel := context.WithTimeout(context.Background(), sqliteOpTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE slot = ?`, string(slot)); err != nil {
		s.log.Warn("credentials_clear_failed",
			slog.String("slot", string(slot)),
			slog.String("err", err.Error()),
		)
	}
}

// Close освобождает файл БД.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

var _ ClosableStore = (*SQLite)(nil)
