package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sandbox-app-service/logging"

	_ "modernc.org/sqlite"
)

// SqliteDatabase SQLite implementation of the key-value store, one kv table
type SqliteDatabase struct {
	db *sql.DB
}

// SqliteConfig SQLite configuration
type SqliteConfig struct {
	Path string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
)`

// NewSqliteDatabase open or create the SQLite database at cfg.Path
func NewSqliteDatabase(config interface{}) (Database, error) {
	cfg, ok := config.(*SqliteConfig)
	if !ok {
		return nil, fmt.Errorf("%w: want *SqliteConfig, got %T", ErrInvalidConfig, config)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Info("SQLite opened", "path", cfg.Path)
	return &SqliteDatabase{db: db}, nil
}

func (s *SqliteDatabase) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *SqliteDatabase) Set(key string, value []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, strftime('%s','now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	return err
}

func (s *SqliteDatabase) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

func (s *SqliteDatabase) Has(key string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM kv WHERE key = ?`, key).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Keys range scan over the primary key; BINARY collation orders text bytewise,
// so the bound matches the pebble adapter's
func (s *SqliteDatabase) Keys(prefix string) ([]string, error) {
	query := `SELECT key FROM kv WHERE key >= ?`
	args := []any{prefix}
	if upper := prefixUpperBound([]byte(prefix)); upper != nil {
		query += ` AND key < ?`
		args = append(args, string(upper))
	}

	rows, err := s.db.Query(query+` ORDER BY key`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SqliteDatabase) Close() error {
	return s.db.Close()
}
