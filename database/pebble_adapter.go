package database

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"sandbox-app-service/logging"

	"github.com/cockroachdb/pebble"
)

// PebbleDatabase PebbleDB implementation of the key-value store
type PebbleDatabase struct {
	db     *pebble.DB
	closed atomic.Bool
}

// PebbleConfig PebbleDB configuration
type PebbleConfig struct {
	DataDir string
}

// collection directory under DataDir: key {catalogue | app_{id}}, value JSON
const collectionAppDirectory = "app_directory"

// NewPebbleDatabase create PebbleDB database instance
func NewPebbleDatabase(config interface{}) (Database, error) {
	cfg, ok := config.(*PebbleConfig)
	if !ok {
		return nil, fmt.Errorf("%w: want *PebbleConfig, got %T", ErrInvalidConfig, config)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	path := filepath.Join(cfg.DataDir, "sandbox_db", collectionAppDirectory)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s at %s: %w", collectionAppDirectory, path, err)
	}

	logging.Info("PebbleDB opened", "path", path)
	return &PebbleDatabase{db: db}, nil
}

func (p *PebbleDatabase) Get(key string) ([]byte, error) {
	if p.closed.Load() {
		return nil, ErrDatabaseClosed
	}

	data, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	// data is only valid until closer.Close()
	return bytes.Clone(data), nil
}

func (p *PebbleDatabase) Set(key string, value []byte) error {
	if p.closed.Load() {
		return ErrDatabaseClosed
	}
	return p.db.Set([]byte(key), value, pebble.Sync)
}

func (p *PebbleDatabase) Delete(key string) error {
	if p.closed.Load() {
		return ErrDatabaseClosed
	}
	return p.db.Delete([]byte(key), pebble.Sync)
}

func (p *PebbleDatabase) Has(key string) (bool, error) {
	_, err := p.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (p *PebbleDatabase) Keys(prefix string) ([]string, error) {
	if p.closed.Load() {
		return nil, ErrDatabaseClosed
	}

	opts := &pebble.IterOptions{}
	if prefix != "" {
		opts.LowerBound = []byte(prefix)
		opts.UpperBound = prefixUpperBound([]byte(prefix))
	}

	iter, err := p.db.NewIter(opts)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}

func (p *PebbleDatabase) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.db.Close()
}

// prefixUpperBound smallest key greater than every key with the given prefix
func prefixUpperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
