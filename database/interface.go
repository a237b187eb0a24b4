package database

import "fmt"

// Database key-value store backing the app directory.
// Values are opaque bytes; callers own the encoding.
type Database interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(key string) ([]byte, error)

	// Set stores value under key, replacing any previous value
	Set(key string, value []byte) error

	// Delete removes key; deleting a missing key is not an error
	Delete(key string) error

	// Has reports whether key is present
	Has(key string) (bool, error)

	// Keys lists stored keys that start with prefix, in key order
	Keys(prefix string) ([]string, error)

	// General operations
	Close() error
}

// DBType database type
type DBType string

const (
	DBTypePebble DBType = "pebble"
	DBTypeSqlite DBType = "sqlite"
	DBTypeMemory DBType = "memory"
)

// Global database instance
var DB Database

// currentDBType stores the current database type
var currentDBType DBType

// InitDatabase initialize the global database with specified type
func InitDatabase(dbType DBType, config interface{}) error {
	db, err := NewDatabase(dbType, config)
	if err != nil {
		return err
	}
	DB = db
	currentDBType = dbType
	return nil
}

// NewDatabase opens a database of the given type without touching the global
func NewDatabase(dbType DBType, config interface{}) (Database, error) {
	switch dbType {
	case DBTypePebble:
		return NewPebbleDatabase(config)
	case DBTypeSqlite:
		return NewSqliteDatabase(config)
	case DBTypeMemory:
		return NewMemoryDatabase(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDBType, dbType)
	}
}

// CurrentDBType returns the type passed to the last successful InitDatabase
func CurrentDBType() DBType {
	return currentDBType
}
