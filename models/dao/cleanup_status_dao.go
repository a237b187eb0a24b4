package dao

import (
	"encoding/json"
	"errors"

	"sandbox-app-service/database"
	model "sandbox-app-service/models"
)

// CleanupStatusKey key of the reconciliation status record
const CleanupStatusKey = "cleanup_status"

// CleanupStatusDAO reconciliation status DAO
type CleanupStatusDAO struct {
	db database.Database
}

// NewCleanupStatusDAO create cleanup status DAO over the global database
func NewCleanupStatusDAO() *CleanupStatusDAO {
	return &CleanupStatusDAO{
		db: database.DB,
	}
}

// NewCleanupStatusDAOWithDB create cleanup status DAO over db
func NewCleanupStatusDAOWithDB(db database.Database) *CleanupStatusDAO {
	return &CleanupStatusDAO{db: db}
}

// Get read the status; a job that never ran has a zero status
func (d *CleanupStatusDAO) Get() (*model.CleanupStatus, error) {
	if d.db == nil {
		return nil, database.ErrDatabaseNotInitialized
	}

	raw, err := d.db.Get(CleanupStatusKey)
	if errors.Is(err, database.ErrNotFound) {
		return &model.CleanupStatus{}, nil
	}
	if err != nil {
		return nil, err
	}

	var status model.CleanupStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Put overwrite the status
func (d *CleanupStatusDAO) Put(status *model.CleanupStatus) error {
	if d.db == nil {
		return database.ErrDatabaseNotInitialized
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return d.db.Set(CleanupStatusKey, raw)
}
