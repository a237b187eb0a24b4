package dao

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sandbox-app-service/database"
	model "sandbox-app-service/models"
)

// Storage keys: one catalogue document plus one data record per app
const (
	CatalogueKey  = "catalogue"
	AppDataPrefix = "app_"
)

// AppDataKey key of an app's data record
func AppDataKey(id string) string {
	return AppDataPrefix + id
}

// Catalogue id -> serialized AppMetadata
type Catalogue map[string]json.RawMessage

// AppDAO sandbox app DAO
type AppDAO struct {
	db database.Database
}

// NewAppDAO create app DAO over the global database
func NewAppDAO() *AppDAO {
	return &AppDAO{
		db: database.DB,
	}
}

// NewAppDAOWithDB create app DAO over db
func NewAppDAOWithDB(db database.Database) *AppDAO {
	return &AppDAO{db: db}
}

// GetCatalogue read the whole catalogue; a missing key is an empty catalogue
func (d *AppDAO) GetCatalogue() (Catalogue, error) {
	if d.db == nil {
		return nil, database.ErrDatabaseNotInitialized
	}

	raw, err := d.db.Get(CatalogueKey)
	if errors.Is(err, database.ErrNotFound) {
		return Catalogue{}, nil
	}
	if err != nil {
		return nil, err
	}

	cat := Catalogue{}
	if err := json.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	return cat, nil
}

// PutCatalogue overwrite the whole catalogue
func (d *AppDAO) PutCatalogue(cat Catalogue) error {
	if d.db == nil {
		return database.ErrDatabaseNotInitialized
	}
	if cat == nil {
		cat = Catalogue{}
	}
	raw, err := json.Marshal(cat)
	if err != nil {
		return err
	}
	return d.db.Set(CatalogueKey, raw)
}

// GetAppData read one app's data record, database.ErrNotFound when absent
func (d *AppDAO) GetAppData(id string) (*model.AppData, error) {
	if d.db == nil {
		return nil, database.ErrDatabaseNotInitialized
	}

	raw, err := d.db.Get(AppDataKey(id))
	if err != nil {
		return nil, err
	}

	var data model.AppData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", AppDataKey(id), err)
	}
	return &data, nil
}

// PutAppData write one app's data record
func (d *AppDAO) PutAppData(data *model.AppData) error {
	if d.db == nil {
		return database.ErrDatabaseNotInitialized
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return d.db.Set(AppDataKey(data.ID), raw)
}

// DeleteAppData delete one app's data record
func (d *AppDAO) DeleteAppData(id string) error {
	if d.db == nil {
		return database.ErrDatabaseNotInitialized
	}
	return d.db.Delete(AppDataKey(id))
}

// ListAppDataIDs ids of every stored data record, including ones the catalogue lost
func (d *AppDAO) ListAppDataIDs() ([]string, error) {
	if d.db == nil {
		return nil, database.ErrDatabaseNotInitialized
	}
	keys, err := d.db.Keys(AppDataPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, AppDataPrefix))
	}
	return ids, nil
}
