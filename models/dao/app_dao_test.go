package dao

import (
	"encoding/json"
	"testing"
	"time"

	"sandbox-app-service/database"
	model "sandbox-app-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueRoundTrip(t *testing.T) {
	d := NewAppDAOWithDB(database.NewMemoryDatabase())

	cat, err := d.GetCatalogue()
	require.NoError(t, err)
	assert.Empty(t, cat)

	cat["sb-1"] = json.RawMessage(`{"id":"sb-1","status":"ready"}`)
	require.NoError(t, d.PutCatalogue(cat))

	got, err := d.GetCatalogue()
	require.NoError(t, err)
	require.Contains(t, got, "sb-1")
	assert.JSONEq(t, `{"id":"sb-1","status":"ready"}`, string(got["sb-1"]))
}

func TestCatalogueCorrupt(t *testing.T) {
	db := database.NewMemoryDatabase()
	require.NoError(t, db.Set(CatalogueKey, []byte("{not json")))

	_, err := NewAppDAOWithDB(db).GetCatalogue()
	assert.Error(t, err)
}

func TestAppDataRoundTrip(t *testing.T) {
	d := NewAppDAOWithDB(database.NewMemoryDatabase())

	_, err := d.GetAppData("sb-1")
	assert.ErrorIs(t, err, database.ErrNotFound)

	data := &model.AppData{ID: "sb-1", CurrentComponent: "export default function X(){}"}
	data.AppendMessage(model.MessageTypeUser, "a red button")
	require.NoError(t, d.PutAppData(data))

	got, err := d.GetAppData("sb-1")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	ids, err := d.ListAppDataIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"sb-1"}, ids)

	require.NoError(t, d.DeleteAppData("sb-1"))
	_, err = d.GetAppData("sb-1")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestNilDatabase(t *testing.T) {
	d := &AppDAO{}
	_, err := d.GetCatalogue()
	assert.ErrorIs(t, err, database.ErrDatabaseNotInitialized)
	assert.ErrorIs(t, d.PutAppData(&model.AppData{ID: "x"}), database.ErrDatabaseNotInitialized)
}

func TestCleanupStatusRoundTrip(t *testing.T) {
	d := NewCleanupStatusDAOWithDB(database.NewMemoryDatabase())

	status, err := d.Get()
	require.NoError(t, err)
	assert.Zero(t, status.Runs)

	status.Record(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 3, 1, 2, nil)
	require.NoError(t, d.Put(status))

	got, err := d.Get()
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.Runs)
	assert.EqualValues(t, 2, got.TotalRemoved)
	assert.Equal(t, 3, got.LastChecked)
	assert.True(t, got.LastRunAt.Equal(status.LastRunAt))

	_, err = NewCleanupStatusDAOWithDB(nil).Get()
	assert.ErrorIs(t, err, database.ErrDatabaseNotInitialized)
}
