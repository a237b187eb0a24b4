package sandbox_service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	model "sandbox-app-service/models"
	"sandbox-app-service/models/dao"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(f *fixture) *SandboxAppService {
	return NewSandboxAppService(f.dir, f.b, ServiceOptions{
		Image:   "node-vite",
		Health:  fastPolicy(3),
		Cleanup: CleanupPolicy{ProbeAttempts: 1},
	})
}

func TestServiceCreateRegistersApp(t *testing.T) {
	f := newFixture(t)
	f.control.setAliveAfter("u1", 1)
	svc := newService(f)

	app, err := svc.CreateApp(context.Background(), "a red button")
	require.NoError(t, err)

	fresh := NewAppDirectory(dao.NewAppDAOWithDB(f.db), f.b)
	fresh.Load()
	got := fresh.Get(app.ID)
	require.NotNil(t, got)
	assert.Equal(t, model.AppStatusReady, got.Status())
	require.Len(t, got.Data.MessageHistory, 2)
	assert.Equal(t, model.MessageTypeUser, got.Data.MessageHistory[0].Type)
	assert.Equal(t, model.MessageTypeAssistant, got.Data.MessageHistory[1].Type)

	list := svc.ListApps()
	require.Len(t, list, 1)
	assert.Equal(t, "a red button", list[0].Title)
}

func TestServiceCreateTerminatedIsStillRegistered(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)

	app, err := svc.CreateApp(context.Background(), "a red button")
	require.NoError(t, err)
	assert.Equal(t, model.AppStatusTerminated, app.Status())

	status, err := svc.Status(app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppStatusTerminated, status)
}

func TestServiceCreateFailureRegistersNothing(t *testing.T) {
	f := newFixture(t)
	f.prov.err = errors.New("no capacity")
	svc := newService(f)

	_, err := svc.CreateApp(context.Background(), "x")
	require.ErrorIs(t, err, ErrProvisioning)
	assert.Empty(t, svc.ListApps())
}

func TestServiceEditPersistsOnlyOnSuccess(t *testing.T) {
	f := newFixture(t)
	f.control.setAliveAfter("u1", 1)
	svc := newService(f)

	app, err := svc.CreateApp(context.Background(), "a red button")
	require.NoError(t, err)

	res, err := svc.EditApp(context.Background(), app.ID, "make it blue")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	history, err := svc.History(app.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
	status, _ := svc.Status(app.ID)
	assert.Equal(t, model.AppStatusActive, status)

	f.control.pushCode = http.StatusInternalServerError
	_, err = svc.EditApp(context.Background(), app.ID, "make it green")
	require.ErrorIs(t, err, ErrDelivery)

	history, err = svc.History(app.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestServiceNotFound(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)

	_, err := svc.EditApp(context.Background(), "missing", "x")
	assert.ErrorIs(t, err, ErrAppNotFound)
	_, err = svc.Status("missing")
	assert.ErrorIs(t, err, ErrAppNotFound)
	_, err = svc.Ping(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAppNotFound)
	_, err = svc.History("missing")
	assert.ErrorIs(t, err, ErrAppNotFound)
	_, err = svc.TerminateApp(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAppNotFound)
	_, err = svc.ToggleFeature("missing")
	assert.ErrorIs(t, err, ErrAppNotFound)
}

func TestServicePing(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)
	require.NoError(t, f.dir.Set(f.newApp("sb-1", "u1", model.AppStatusReady)))

	alive, err := svc.Ping(context.Background(), "sb-1")
	require.NoError(t, err)
	assert.False(t, alive)

	f.control.setAliveAfter("u1", 1)
	alive, err = svc.Ping(context.Background(), "sb-1")
	require.NoError(t, err)
	assert.True(t, alive)
}

func TestServiceTerminateApp(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)
	require.NoError(t, f.dir.Set(f.newApp("sb-1", "u1", model.AppStatusActive)))

	f.prov.destroyErr = errors.New("unavailable")
	ok, err := svc.TerminateApp(context.Background(), "sb-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotNil(t, f.dir.Get("sb-1"))

	f.prov.destroyErr = nil
	ok, err = svc.TerminateApp(context.Background(), "sb-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, f.dir.Get("sb-1"))
}

func TestServiceToggleFeature(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)
	app := f.newApp("sb-1", "u1", model.AppStatusReady)
	require.NoError(t, f.dir.Set(app))

	featured, err := svc.ToggleFeature("sb-1")
	require.NoError(t, err)
	assert.True(t, featured)

	got := f.dir.Get("sb-1")
	assert.True(t, got.Metadata.IsFeatured)
	assert.True(t, got.Metadata.UpdatedAt.After(app.Metadata.UpdatedAt))
	assert.Equal(t, model.AppStatusReady, got.Status())

	featured, err = svc.ToggleFeature("sb-1")
	require.NoError(t, err)
	assert.False(t, featured)
}

func TestServiceTerminateAll(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)
	require.NoError(t, f.dir.Set(f.newApp("sb-1", "u1", model.AppStatusActive)))
	require.NoError(t, f.dir.Set(f.newApp("sb-2", "u2", model.AppStatusReady)))
	require.NoError(t, f.dir.Set(f.newApp("sb-3", "u3", model.AppStatusReady)))
	require.NoError(t, f.db.Delete(dao.AppDataKey("sb-3")))

	var seen []string
	result := svc.TerminateAll(context.Background(), func(id string, ok bool) {
		seen = append(seen, id)
	})

	assert.Equal(t, 2, result.Terminated)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []string{"sb-3"}, result.Skipped)
	assert.Equal(t, []string{"sb-1", "sb-2", "sb-3"}, seen)
	assert.ElementsMatch(t, []string{"sb-1", "sb-2"}, f.prov.destroyedIDs())

	assert.Nil(t, f.dir.Get("sb-1"))
	assert.Nil(t, f.dir.Get("sb-2"))
}

func TestServiceCleanupUsesConfiguredPolicy(t *testing.T) {
	f := newFixture(t)
	svc := newService(f)
	require.NoError(t, f.dir.Set(f.newApp("sb-1", "u1", model.AppStatusReady)))

	report := svc.Cleanup(context.Background())
	assert.Equal(t, []string{"sb-1"}, report.Removed[RemovedUnreachable])
	assert.Empty(t, svc.ListApps())
}

func TestServiceStatusRecordsCleanupPasses(t *testing.T) {
	f := newFixture(t)
	svc := NewSandboxAppService(f.dir, f.b, ServiceOptions{
		Image:         "node-vite",
		Health:        fastPolicy(3),
		Cleanup:       CleanupPolicy{ProbeAttempts: 1},
		CleanupStatus: dao.NewCleanupStatusDAOWithDB(f.db),
	})
	f.control.setAliveAfter("u1", 1)
	require.NoError(t, f.dir.Set(f.newApp("sb-1", "u1", model.AppStatusReady)))
	require.NoError(t, f.dir.Set(f.newApp("sb-2", "u2", model.AppStatusReady)))

	st, err := svc.ServiceStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, st.Apps)
	assert.Zero(t, st.Cleanup.Runs)

	svc.Cleanup(context.Background())
	svc.Cleanup(context.Background())

	st, err = svc.ServiceStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Apps)
	assert.EqualValues(t, 2, st.Cleanup.Runs)
	assert.EqualValues(t, 1, st.Cleanup.TotalRemoved)
	assert.Equal(t, 1, st.Cleanup.LastChecked)
	assert.Equal(t, 0, st.Cleanup.LastRemoved)
}
