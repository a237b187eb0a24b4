package sandbox_service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"sandbox-app-service/database"
	"sandbox-app-service/events"
	"sandbox-app-service/logging"
	"sandbox-app-service/metrics"
	model "sandbox-app-service/models"
	"sandbox-app-service/models/dao"
	"sandbox-app-service/service/provisioner_service"
)

// AppDirectory catalogue of known apps over a key-value store shared with other
// processes. The store has no transactions: Set and Remove re-read the catalogue,
// change one entry and write it back, so a concurrent writer in another process can
// still lose an update. The mutex only orders callers inside this process.
type AppDirectory struct {
	mu   sync.Mutex
	dao  *dao.AppDAO
	apps map[string]*model.AppMetadata
	b    *Backends
}

// NewAppDirectory create directory; call Load before relying on the cache
func NewAppDirectory(appDAO *dao.AppDAO, b *Backends) *AppDirectory {
	return &AppDirectory{
		dao:  appDAO,
		apps: make(map[string]*model.AppMetadata),
		b:    b,
	}
}

// Load replaces the cache with the stored catalogue. An unreadable catalogue loads as
// empty and unreadable entries are skipped.
func (d *AppDirectory) Load() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loadLocked()
}

func (d *AppDirectory) loadLocked() {
	d.apps = make(map[string]*model.AppMetadata)

	cat, err := d.dao.GetCatalogue()
	if err != nil {
		logging.Error("failed to load catalogue, starting empty", "error", err)
		metrics.CatalogueSize.Set(0)
		return
	}

	for id, raw := range cat {
		meta, err := decodeMetadata(id, raw)
		if err != nil {
			metrics.ConsistencyFaults.Inc()
			logging.Warn("skipping unreadable catalogue entry", "app_id", id, "error", err)
			continue
		}
		d.apps[id] = meta
	}

	metrics.CatalogueSize.Set(float64(len(d.apps)))
	logging.Debug("catalogue loaded", "apps", len(d.apps))
}

func decodeMetadata(id string, raw json.RawMessage) (*model.AppMetadata, error) {
	var meta model.AppMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	if meta.ID != id {
		return nil, fmt.Errorf("entry id %q does not match key %q", meta.ID, id)
	}
	status, err := model.ParseAppStatus(string(meta.Status))
	if err != nil {
		return nil, err
	}
	meta.Status = status
	return &meta, nil
}

// Get reconstructs an app, or returns nil when the id is unknown or its records
// cannot be read. A catalogue entry without a data record is logged as a
// consistency fault and reported as absent.
func (d *AppDirectory) Get(id string) *SandboxApp {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getLocked(id)
}

func (d *AppDirectory) getLocked(id string) *SandboxApp {
	meta, ok := d.apps[id]
	if !ok {
		cat, err := d.dao.GetCatalogue()
		if err != nil {
			logging.Error("failed to read catalogue", "app_id", id, "error", err)
			return nil
		}
		raw, ok := cat[id]
		if !ok {
			return nil
		}
		meta, err = decodeMetadata(id, raw)
		if err != nil {
			metrics.ConsistencyFaults.Inc()
			logging.Warn("unreadable catalogue entry", "app_id", id, "error", err)
			return nil
		}
		d.apps[id] = meta
	}

	data, err := d.dao.GetAppData(id)
	if errors.Is(err, database.ErrNotFound) {
		metrics.ConsistencyFaults.Inc()
		logging.Error("inconsistent directory: app is in the catalogue but has no data record", "app_id", id)
		return nil
	}
	if err != nil {
		metrics.ConsistencyFaults.Inc()
		logging.Error("failed to read app data", "app_id", id, "error", err)
		return nil
	}
	if data.ID != id {
		metrics.ConsistencyFaults.Inc()
		logging.Error("inconsistent directory: data record id mismatch", "app_id", id, "data_id", data.ID)
		return nil
	}

	return NewSandboxApp(meta.Clone(), data, d.b)
}

// Set saves app's metadata and data. The data record is written before the catalogue
// entry so a reader never sees an entry without data.
func (d *AppDirectory) Set(app *SandboxApp) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	meta := app.Metadata.Clone()
	d.apps[app.ID] = meta

	if err := d.dao.PutAppData(app.Data); err != nil {
		return fmt.Errorf("save app data %s: %w", app.ID, err)
	}

	cat := d.readCatalogueLocked()
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	cat[app.ID] = raw

	if err := d.dao.PutCatalogue(cat); err != nil {
		return fmt.Errorf("save catalogue: %w", err)
	}

	logging.Info("app saved", "app_id", app.ID, "status", meta.Status,
		"messages", len(app.Data.MessageHistory), "component_len", len(app.Data.CurrentComponent),
		"catalogue_size", len(cat))
	return nil
}

// Remove drops id from the cache, the catalogue and the data records
func (d *AppDirectory) Remove(id string) error {
	return d.remove(id, "")
}

// remove is Remove with the reason carried on the removal event
func (d *AppDirectory) remove(id, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removeLocked(id, reason)
}

func (d *AppDirectory) removeLocked(id, reason string) error {
	delete(d.apps, id)

	cat := d.readCatalogueLocked()
	delete(cat, id)
	if err := d.dao.PutCatalogue(cat); err != nil {
		return fmt.Errorf("save catalogue: %w", err)
	}
	if err := d.dao.DeleteAppData(id); err != nil {
		return fmt.Errorf("delete app data %s: %w", id, err)
	}

	metrics.CatalogueSize.Set(float64(len(d.apps)))
	logging.Info("app removed", "app_id", id, "reason", reason)
	if d.b != nil {
		d.b.publish(events.NewEvent(events.TopicAppRemoved, id, "").WithReason(reason))
	}
	return nil
}

// readCatalogueLocked current stored catalogue; rebuilt from the cache when unreadable
func (d *AppDirectory) readCatalogueLocked() dao.Catalogue {
	cat, err := d.dao.GetCatalogue()
	if err == nil {
		return cat
	}

	logging.Error("stored catalogue unreadable, rebuilding from cache", "error", err)
	cat = dao.Catalogue{}
	for id, meta := range d.apps {
		raw, err := json.Marshal(meta)
		if err != nil {
			continue
		}
		cat[id] = raw
	}
	return cat
}

// List snapshot of cached metadata, newest first
func (d *AppDirectory) List() []*model.AppMetadata {
	d.mu.Lock()
	defer d.mu.Unlock()

	list := make([]*model.AppMetadata, 0, len(d.apps))
	for _, meta := range d.apps {
		list = append(list, meta.Clone())
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// IDs cached ids in key order
func (d *AppDirectory) IDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]string, 0, len(d.apps))
	for id := range d.apps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CleanupPolicy reconciliation tuning
type CleanupPolicy struct {
	// Liveness probes per app; the app survives if any succeeds. 1 removes on the
	// first failed probe.
	ProbeAttempts int
	ProbeDelay    time.Duration

	// Delete data records that no catalogue entry references
	PruneOrphans bool
}

// Reasons an entry is dropped by Cleanup
const (
	RemovedInconsistent = "inconsistent"
	RemovedUnreachable  = "unreachable"
	RemovedTerminated   = "terminated"
	RemovedOrphan       = "orphan"
)

// CleanupReport outcome of one reconciliation pass
type CleanupReport struct {
	Checked int                 `json:"checked"`
	Kept    int                 `json:"kept"`
	Removed map[string][]string `json:"removed"` // reason -> ids
	Errors  []string            `json:"errors,omitempty"`
}

func (r *CleanupReport) remove(reason, id string) {
	r.Removed[reason] = append(r.Removed[reason], id)
	metrics.CleanupRemoved.WithLabelValues(reason).Inc()
}

// RemovedCount total entries removed
func (r *CleanupReport) RemovedCount() int {
	n := 0
	for _, ids := range r.Removed {
		n += len(ids)
	}
	return n
}

// Cleanup reloads the catalogue and removes every app that cannot be reconstructed,
// is already TERMINATED, or fails its liveness probes. Removal is not transactional
// with the probe: an app that comes back between the two is still dropped.
func (d *AppDirectory) Cleanup(ctx context.Context, policy CleanupPolicy) *CleanupReport {
	report := &CleanupReport{Removed: map[string][]string{}}

	d.Load()
	ids := d.IDs()
	logging.Info("cleaning up dead apps", "apps", len(ids))

	for _, id := range ids {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, ctx.Err().Error())
			break
		}
		report.Checked++

		reason, app := d.deadReason(ctx, id, policy)
		if reason == "" {
			report.Kept++
			continue
		}

		logging.Info("removing app", "app_id", id, "reason", reason)
		if app != nil {
			d.destroySandbox(ctx, app)
		}
		if err := d.remove(id, reason); err != nil {
			logging.Error("failed to remove app", "app_id", id, "error", err)
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		report.remove(reason, id)
	}

	if policy.PruneOrphans {
		d.pruneOrphans(report)
	}

	logging.Info("cleanup finished", "checked", report.Checked, "kept", report.Kept, "removed", report.RemovedCount())
	return report
}

// deadReason why id should be removed, or "" to keep it. The app is returned
// whenever it could be reconstructed.
func (d *AppDirectory) deadReason(ctx context.Context, id string, policy CleanupPolicy) (string, *SandboxApp) {
	app := d.Get(id)
	if app == nil {
		return RemovedInconsistent, nil
	}
	if app.Status().IsTerminal() {
		return RemovedTerminated, app
	}

	attempts := policy.ProbeAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 1; i <= attempts; i++ {
		if app.IsAlive(ctx) {
			return "", app
		}
		if i < attempts {
			select {
			case <-ctx.Done():
				return "", app
			case <-time.After(policy.ProbeDelay):
			}
		}
	}
	return RemovedUnreachable, app
}

// destroySandbox releases the provisioned sandbox of a dead app, best effort.
// A sandbox the provisioner no longer knows is already gone.
func (d *AppDirectory) destroySandbox(ctx context.Context, app *SandboxApp) {
	if d.b == nil || d.b.Provisioner == nil || app.Data.SandboxObjectID == "" {
		return
	}
	err := d.b.Provisioner.Destroy(ctx, app.Data.SandboxObjectID)
	switch {
	case err == nil:
		logging.Info("destroyed sandbox of dead app", "app_id", app.ID, "sandbox_id", app.Data.SandboxObjectID)
	case errors.Is(err, provisioner_service.ErrSandboxNotFound):
		logging.Debug("sandbox already gone", "app_id", app.ID, "sandbox_id", app.Data.SandboxObjectID)
	default:
		logging.Warn("failed to destroy sandbox of dead app", "app_id", app.ID, "sandbox_id", app.Data.SandboxObjectID, "error", err)
	}
}

// pruneOrphans deletes data records missing from the catalogue
func (d *AppDirectory) pruneOrphans(report *CleanupReport) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids, err := d.dao.ListAppDataIDs()
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return
	}
	cat, err := d.dao.GetCatalogue()
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return
	}

	for _, id := range ids {
		if _, ok := cat[id]; ok {
			continue
		}
		if err := d.dao.DeleteAppData(id); err != nil {
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		logging.Info("removed orphaned data record", "app_id", id)
		report.remove(RemovedOrphan, id)
	}
}
