package sandbox_service

import (
	"context"
	"fmt"

	"sandbox-app-service/logging"
	model "sandbox-app-service/models"
	"sandbox-app-service/models/dao"
	"sandbox-app-service/relay"
)

// SandboxAppService operations exposed to the HTTP layer and the CLI
type SandboxAppService struct {
	dir     *AppDirectory
	b       *Backends
	image   string
	health  RetryPolicy
	cleanup CleanupPolicy
	status  *dao.CleanupStatusDAO
}

// ServiceOptions image and policies used by the service
type ServiceOptions struct {
	Image   string
	Health  RetryPolicy
	Cleanup CleanupPolicy

	// CleanupStatus records reconciliation totals when set
	CleanupStatus *dao.CleanupStatusDAO
}

// NewSandboxAppService create service over dir
func NewSandboxAppService(dir *AppDirectory, b *Backends, opts ServiceOptions) *SandboxAppService {
	if opts.Health.MaxAttempts == 0 {
		opts.Health = DefaultRetryPolicy()
	}
	return &SandboxAppService{
		dir:     dir,
		b:       b,
		image:   opts.Image,
		health:  opts.Health,
		cleanup: opts.Cleanup,
		status:  opts.CleanupStatus,
	}
}

// Directory underlying directory
func (s *SandboxAppService) Directory() *AppDirectory {
	return s.dir
}

// CreateApp creates a sandbox for prompt and registers it
func (s *SandboxAppService) CreateApp(ctx context.Context, prompt string) (*SandboxApp, error) {
	logging.Info("creating sandbox app", "prompt_len", len(prompt))

	app, err := Create(ctx, s.b, prompt, s.image, s.health)
	if err != nil {
		logging.Error("failed to create sandbox app", "error", err)
		return nil, err
	}

	if err := s.dir.Set(app); err != nil {
		return nil, fmt.Errorf("register app %s: %w", app.ID, err)
	}
	return app, nil
}

// GetApp resolves id, ErrAppNotFound when absent or unreadable
func (s *SandboxAppService) GetApp(id string) (*SandboxApp, error) {
	app := s.dir.Get(id)
	if app == nil {
		return nil, fmt.Errorf("%w: %s", ErrAppNotFound, id)
	}
	return app, nil
}

// EditApp applies text to app id and persists it. A failed edit is not persisted.
func (s *SandboxAppService) EditApp(ctx context.Context, id, text string) (*relay.PushResult, error) {
	app, err := s.GetApp(id)
	if err != nil {
		return nil, err
	}

	res, err := app.Edit(ctx, text)
	if err != nil {
		logging.Error("edit failed", "app_id", id, "error", err)
		return nil, err
	}

	if err := s.dir.Set(app); err != nil {
		return nil, fmt.Errorf("save app %s: %w", id, err)
	}
	return res, nil
}

// Status stored lifecycle status, no probe
func (s *SandboxAppService) Status(id string) (model.AppStatus, error) {
	app, err := s.GetApp(id)
	if err != nil {
		return "", err
	}
	return app.Status(), nil
}

// Ping live heartbeat probe
func (s *SandboxAppService) Ping(ctx context.Context, id string) (bool, error) {
	app, err := s.GetApp(id)
	if err != nil {
		return false, err
	}
	return app.IsAlive(ctx), nil
}

// History ordered conversation of app id
func (s *SandboxAppService) History(id string) ([]*model.Message, error) {
	app, err := s.GetApp(id)
	if err != nil {
		return nil, err
	}
	return app.Data.MessageHistory, nil
}

// TerminateApp destroys the sandbox and removes it from the directory once
// destruction succeeded. Returns false when the provisioner refused.
func (s *SandboxAppService) TerminateApp(ctx context.Context, id string) (bool, error) {
	app, err := s.GetApp(id)
	if err != nil {
		return false, err
	}

	if !app.Terminate(ctx) {
		return false, nil
	}
	if err := s.dir.Remove(id); err != nil {
		return true, fmt.Errorf("remove app %s: %w", id, err)
	}
	return true, nil
}

// ToggleFeature flips the featured flag and persists it
func (s *SandboxAppService) ToggleFeature(id string) (bool, error) {
	app, err := s.GetApp(id)
	if err != nil {
		return false, err
	}

	app.Metadata.IsFeatured = !app.Metadata.IsFeatured
	app.Metadata.Touch(s.b.now())
	if err := s.dir.Set(app); err != nil {
		return false, fmt.Errorf("save app %s: %w", id, err)
	}

	logging.Info("app feature toggled", "app_id", id, "is_featured", app.Metadata.IsFeatured)
	return app.Metadata.IsFeatured, nil
}

// ListApps reloads the catalogue and returns it, newest first
func (s *SandboxAppService) ListApps() []*model.AppMetadata {
	s.dir.Load()
	return s.dir.List()
}

// TerminateAllResult outcome of TerminateAll
type TerminateAllResult struct {
	Terminated int      `json:"terminated"`
	Failed     int      `json:"failed"`
	Skipped    []string `json:"skipped,omitempty"` // ids that could not be reconstructed
}

// TerminateAll terminates every catalogued app and removes it whether or not
// termination succeeded. progress, when set, is called once per app.
func (s *SandboxAppService) TerminateAll(ctx context.Context, progress func(id string, ok bool)) *TerminateAllResult {
	s.dir.Load()
	result := &TerminateAllResult{}

	for _, id := range s.dir.IDs() {
		app := s.dir.Get(id)
		if app == nil {
			logging.Warn("app not found in catalogue", "app_id", id)
			result.Skipped = append(result.Skipped, id)
			if progress != nil {
				progress(id, false)
			}
			continue
		}

		ok := app.Terminate(ctx)
		if err := s.dir.Remove(id); err != nil {
			logging.Error("failed to remove app", "app_id", id, "error", err)
		}
		if ok {
			result.Terminated++
		} else {
			result.Failed++
		}
		if progress != nil {
			progress(id, ok)
		}
	}

	logging.Info("terminate-all finished", "terminated", result.Terminated, "failed", result.Failed)
	return result
}

// Cleanup runs one reconciliation pass with the configured policy
func (s *SandboxAppService) Cleanup(ctx context.Context) *CleanupReport {
	return s.CleanupWith(ctx, s.cleanup)
}

// CleanupWith runs one reconciliation pass with policy
func (s *SandboxAppService) CleanupWith(ctx context.Context, policy CleanupPolicy) *CleanupReport {
	report := s.dir.Cleanup(ctx, policy)
	s.recordCleanup(report)
	return report
}

func (s *SandboxAppService) recordCleanup(report *CleanupReport) {
	if s.status == nil {
		return
	}
	status, err := s.status.Get()
	if err != nil {
		logging.Warn("failed to read cleanup status, starting over", "error", err)
		status = &model.CleanupStatus{}
	}
	status.Record(s.b.now(), report.Checked, report.Kept, report.RemovedCount(), report.Errors)
	if err := s.status.Put(status); err != nil {
		logging.Warn("failed to save cleanup status", "error", err)
	}
}

// ServiceStatus catalogue size and reconciliation totals
type ServiceStatus struct {
	Apps    int                  `json:"apps"`
	Cleanup *model.CleanupStatus `json:"cleanup,omitempty"`
}

// ServiceStatus reports the catalogue size and the last reconciliation pass
func (s *SandboxAppService) ServiceStatus() (*ServiceStatus, error) {
	st := &ServiceStatus{Apps: len(s.ListApps())}
	if s.status == nil {
		return st, nil
	}
	cleanup, err := s.status.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get cleanup status: %w", err)
	}
	st.Cleanup = cleanup
	return st, nil
}
