package sandbox_service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sandbox-app-service/events"
	"sandbox-app-service/logging"
	"sandbox-app-service/metrics"
	model "sandbox-app-service/models"
	"sandbox-app-service/relay"
	"sandbox-app-service/service/generator_service"
	"sandbox-app-service/service/provisioner_service"

	"golang.org/x/sync/errgroup"
)

// ControlClient control endpoint operations used by a sandbox app
type ControlClient interface {
	Push(ctx context.Context, controlURL, component string) (*relay.PushResult, error)
	Heartbeat(ctx context.Context, controlURL string) error
}

// Backends collaborators shared by every app of a process
type Backends struct {
	Generator   generator_service.ArtifactGenerator
	Provisioner provisioner_service.SandboxProvisioner
	Control     ControlClient
	Events      events.Publisher

	// Now defaults to time.Now
	Now func() time.Time
}

func (b *Backends) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *Backends) publish(e events.Event) {
	if b.Events != nil {
		b.Events.Publish(e)
	}
}

// RetryPolicy heartbeat polling policy.
// Worst case wall time is MaxAttempts * (AttemptTimeout + Delay).
type RetryPolicy struct {
	MaxAttempts    int
	Delay          time.Duration
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy 30 attempts, 1s apart, 10s each
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 30, Delay: time.Second, AttemptTimeout: 10 * time.Second}
}

// SandboxApp one sandbox: identity, cached metadata, conversation and current artifact.
// An instance is not safe for concurrent use.
type SandboxApp struct {
	ID       string
	Metadata *model.AppMetadata
	Data     *model.AppData

	b *Backends
}

// NewSandboxApp wraps stored metadata and data
func NewSandboxApp(meta *model.AppMetadata, data *model.AppData, b *Backends) *SandboxApp {
	return &SandboxApp{ID: meta.ID, Metadata: meta, Data: data, b: b}
}

// Status current lifecycle status
func (a *SandboxApp) Status() model.AppStatus {
	return a.Metadata.Status
}

// transition moves to next through the central transition table and stamps UpdatedAt
func (a *SandboxApp) transition(next model.AppStatus) error {
	from := a.Metadata.Status
	if !from.CanTransition(next) {
		return &InvalidStateError{AppID: a.ID, Status: from, Op: "transition to " + string(next)}
	}
	a.Metadata.Status = next
	a.Metadata.Touch(a.b.now())
	if from != next {
		logging.Info("app status changed", "app_id", a.ID, "from", from, "to", next)
	}
	return nil
}

// Create provisions a sandbox and generates the first artifact concurrently, waits for
// the sandbox to answer heartbeats and delivers the artifact. The returned app is READY,
// or TERMINATED when the sandbox never came up. Nothing is registered on failure.
func Create(ctx context.Context, b *Backends, instruction, image string, policy RetryPolicy) (*SandboxApp, error) {
	var (
		sandbox *provisioner_service.Sandbox
		initial *generator_service.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sb, err := b.Provisioner.Provision(gctx, image)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrProvisioning, err)
		}
		sandbox = sb
		return nil
	})
	g.Go(func() error {
		res, err := generator_service.GenerateAndExplain(gctx, b.Generator, instruction, generator_service.GenerationContext{})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		initial = res
		return nil
	})

	if err := g.Wait(); err != nil {
		if sandbox != nil {
			destroyOrphan(ctx, b, sandbox.ID)
		}
		metrics.AppsCreated.WithLabelValues("failed").Inc()
		return nil, err
	}

	now := b.now()
	data := &model.AppData{
		ID:                   sandbox.ID,
		CurrentComponent:     initial.Artifact,
		SandboxTunnelURL:     sandbox.ControlURL,
		SandboxUserTunnelURL: sandbox.UserURL,
		SandboxObjectID:      sandbox.ID,
	}
	data.AppendMessage(model.MessageTypeUser, instruction)
	data.AppendMessage(model.MessageTypeAssistant, initial.Explanation)

	app := NewSandboxApp(model.NewAppMetadata(sandbox.ID, sandbox.UserURL, instruction, now), data, b)
	logging.Info("sandbox created", "app_id", app.ID, "control_url", data.SandboxTunnelURL)

	if err := app.WaitForAlive(ctx, policy); err != nil {
		destroyOrphan(ctx, b, sandbox.ID)
		metrics.AppsCreated.WithLabelValues("failed").Inc()
		return nil, err
	}

	if app.Status() == model.AppStatusReady {
		res, err := b.Control.Push(ctx, data.SandboxTunnelURL, data.CurrentComponent)
		if err != nil {
			destroyOrphan(ctx, b, sandbox.ID)
			metrics.AppsCreated.WithLabelValues("failed").Inc()
			return nil, newDeliveryError(app.ID, err)
		}
		logging.Info("initial artifact delivered", "app_id", app.ID, "http_status", res.StatusCode, "sandbox_status", res.Status)
	}

	metrics.AppsCreated.WithLabelValues(string(app.Status())).Inc()
	b.publish(events.NewEvent(events.TopicAppCreated, app.ID, string(app.Status())))
	return app, nil
}

// destroyOrphan best-effort destroy of a sandbox that will never be registered
func destroyOrphan(ctx context.Context, b *Backends, sandboxID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := b.Provisioner.Destroy(ctx, sandboxID); err != nil {
		logging.Warn("failed to destroy orphaned sandbox", "sandbox_id", sandboxID, "error", err)
	}
}

func newDeliveryError(appID string, err error) *DeliveryError {
	de := &DeliveryError{AppID: appID, Err: err}
	var se *relay.StatusError
	if errors.As(err, &se) {
		de.StatusCode = se.StatusCode
	}
	return de
}

// Edit applies instruction to the current artifact and delivers the result.
//
// The user message and the regenerated artifact stay on the app when delivery fails;
// status and UpdatedAt only change once delivery succeeds. Callers decide whether to
// retry delivery or discard the instance.
func (a *SandboxApp) Edit(ctx context.Context, instruction string) (*relay.PushResult, error) {
	if !a.Status().Editable() {
		metrics.Edits.WithLabelValues("invalid_state").Inc()
		return nil, &InvalidStateError{AppID: a.ID, Status: a.Status(), Op: "edit"}
	}

	a.Data.AppendMessage(model.MessageTypeUser, instruction)
	before := a.Data.CurrentComponent

	artifact, err := a.b.Generator.GenerateArtifact(ctx, instruction, generator_service.GenerationContext{
		PriorArtifact: before,
		History:       a.Data.MessageHistory,
	})
	if err != nil {
		metrics.Edits.WithLabelValues("generation").Inc()
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	a.Data.CurrentComponent = artifact

	res, err := a.b.Control.Push(ctx, a.Data.SandboxTunnelURL, artifact)
	if err != nil {
		metrics.Edits.WithLabelValues("delivery").Inc()
		logging.Warn("artifact delivery failed", "app_id", a.ID, "error", err)
		return nil, newDeliveryError(a.ID, err)
	}
	logging.Info("artifact delivered", "app_id", a.ID, "http_status", res.StatusCode, "sandbox_status", res.Status)

	explanation, err := a.b.Generator.Explain(ctx, instruction, before, artifact)
	if err != nil {
		metrics.Edits.WithLabelValues("generation").Inc()
		return nil, fmt.Errorf("%w: explain: %w", ErrGeneration, err)
	}
	a.Data.AppendMessage(model.MessageTypeAssistant, explanation)

	if err := a.transition(model.AppStatusActive); err != nil {
		return nil, err
	}

	metrics.Edits.WithLabelValues("ok").Inc()
	a.b.publish(events.NewEvent(events.TopicAppEdited, a.ID, string(a.Status())))
	return res, nil
}

// WaitForAlive polls the heartbeat until it answers or the attempt budget runs out.
// It moves a CREATED app to READY on the first success and any app to TERMINATED after
// the last failure; failed attempts are never returned as errors. The only error is ctx
// cancellation, which leaves the status untouched.
func (a *SandboxApp) WaitForAlive(ctx context.Context, policy RetryPolicy) error {
	if a.Status().IsTerminal() {
		return nil
	}
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		logging.Debug("health check", "app_id", a.ID, "attempt", attempt, "max_attempts", attempts)

		err := a.heartbeat(ctx, policy.AttemptTimeout)
		if err == nil {
			metrics.HeartbeatAttempts.WithLabelValues("ok").Inc()
			if a.Status() == model.AppStatusCreated {
				_ = a.transition(model.AppStatusReady)
			}
			logging.Info("sandbox is ready", "app_id", a.ID, "attempt", attempt)
			return nil
		}
		metrics.HeartbeatAttempts.WithLabelValues("failed").Inc()
		logging.Debug("health check failed", "app_id", a.ID, "attempt", attempt, "error", err)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Delay):
		}
	}

	logging.Warn("sandbox failed to become ready", "app_id", a.ID, "attempts", attempts)
	_ = a.transition(model.AppStatusTerminated)
	return nil
}

func (a *SandboxApp) heartbeat(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return a.b.Control.Heartbeat(ctx, a.Data.SandboxTunnelURL)
}

// IsAlive probes the heartbeat once. A TERMINATED app is never probed.
func (a *SandboxApp) IsAlive(ctx context.Context) bool {
	if a.Status().IsTerminal() {
		return false
	}
	if err := a.heartbeat(ctx, 0); err != nil {
		logging.Debug("liveness probe failed", "app_id", a.ID, "error", err)
		return false
	}
	return true
}

// Terminate destroys the sandbox. Failures are logged and reported as false;
// calling it again is safe.
func (a *SandboxApp) Terminate(ctx context.Context) bool {
	if err := a.b.Provisioner.Destroy(ctx, a.Data.SandboxObjectID); err != nil {
		metrics.Terminations.WithLabelValues("failed").Inc()
		logging.Warn("failed to terminate sandbox", "app_id", a.ID, "sandbox_id", a.Data.SandboxObjectID, "error", err)
		return false
	}

	if !a.Status().IsTerminal() {
		_ = a.transition(model.AppStatusTerminated)
	}
	metrics.Terminations.WithLabelValues("ok").Inc()
	logging.Info("sandbox terminated", "app_id", a.ID, "sandbox_id", a.Data.SandboxObjectID)
	a.b.publish(events.NewEvent(events.TopicAppTerminated, a.ID, string(a.Status())))
	return true
}
