package sandbox_service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"sandbox-app-service/database"
	"sandbox-app-service/events"
	model "sandbox-app-service/models"
	"sandbox-app-service/models/dao"
	"sandbox-app-service/relay"
	"sandbox-app-service/service/generator_service"
	"sandbox-app-service/service/provisioner_service"
)

type generateCall struct {
	instruction string
	gc          generator_service.GenerationContext
}

// fakeGenerator answers from per-instruction tables
type fakeGenerator struct {
	mu           sync.Mutex
	artifacts    map[string]string
	explanations map[string]string
	genErr       error
	explainErr   error
	calls        []generateCall
	explainCalls int
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{artifacts: map[string]string{}, explanations: map[string]string{}}
}

func (g *fakeGenerator) GenerateArtifact(_ context.Context, instruction string, gc generator_service.GenerationContext) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// snapshot history so later appends do not leak into the record
	gc.History = append([]*model.Message(nil), gc.History...)
	g.calls = append(g.calls, generateCall{instruction: instruction, gc: gc})
	if g.genErr != nil {
		return "", g.genErr
	}
	if a, ok := g.artifacts[instruction]; ok {
		return a, nil
	}
	return fmt.Sprintf("export default function LLMComponent(){ /* %s */ }", instruction), nil
}

func (g *fakeGenerator) Explain(_ context.Context, instruction, _, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.explainCalls++
	if g.explainErr != nil {
		return "", g.explainErr
	}
	if e, ok := g.explanations[instruction]; ok {
		return e, nil
	}
	return "Done: " + instruction, nil
}

// fakeProvisioner hands out sandboxes with fixed URLs
type fakeProvisioner struct {
	mu         sync.Mutex
	sandbox    provisioner_service.Sandbox
	err        error
	destroyErr error
	destroyed  []string
}

func (p *fakeProvisioner) Provision(context.Context, string) (*provisioner_service.Sandbox, error) {
	if p.err != nil {
		return nil, p.err
	}
	sb := p.sandbox
	return &sb, nil
}

func (p *fakeProvisioner) Destroy(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyErr != nil {
		return p.destroyErr
	}
	p.destroyed = append(p.destroyed, id)
	return nil
}

func (p *fakeProvisioner) destroyedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.destroyed...)
}

// fakeControl stands in for the control endpoint HTTP layer and counts calls
type fakeControl struct {
	mu         sync.Mutex
	aliveAfter map[string]int // url -> first successful heartbeat; missing or 0 never succeeds
	heartbeats map[string]int
	pushCode   int
	pushes     []string
}

func newFakeControl() *fakeControl {
	return &fakeControl{aliveAfter: map[string]int{}, heartbeats: map[string]int{}}
}

func (c *fakeControl) setAliveAfter(url string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliveAfter[url] = n
}

func (c *fakeControl) Heartbeat(ctx context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.heartbeats[url]++
	if err := ctx.Err(); err != nil {
		return err
	}
	if after := c.aliveAfter[url]; after > 0 && c.heartbeats[url] >= after {
		return nil
	}
	return errors.New("connection refused")
}

func (c *fakeControl) Push(_ context.Context, url, component string) (*relay.PushResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pushes = append(c.pushes, component)
	if c.pushCode >= 300 {
		return nil, &relay.StatusError{Op: "push", StatusCode: c.pushCode, Body: "Internal Server Error"}
	}
	return &relay.PushResult{StatusCode: http.StatusOK, Status: "ok", Body: []byte(`{"status":"ok"}`)}, nil
}

func (c *fakeControl) heartbeatCount(url string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heartbeats[url]
}

func (c *fakeControl) pushCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pushes)
}

// rendezvousGenerator blocks its first generation until peer is closed
type rendezvousGenerator struct {
	*fakeGenerator
	started chan struct{}
	peer    <-chan struct{}
}

func (g *rendezvousGenerator) GenerateArtifact(ctx context.Context, instruction string, gc generator_service.GenerationContext) (string, error) {
	close(g.started)
	select {
	case <-g.peer:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return g.fakeGenerator.GenerateArtifact(ctx, instruction, gc)
}

// rendezvousProvisioner blocks provisioning until peer is closed
type rendezvousProvisioner struct {
	*fakeProvisioner
	started chan struct{}
	peer    <-chan struct{}
}

func (p *rendezvousProvisioner) Provision(ctx context.Context, image string) (*provisioner_service.Sandbox, error) {
	close(p.started)
	select {
	case <-p.peer:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return p.fakeProvisioner.Provision(ctx, image)
}

// blockingProvisioner never finishes on its own and records why it stopped
type blockingProvisioner struct {
	*fakeProvisioner
	stopped chan error
}

func (p *blockingProvisioner) Provision(ctx context.Context, _ string) (*provisioner_service.Sandbox, error) {
	<-ctx.Done()
	p.stopped <- ctx.Err()
	return nil, ctx.Err()
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) Close() error { return nil }

// reasons app id -> reason of every removal event
func (p *recordingPublisher) reasons() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := map[string]string{}
	for _, e := range p.events {
		if e.Topic == events.TopicAppRemoved {
			out[e.AppID] = e.Reason
		}
	}
	return out
}

// stepClock advances one second per reading
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	gen     *fakeGenerator
	prov    *fakeProvisioner
	control *fakeControl
	b       *Backends
	db      database.Database
	dir     *AppDirectory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		gen: newFakeGenerator(),
		prov: &fakeProvisioner{sandbox: provisioner_service.Sandbox{
			ID: "sb-1", ControlURL: "u1", UserURL: "u2",
		}},
		control: newFakeControl(),
		db:      database.NewMemoryDatabase(),
	}
	clock := &stepClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	f.b = &Backends{
		Generator:   f.gen,
		Provisioner: f.prov,
		Control:     f.control,
		Now:         clock.Now,
	}
	f.dir = NewAppDirectory(dao.NewAppDAOWithDB(f.db), f.b)
	return f
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, Delay: time.Millisecond, AttemptTimeout: time.Second}
}

// newStoredApp builds an app in status with a two-message history
func (f *fixture) newApp(id, controlURL string, status model.AppStatus) *SandboxApp {
	now := f.b.now()
	meta := model.NewAppMetadata(id, "user-"+id, "title "+id, now)
	meta.Status = status
	data := &model.AppData{
		ID:                   id,
		CurrentComponent:     "export default function Initial(){}",
		SandboxTunnelURL:     controlURL,
		SandboxUserTunnelURL: "user-" + id,
		SandboxObjectID:      id,
	}
	data.AppendMessage(model.MessageTypeUser, "first")
	data.AppendMessage(model.MessageTypeAssistant, "Done: first")
	return NewSandboxApp(meta, data, f.b)
}
