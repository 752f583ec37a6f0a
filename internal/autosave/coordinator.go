package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/benefitnav/benefitnav/internal/domain"
	"github.com/benefitnav/benefitnav/internal/metrics"
	"github.com/benefitnav/benefitnav/internal/service/logger"
)

// Trigger identifies which event source initiated a save.
type Trigger string

const (
	// TriggerFieldChange fires after a field mutation followed by an idle
	// window with no further edits.
	TriggerFieldChange Trigger = "field_change"
	// TriggerHeartbeat fires on a fixed interval regardless of activity,
	// bounding worst-case staleness.
	TriggerHeartbeat Trigger = "heartbeat"
	// TriggerStepChange fires on wizard navigation and is awaited before the
	// visible step index changes.
	TriggerStepChange Trigger = "step_change"
	// TriggerUnload fires as the host session is torn down; the save must
	// not depend on the session staying alive to complete.
	TriggerUnload Trigger = "unload"
	// TriggerVisibility fires when the session is backgrounded.
	TriggerVisibility Trigger = "visibility"
)

// Snapshot is one complete copy of wizard state, taken atomically at trigger
// time. Saves never carry partial diffs, so concurrent in-flight saves are
// safe to complete in any order: the last write to land replaces the row.
type Snapshot struct {
	DraftID string
	Step    int
	Payload domain.Payload
}

// SnapshotFunc returns the current wizard state. The wizard state owner
// passes this in explicitly; the coordinator never reads shared globals.
type SnapshotFunc func() Snapshot

// SaveFunc persists one snapshot; typically a thin wrapper over the draft
// persistence gateway's SaveDraft.
type SaveFunc func(ctx context.Context, snap Snapshot) error

// Config holds the trigger timings.
type Config struct {
	// DebounceInterval is the idle window after a field change.
	DebounceInterval time.Duration
	// HeartbeatInterval is the fixed periodic save interval.
	HeartbeatInterval time.Duration
	// UnloadTimeout bounds the detached best-effort save on teardown.
	UnloadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = 3 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.UnloadTimeout <= 0 {
		c.UnloadTimeout = 5 * time.Second
	}
	return c
}

// Coordinator funnels five independent trigger sources into one save
// function. Save failures are logged and otherwise ignored: there is no
// retry queue, because the next trigger to fire carries fresher state
// anyway. During a "start fresh" reset every trigger is suppressed so an
// in-flight save from the previous draft cannot resurrect stale data.
type Coordinator struct {
	cfg      Config
	snapshot SnapshotFunc
	save     SaveFunc
	logger   logger.Logger

	lifecycle chan Trigger

	mu           sync.Mutex
	debounce     *time.Timer
	initializing bool

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCoordinator wires a snapshot source and a save function together.
func NewCoordinator(snapshot SnapshotFunc, save SaveFunc, cfg Config, log logger.Logger) *Coordinator {
	return &Coordinator{
		cfg:       cfg.withDefaults(),
		snapshot:  snapshot,
		save:      save,
		logger:    log,
		lifecycle: make(chan Trigger, 8),
		stop:      make(chan struct{}),
	}
}

// Start launches the heartbeat timer and the lifecycle signal consumer.
func (c *Coordinator) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.cfg.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.flush(ctx, TriggerHeartbeat)
			case trigger := <-c.lifecycle:
				c.handleLifecycle(ctx, trigger)
			case <-c.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Lifecycle is the channel a host maps its teardown and visibility signals
// onto. A non-browser host sends TriggerUnload from its shutdown hook and
// TriggerVisibility from its session-backgrounded equivalent, or neither.
func (c *Coordinator) Lifecycle() chan<- Trigger {
	return c.lifecycle
}

func (c *Coordinator) handleLifecycle(ctx context.Context, trigger Trigger) {
	switch trigger {
	case TriggerUnload:
		c.flushDetached(trigger)
	case TriggerVisibility:
		c.flush(ctx, trigger)
	default:
		c.flush(ctx, trigger)
	}
}

// FieldChanged restarts the idle timer. The save fires only if no further
// mutation arrives before the debounce window expires.
func (c *Coordinator) FieldChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initializing {
		return
	}
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.cfg.DebounceInterval, func() {
		c.flush(context.Background(), TriggerFieldChange)
	})
}

// StepChanged saves (newStep, current payload) synchronously so the stored
// step and payload are never inconsistent with each other. Callers await it
// before making the new step visible.
func (c *Coordinator) StepChanged(ctx context.Context, newStep int) {
	if c.isInitializing() {
		return
	}
	snap := c.snapshot()
	snap.Step = newStep
	c.flushSnapshot(ctx, TriggerStepChange, snap)
}

// flushDetached runs a best-effort save that does not depend on the caller
// surviving. Used for the unload trigger.
func (c *Coordinator) flushDetached(trigger Trigger) {
	if c.isInitializing() {
		return
	}
	snap := c.snapshot()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.UnloadTimeout)
		defer cancel()
		c.flushSnapshot(ctx, trigger, snap)
	}()
}

func (c *Coordinator) flush(ctx context.Context, trigger Trigger) {
	if c.isInitializing() {
		return
	}
	c.flushSnapshot(ctx, trigger, c.snapshot())
}

func (c *Coordinator) flushSnapshot(ctx context.Context, trigger Trigger, snap Snapshot) {
	if err := c.save(ctx, snap); err != nil {
		metrics.AutosaveFlushes.WithLabelValues(string(trigger), "failure").Inc()
		// No retry: the next trigger to fire re-sends the latest state.
		c.logger.Warn(ctx, "autosave failed", map[string]interface{}{
			"trigger": string(trigger),
			"step":    snap.Step,
			"error":   err.Error(),
		})
		return
	}
	metrics.AutosaveFlushes.WithLabelValues(string(trigger), "success").Inc()
}

// BeginReset suppresses all triggers and cancels any pending debounce while
// the wizard clears state for a fresh start. A save already in flight may
// still complete against the old draft; the reset's ClearDraft follows it.
func (c *Coordinator) BeginReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initializing = true
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
}

// EndReset re-enables triggers once the fresh state is in place.
func (c *Coordinator) EndReset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initializing = false
}

func (c *Coordinator) isInitializing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initializing
}

// Stop ends the timer loop and waits for detached saves to finish.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})

	c.mu.Lock()
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	c.mu.Unlock()

	c.wg.Wait()
}
