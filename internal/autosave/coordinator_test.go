package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benefitnav/benefitnav/internal/domain"
	"github.com/benefitnav/benefitnav/internal/service/logger"
)

type saveRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
	err   error
}

func (r *saveRecorder) save(ctx context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	return r.err
}

func (r *saveRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *saveRecorder) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

type wizardState struct {
	mu      sync.Mutex
	step    int
	payload domain.Payload
}

func (s *wizardState) set(step int, payload domain.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = step
	s.payload = payload
}

func (s *wizardState) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Step: s.step, Payload: s.payload}
}

func testConfig() Config {
	return Config{
		DebounceInterval:  50 * time.Millisecond,
		HeartbeatInterval: time.Hour, // effectively off unless a test wants it
		UnloadTimeout:     time.Second,
	}
}

func TestCoordinator_DebounceCoalescesRapidEdits(t *testing.T) {
	recorder := &saveRecorder{}
	state := &wizardState{payload: domain.Payload{"benefitType": "snap"}}
	c := NewCoordinator(state.snapshot, recorder.save, testConfig(), logger.NewNop())
	defer c.Stop()

	for i := 0; i < 10; i++ {
		c.FieldChanged()
	}

	time.Sleep(200 * time.Millisecond)

	if got := recorder.count(); got != 1 {
		t.Errorf("Expected exactly one coalesced save, got %d", got)
	}
}

func TestCoordinator_DebouncedSaveCarriesLatestState(t *testing.T) {
	recorder := &saveRecorder{}
	state := &wizardState{}
	c := NewCoordinator(state.snapshot, recorder.save, testConfig(), logger.NewNop())
	defer c.Stop()

	state.set(1, domain.Payload{"benefitType": "snap"})
	c.FieldChanged()
	// A later edit inside the debounce window; the eventual save must carry it.
	state.set(1, domain.Payload{"benefitType": "both"})
	c.FieldChanged()

	time.Sleep(200 * time.Millisecond)

	if got := recorder.count(); got != 1 {
		t.Fatalf("Expected one save, got %d", got)
	}
	if recorder.last().Payload["benefitType"] != "both" {
		t.Errorf("Expected save to carry the latest payload, got %v", recorder.last().Payload)
	}
}

func TestCoordinator_StepChangeSavesSynchronously(t *testing.T) {
	recorder := &saveRecorder{}
	state := &wizardState{payload: domain.Payload{"benefitType": "medicaid"}}
	c := NewCoordinator(state.snapshot, recorder.save, testConfig(), logger.NewNop())
	defer c.Stop()

	c.StepChanged(context.Background(), 4)

	if got := recorder.count(); got != 1 {
		t.Fatalf("Expected one save by the time StepChanged returns, got %d", got)
	}
	if recorder.last().Step != 4 {
		t.Errorf("Expected saved step 4, got %d", recorder.last().Step)
	}
}

func TestCoordinator_EditThenNavigateNeverSavesStaleState(t *testing.T) {
	recorder := &saveRecorder{}
	state := &wizardState{}
	c := NewCoordinator(state.snapshot, recorder.save, testConfig(), logger.NewNop())
	defer c.Stop()

	// Edit a field, then navigate before the idle window elapses.
	state.set(2, domain.Payload{"state": "PA"})
	c.FieldChanged()
	c.StepChanged(context.Background(), 3)

	// The awaited navigation save carries the edit.
	if got := recorder.count(); got < 1 {
		t.Fatal("Expected the navigation save to have completed")
	}
	first := recorder.last()
	if first.Step != 3 || first.Payload["state"] != "PA" {
		t.Errorf("Expected step 3 with the latest payload, got %+v", first)
	}

	// If the debounced save fires afterwards it re-sends current state, so no
	// save may ever carry anything older than the navigation save did.
	time.Sleep(200 * time.Millisecond)
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	for _, snap := range recorder.snaps {
		if snap.Payload["state"] != "PA" {
			t.Errorf("Save carried stale payload: %+v", snap)
		}
	}
}

func TestCoordinator_HeartbeatFiresPeriodically(t *testing.T) {
	recorder := &saveRecorder{}
	state := &wizardState{payload: domain.Payload{"benefitType": "snap"}}
	cfg := testConfig()
	cfg.HeartbeatInterval = 30 * time.Millisecond
	c := NewCoordinator(state.snapshot, recorder.save, cfg, logger.NewNop())

	c.Start(context.Background())
	time.Sleep(150 * time.Millisecond)
	c.Stop()

	if got := recorder.count(); got < 2 {
		t.Errorf("Expected at least two heartbeat saves, got %d", got)
	}
}

func TestCoordinator_ResetGateSuppressesAllTriggers(t *testing.T) {
	recorder := &saveRecorder{}
	state := &wizardState{payload: domain.Payload{"benefitType": "snap"}}
	c := NewCoordinator(state.snapshot, recorder.save, testConfig(), logger.NewNop())
	defer c.Stop()

	c.BeginReset()
	c.FieldChanged()
	c.StepChanged(context.Background(), 1)
	time.Sleep(150 * time.Millisecond)

	if got := recorder.count(); got != 0 {
		t.Fatalf("Expected no saves while resetting, got %d", got)
	}

	c.EndReset()
	c.StepChanged(context.Background(), 0)

	if got := recorder.count(); got != 1 {
		t.Errorf("Expected saves to resume after reset, got %d", got)
	}
}

func TestCoordinator_ResetCancelsPendingDebounce(t *testing.T) {
	recorder := &saveRecorder{}
	state := &wizardState{payload: domain.Payload{"benefitType": "snap"}}
	c := NewCoordinator(state.snapshot, recorder.save, testConfig(), logger.NewNop())
	defer c.Stop()

	c.FieldChanged()
	c.BeginReset()
	time.Sleep(150 * time.Millisecond)

	if got := recorder.count(); got != 0 {
		t.Errorf("Expected the pending debounce to be cancelled, got %d saves", got)
	}
}

func TestCoordinator_UnloadSaveCompletesBeforeStopReturns(t *testing.T) {
	recorder := &saveRecorder{}
	state := &wizardState{payload: domain.Payload{"benefitType": "snap"}}
	c := NewCoordinator(state.snapshot, recorder.save, testConfig(), logger.NewNop())

	c.Start(context.Background())
	c.Lifecycle() <- TriggerUnload
	time.Sleep(50 * time.Millisecond)
	c.Stop()

	if got := recorder.count(); got != 1 {
		t.Errorf("Expected the unload save to have completed, got %d", got)
	}
}

func TestCoordinator_VisibilitySignalFlushes(t *testing.T) {
	recorder := &saveRecorder{}
	state := &wizardState{payload: domain.Payload{"benefitType": "snap"}}
	c := NewCoordinator(state.snapshot, recorder.save, testConfig(), logger.NewNop())

	c.Start(context.Background())
	c.Lifecycle() <- TriggerVisibility
	time.Sleep(50 * time.Millisecond)
	c.Stop()

	if got := recorder.count(); got != 1 {
		t.Errorf("Expected one visibility save, got %d", got)
	}
}

func TestCoordinator_SaveFailureDoesNotStopLaterTriggers(t *testing.T) {
	recorder := &saveRecorder{err: errors.New("save failed")}
	state := &wizardState{payload: domain.Payload{"benefitType": "snap"}}
	c := NewCoordinator(state.snapshot, recorder.save, testConfig(), logger.NewNop())
	defer c.Stop()

	c.StepChanged(context.Background(), 1)
	c.StepChanged(context.Background(), 2)

	if got := recorder.count(); got != 2 {
		t.Errorf("Expected both saves attempted despite failures, got %d", got)
	}
}
