package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"nile/internal/config"
	"nile/internal/modules/preference"
)

func newTestRegistry() *Registry {
	return NewRegistry(Deps{
		Planner: newScriptedPlanner(),
		Gateway: &stubGateway{},
		Catalog: preference.MustDefaultCatalog(),
		Engine:  config.EngineConfig{RevealTick: time.Millisecond, SweepInterval: time.Millisecond, SessionIdleTimeout: time.Hour},
	})
}

func TestRegistryOwnership(t *testing.T) {
	r := newTestRegistry()
	t.Cleanup(r.Shutdown)

	owned := r.Create("alice")
	if _, err := r.Get(owned.ID(), "alice"); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := r.Get(owned.ID(), "bob"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	anon := r.Create("")
	if _, err := r.Get(anon.ID(), "bob"); err != nil {
		t.Errorf("anonymous session should be open: %v", err)
	}
	if _, err := r.Get("missing", "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistryClose(t *testing.T) {
	r := newTestRegistry()
	c := r.Create("alice")
	if err := r.Close(c.ID()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-c.Done():
	default:
		t.Error("session goroutine still running after Close")
	}
	if err := r.Close(c.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Close: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("len = %d", r.Len())
	}
}

func TestRegistrySweepClosesIdleSessions(t *testing.T) {
	r := newTestRegistry()
	t.Cleanup(r.Shutdown)
	idle := r.Create("alice")
	fresh := r.Create("bob")

	// touch fresh so only idle is older than the cutoff
	time.Sleep(5 * time.Millisecond)
	if _, err := fresh.Snapshot(context.Background()); err != nil {
		t.Fatal(err)
	}
	cutoff := fresh.LastActive().Sub(idle.LastActive()) / 2
	if n := r.Sweep(fresh.LastActive(), cutoff); n != 1 {
		t.Fatalf("swept %d sessions, want 1", n)
	}
	<-idle.Done()
	if _, err := r.Get(fresh.ID(), "bob"); err != nil {
		t.Errorf("fresh session should survive: %v", err)
	}
}

func TestRunSweeperStopsWithContext(t *testing.T) {
	r := newTestRegistry()
	t.Cleanup(r.Shutdown)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.RunSweeper(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
