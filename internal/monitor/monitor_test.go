package monitor

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandk/offroad-dynamics/internal/run"
	"github.com/sandk/offroad-dynamics/pkg/core"
)

func testService(t *testing.T) (*Service, *run.Context) {
	t.Helper()
	runCtx := run.NewContext()
	svc := NewService(Dependencies{
		RunContext: runCtx,
		StatusDir:  t.TempDir(),
		Logger:     zerolog.Nop(),
	})
	return svc, runCtx
}

func TestGetStatus_Empty(t *testing.T) {
	svc, _ := testService(t)

	status := svc.GetStatus()
	if status.Tick != 0 {
		t.Errorf("expected tick 0 with no observations, got %d", status.Tick)
	}
	if status.AvgTickMs != 0 {
		t.Errorf("expected zero average with no observations, got %f", status.AvgTickMs)
	}
}

func TestGetStatus_Aggregates(t *testing.T) {
	svc, runCtx := testService(t)
	runCtx.Set(&core.Run{ID: 1, Name: "dune run"})

	svc.Observe(core.TickStats{Tick: 1, Duration: 1 * time.Millisecond, Vehicles: 3})
	svc.Observe(core.TickStats{Tick: 2, Duration: 3 * time.Millisecond, Vehicles: 3})

	status := svc.GetStatus()
	if status.Run != "dune run" {
		t.Errorf("expected run name in status, got %q", status.Run)
	}
	if status.Tick != 2 {
		t.Errorf("expected latest tick 2, got %d", status.Tick)
	}
	if status.Vehicles != 3 {
		t.Errorf("expected 3 vehicles, got %d", status.Vehicles)
	}
	if status.AvgTickMs != 2 {
		t.Errorf("expected 2ms average, got %f", status.AvgTickMs)
	}
	if status.MaxTickMs != 3 {
		t.Errorf("expected 3ms max, got %f", status.MaxTickMs)
	}
}

func TestObserve_WindowBounded(t *testing.T) {
	svc, _ := testService(t)

	for tick := uint64(1); tick <= uint64(statsWindow)+50; tick++ {
		svc.Observe(core.TickStats{Tick: tick, Duration: time.Millisecond})
	}

	if len(svc.window) != statsWindow {
		t.Errorf("expected window capped at %d, got %d", statsWindow, len(svc.window))
	}
	status := svc.GetStatus()
	if status.Tick != uint64(statsWindow)+50 {
		t.Errorf("expected latest tick to survive the window, got %d", status.Tick)
	}
}

func TestStartStop(t *testing.T) {
	svc, _ := testService(t)

	if err := svc.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !svc.IsRunning() {
		t.Error("expected monitor to be running after Start")
	}

	// second Start is a no-op
	if err := svc.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	svc.Stop()
	deadline := time.After(2 * time.Second)
	for svc.IsRunning() {
		select {
		case <-deadline:
			t.Fatal("monitor did not stop")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}
