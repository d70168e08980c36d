package load

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cwbudde/clburn/internal/cl"
)

func intelPlatforms(deviceNames ...string) []cl.Platform {
	devices := make([]cl.Device, len(deviceNames))
	for i, name := range deviceNames {
		devices[i] = cl.Device{Name: name, Type: cl.DeviceTypeGPU}
	}
	return []cl.Platform{
		{
			Name:    "Intel(R) OpenCL Graphics",
			Vendor:  "Intel(R) Corporation",
			Devices: devices,
		},
	}
}

// fakeRunner records that it ran and returns a canned result.
type fakeRunner struct {
	index  int
	target cl.Target
	err    error
	ran    *atomic.Int32
}

func (r *fakeRunner) Run(ctx context.Context) error {
	if r.ran != nil {
		r.ran.Add(1)
	}
	return r.err
}

func TestOrchestrator_NoMatchingDevices(t *testing.T) {
	factoryCalls := 0

	o := &Orchestrator{
		Vendor:    "Intel",
		Enumerate: func() ([]cl.Platform, error) { return nil, nil },
		NewRunner: func(target cl.Target, index int) Runner {
			factoryCalls++
			return &fakeRunner{}
		},
	}

	err := o.Run(context.Background())
	if !errors.Is(err, cl.ErrNoDevices) {
		t.Fatalf("expected ErrNoDevices, got %v", err)
	}
	if factoryCalls != 0 {
		t.Errorf("no runners should be created without devices, got %d", factoryCalls)
	}
}

func TestOrchestrator_NonMatchingVendorIsFatal(t *testing.T) {
	o := &Orchestrator{
		Vendor:    "Intel",
		Enumerate: func() ([]cl.Platform, error) {
			return []cl.Platform{{
				Vendor:  "NVIDIA Corporation",
				Devices: []cl.Device{{Name: "rtx", Type: cl.DeviceTypeGPU}},
			}}, nil
		},
		NewRunner: func(target cl.Target, index int) Runner {
			t.Fatal("runner created for a non-matching vendor")
			return nil
		},
	}

	if err := o.Run(context.Background()); !errors.Is(err, cl.ErrNoDevices) {
		t.Fatalf("expected ErrNoDevices, got %v", err)
	}
}

func TestOrchestrator_EnumerationErrorPropagates(t *testing.T) {
	boom := fmt.Errorf("driver exploded")

	o := &Orchestrator{
		Vendor:    "Intel",
		Enumerate: func() ([]cl.Platform, error) { return nil, boom },
		NewRunner: func(target cl.Target, index int) Runner { return &fakeRunner{} },
	}

	if err := o.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected enumeration error, got %v", err)
	}
}

func TestOrchestrator_OneRunnerPerDevice(t *testing.T) {
	var mu sync.Mutex
	var created []*fakeRunner

	o := &Orchestrator{
		Vendor:    "Intel",
		Enumerate: func() ([]cl.Platform, error) { return intelPlatforms("gpu0", "gpu1", "gpu2"), nil },
		NewRunner: func(target cl.Target, index int) Runner {
			r := &fakeRunner{index: index, target: target}
			mu.Lock()
			created = append(created, r)
			mu.Unlock()
			return r
		},
	}

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(created) != 3 {
		t.Fatalf("expected 3 runners, got %d", len(created))
	}
	for i, r := range created {
		if r.index != i {
			t.Errorf("runner %d: expected index %d, got %d", i, i, r.index)
		}
		want := fmt.Sprintf("gpu%d", i)
		if r.target.Device.Name != want {
			t.Errorf("runner %d: expected device %q, got %q", i, want, r.target.Device.Name)
		}
	}
}

func TestOrchestrator_FaultIsolation(t *testing.T) {
	// The first runner fails immediately; its sibling must still run, and
	// the orchestrator must not report the failure.
	var sibling atomic.Int32

	o := &Orchestrator{
		Vendor:    "Intel",
		Enumerate: func() ([]cl.Platform, error) { return intelPlatforms("gpu0", "gpu1"), nil },
		NewRunner: func(target cl.Target, index int) Runner {
			if index == 0 {
				return &fakeRunner{err: fmt.Errorf("compile failed")}
			}
			return &fakeRunner{ran: &sibling}
		},
	}

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("worker failures must not propagate, got %v", err)
	}
	if sibling.Load() != 1 {
		t.Errorf("sibling runner did not run")
	}
}

func TestOrchestrator_StaggerBetweenLaunches(t *testing.T) {
	const stagger = 50 * time.Millisecond

	var mu sync.Mutex
	var launches []time.Time

	o := &Orchestrator{
		Vendor:    "Intel",
		Stagger:   stagger,
		Enumerate: func() ([]cl.Platform, error) {
			return intelPlatforms("gpu0", "gpu1", "gpu2"), nil
		},
		NewRunner: func(target cl.Target, index int) Runner {
			mu.Lock()
			launches = append(launches, time.Now())
			mu.Unlock()
			return &fakeRunner{}
		},
	}

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(launches) != 3 {
		t.Fatalf("expected 3 launches, got %d", len(launches))
	}
	for i := 1; i < len(launches); i++ {
		if gap := launches[i].Sub(launches[i-1]); gap < stagger-5*time.Millisecond {
			t.Errorf("launch %d followed %d after only %s", i, i-1, gap)
		}
	}
}

func TestOrchestrator_SingleDeviceLaunchesImmediately(t *testing.T) {
	o := &Orchestrator{
		Vendor:    "Intel",
		Stagger:   time.Second,
		Enumerate: func() ([]cl.Platform, error) { return intelPlatforms("gpu0"), nil },
		NewRunner: func(target cl.Target, index int) Runner { return &fakeRunner{} },
	}

	start := time.Now()
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Errorf("single-device run should not stagger, took %s", elapsed)
	}
}

// loopingRunner fakes the dispatch loop: it counts cycles until cancelled.
type loopingRunner struct {
	entered    atomic.Bool
	dispatches atomic.Int64
}

func (r *loopingRunner) Run(ctx context.Context) error {
	r.entered.Store(true)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		r.dispatches.Add(1)
		time.Sleep(time.Millisecond)
	}
}

func TestOrchestrator_EndToEndTwoDevices(t *testing.T) {
	runners := []*loopingRunner{{}, {}}

	o := &Orchestrator{
		Vendor:    "Intel",
		Stagger:   5 * time.Millisecond,
		Enumerate: func() ([]cl.Platform, error) { return intelPlatforms("gpu0", "gpu1"), nil },
		NewRunner: func(target cl.Target, index int) Runner { return runners[index] },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	// Both runners must reach their dispatch loop and keep cycling.
	deadline := time.After(5 * time.Second)
	for {
		if runners[0].dispatches.Load() >= 5 && runners[1].dispatches.Load() >= 5 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("runners did not reach a cycling dispatch loop in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	for i, r := range runners {
		if !r.entered.Load() {
			t.Errorf("runner %d never entered its loop", i)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not stop after cancellation")
	}
}
