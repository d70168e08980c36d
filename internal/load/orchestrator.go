package load

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwbudde/clburn/internal/cl"
	"github.com/cwbudde/clburn/internal/metrics"
)

// Runner keeps one device busy until it fails or the context is cancelled.
// Implementations log their own failures.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFactory builds the runner for one discovered target. index is the
// target's enumeration-order position.
type RunnerFactory func(target cl.Target, index int) Runner

// Orchestrator discovers matching accelerators and runs one independent
// runner per device. The runners share nothing; the only coordination is the
// staggered start applied while launching them.
type Orchestrator struct {
	Vendor    string
	Stagger   time.Duration
	Enumerate func() ([]cl.Platform, error)
	NewRunner RunnerFactory
}

// Run enumerates devices, launches one goroutine per target, and blocks
// until all of them have exited. Zero matching devices is an error; a runner
// failing after launch is not. With more than one device, each launch after
// the first is delayed by Stagger so concurrent kernel compiles don't pile
// onto a shared driver at once.
func (o *Orchestrator) Run(ctx context.Context) error {
	platforms, err := o.Enumerate()
	if err != nil {
		return err
	}

	targets := cl.FilterAccelerators(platforms, o.Vendor)
	if len(targets) == 0 {
		return fmt.Errorf("%w matching vendor %q", cl.ErrNoDevices, o.Vendor)
	}

	slog.Info("Discovered accelerators", "vendor", o.Vendor, "count", len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		if i > 0 && o.Stagger > 0 {
			time.Sleep(o.Stagger)
		}

		runner := o.NewRunner(target, i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.WorkersRunning.Inc()
			defer metrics.WorkersRunning.Dec()

			// Runners log their own outcome; a failure here must not
			// disturb the siblings.
			_ = runner.Run(ctx)
		}()
	}

	wg.Wait()
	return nil
}
