package load

// teardown collects release functions as resources are acquired and runs
// them in reverse-acquisition order. Running it is safe after a setup step
// failed partway: only the steps that were actually registered execute.
// A second run is a no-op.
type teardown struct {
	steps []func()
}

func (t *teardown) add(fn func()) {
	t.steps = append(t.steps, fn)
}

func (t *teardown) run() {
	for i := len(t.steps) - 1; i >= 0; i-- {
		t.steps[i]()
	}
	t.steps = nil
}
