//go:build !gpu

package load

import (
	"context"

	"github.com/cwbudde/clburn/internal/cl"
)

// Worker is a placeholder when OpenCL support is not compiled.
type Worker struct{}

// NewWorker returns a placeholder worker whose Run reports the missing
// build tag.
func NewWorker(target cl.Target, index, elements, rounds int) *Worker {
	return &Worker{}
}

// Run returns an error when OpenCL support is not compiled in.
func (w *Worker) Run(ctx context.Context) error {
	return cl.ErrNotBuilt
}
