//go:build gpu

package load

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 220
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#include <CL/cl.h>
#include <stdlib.h>

static const char* clburn_load_error_string(cl_int status) {
	switch (status) {
	case CL_SUCCESS: return "CL_SUCCESS";
	case CL_DEVICE_NOT_FOUND: return "CL_DEVICE_NOT_FOUND";
	case CL_DEVICE_NOT_AVAILABLE: return "CL_DEVICE_NOT_AVAILABLE";
	case CL_COMPILER_NOT_AVAILABLE: return "CL_COMPILER_NOT_AVAILABLE";
	case CL_MEM_OBJECT_ALLOCATION_FAILURE: return "CL_MEM_OBJECT_ALLOCATION_FAILURE";
	case CL_OUT_OF_RESOURCES: return "CL_OUT_OF_RESOURCES";
	case CL_OUT_OF_HOST_MEMORY: return "CL_OUT_OF_HOST_MEMORY";
	case CL_BUILD_PROGRAM_FAILURE: return "CL_BUILD_PROGRAM_FAILURE";
	case CL_INVALID_VALUE: return "CL_INVALID_VALUE";
	case CL_INVALID_DEVICE: return "CL_INVALID_DEVICE";
	case CL_INVALID_CONTEXT: return "CL_INVALID_CONTEXT";
	case CL_INVALID_QUEUE_PROPERTIES: return "CL_INVALID_QUEUE_PROPERTIES";
	case CL_INVALID_COMMAND_QUEUE: return "CL_INVALID_COMMAND_QUEUE";
	case CL_INVALID_MEM_OBJECT: return "CL_INVALID_MEM_OBJECT";
	case CL_INVALID_BUILD_OPTIONS: return "CL_INVALID_BUILD_OPTIONS";
	case CL_INVALID_PROGRAM: return "CL_INVALID_PROGRAM";
	case CL_INVALID_PROGRAM_EXECUTABLE: return "CL_INVALID_PROGRAM_EXECUTABLE";
	case CL_INVALID_KERNEL_NAME: return "CL_INVALID_KERNEL_NAME";
	case CL_INVALID_KERNEL: return "CL_INVALID_KERNEL";
	case CL_INVALID_ARG_INDEX: return "CL_INVALID_ARG_INDEX";
	case CL_INVALID_ARG_VALUE: return "CL_INVALID_ARG_VALUE";
	case CL_INVALID_ARG_SIZE: return "CL_INVALID_ARG_SIZE";
	case CL_INVALID_KERNEL_ARGS: return "CL_INVALID_KERNEL_ARGS";
	case CL_INVALID_WORK_DIMENSION: return "CL_INVALID_WORK_DIMENSION";
	case CL_INVALID_WORK_GROUP_SIZE: return "CL_INVALID_WORK_GROUP_SIZE";
	case CL_INVALID_GLOBAL_OFFSET: return "CL_INVALID_GLOBAL_OFFSET";
	default: return "CL_UNKNOWN_ERROR";
	}
}

// Prefer the OpenCL 2.0 creation path, fall back to the deprecated 1.2 entry
// point on drivers that reject it.
static cl_command_queue clburn_create_queue(cl_context ctx, cl_device_id device, cl_int *status) {
	const cl_queue_properties props[] = {0};
	cl_command_queue queue = clCreateCommandQueueWithProperties(ctx, device, props, status);
	if (*status == CL_SUCCESS) {
		return queue;
	}
	return clCreateCommandQueue(ctx, device, 0, status);
}
*/
import "C"

import (
	"context"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/cwbudde/clburn/internal/cl"
	"github.com/cwbudde/clburn/internal/metrics"
)

// Worker owns one device's OpenCL object lifecycle and runs the continuous
// dispatch loop. Every handle it creates is exclusively its own; nothing is
// shared with sibling workers.
type Worker struct {
	index    int
	target   cl.Target
	elements int
	rounds   int

	device  C.cl_device_id
	context C.cl_context
	queue   C.cl_command_queue
	program C.cl_program
	kernel  C.cl_kernel
	buffer  C.cl_mem

	cleanup teardown
}

// NewWorker binds a worker to one (platform, device) target. index is the
// device's enumeration-order position, used only for logging.
func NewWorker(target cl.Target, index, elements, rounds int) *Worker {
	return &Worker{
		index:    index,
		target:   target,
		elements: elements,
		rounds:   rounds,
	}
}

// Run sets up the device and dispatches the kernel until an error occurs or
// ctx is cancelled. Setup and runtime failures are logged here and returned;
// they never affect sibling workers.
func (w *Worker) Run(ctx context.Context) error {
	name := w.target.Device.Name
	slog.Info("Starting load worker", "device", w.index, "name", name)

	defer func() {
		w.cleanup.run()
		slog.Info("Released device resources", "device", w.index, "name", name)
	}()

	if err := w.setup(); err != nil {
		slog.Error("Device setup failed", "device", w.index, "name", name, "error", err)
		return err
	}

	slog.Info("Entering dispatch loop", "device", w.index, "name", name)

	global := C.size_t(w.elements)
	for {
		// One dispatch over the full buffer, one logical work item per
		// element. The local group size is left to the scheduler.
		status := C.clEnqueueNDRangeKernel(w.queue, w.kernel, 1, nil, &global, nil, 0, nil, nil)
		if status != C.CL_SUCCESS {
			err := clError("clEnqueueNDRangeKernel", status)
			slog.Error("Dispatch failed", "device", w.index, "name", name, "error", err)
			return err
		}

		// Block until the dispatch completes before enqueueing the next one.
		// Dispatches are never pipelined.
		if status := C.clFinish(w.queue); status != C.CL_SUCCESS {
			err := clError("clFinish", status)
			slog.Error("Queue synchronization failed", "device", w.index, "name", name, "error", err)
			return err
		}

		metrics.DispatchesTotal.WithLabelValues(name).Inc()

		select {
		case <-ctx.Done():
			slog.Info("Exiting dispatch loop", "device", w.index, "name", name)
			return nil
		default:
		}
	}
}

func (w *Worker) setup() error {
	var status C.cl_int

	w.device = C.cl_device_id(unsafe.Pointer(w.target.Device.Handle))

	props := [3]C.cl_context_properties{
		C.CL_CONTEXT_PLATFORM,
		C.cl_context_properties(uintptr(unsafe.Pointer(w.target.Platform))),
		0,
	}
	w.context = C.clCreateContext(&props[0], 1, &w.device, nil, nil, &status)
	if status != C.CL_SUCCESS {
		return clError("clCreateContext", status)
	}
	w.cleanup.add(func() { C.clReleaseContext(w.context) })

	w.queue = C.clburn_create_queue(w.context, w.device, &status)
	if status != C.CL_SUCCESS {
		return clError("clCreateCommandQueue", status)
	}
	w.cleanup.add(func() { C.clReleaseCommandQueue(w.queue) })

	source := C.CString(kernelSource)
	defer C.free(unsafe.Pointer(source))
	w.program = C.clCreateProgramWithSource(w.context, 1, &source, nil, &status)
	if status != C.CL_SUCCESS {
		return clError("clCreateProgramWithSource", status)
	}
	w.cleanup.add(func() { C.clReleaseProgram(w.program) })

	options := C.CString("-cl-std=CL1.2")
	defer C.free(unsafe.Pointer(options))
	if status := C.clBuildProgram(w.program, 1, &w.device, options, nil, nil); status != C.CL_SUCCESS {
		w.dumpBuildLog()
		return clError("clBuildProgram", status)
	}

	entry := C.CString(kernelName)
	defer C.free(unsafe.Pointer(entry))
	w.kernel = C.clCreateKernel(w.program, entry, &status)
	if status != C.CL_SUCCESS {
		return clError("clCreateKernel", status)
	}
	w.cleanup.add(func() { C.clReleaseKernel(w.kernel) })

	host := hostData(w.elements)
	byteSize := C.size_t(w.elements) * C.size_t(unsafe.Sizeof(float32(0)))
	w.buffer = C.clCreateBuffer(w.context, C.CL_MEM_READ_WRITE|C.CL_MEM_COPY_HOST_PTR, byteSize, unsafe.Pointer(&host[0]), &status)
	if status != C.CL_SUCCESS {
		return clError("clCreateBuffer", status)
	}
	w.cleanup.add(func() { C.clReleaseMemObject(w.buffer) })

	if status := C.clSetKernelArg(w.kernel, 0, C.size_t(unsafe.Sizeof(w.buffer)), unsafe.Pointer(&w.buffer)); status != C.CL_SUCCESS {
		return clError("clSetKernelArg(data)", status)
	}

	count := C.cl_int(w.elements)
	if status := C.clSetKernelArg(w.kernel, 1, C.size_t(unsafe.Sizeof(count)), unsafe.Pointer(&count)); status != C.CL_SUCCESS {
		return clError("clSetKernelArg(count)", status)
	}

	rounds := C.cl_int(w.rounds)
	if status := C.clSetKernelArg(w.kernel, 2, C.size_t(unsafe.Sizeof(rounds)), unsafe.Pointer(&rounds)); status != C.CL_SUCCESS {
		return clError("clSetKernelArg(rounds)", status)
	}

	slog.Info("Kernel compiled",
		"device", w.index,
		"name", w.target.Device.Name,
		"elements", w.elements,
		"rounds", w.rounds,
	)

	return nil
}

func (w *Worker) dumpBuildLog() {
	var logSize C.size_t
	if status := C.clGetProgramBuildInfo(w.program, w.device, C.CL_PROGRAM_BUILD_LOG, 0, nil, &logSize); status != C.CL_SUCCESS {
		slog.Error("Failed to fetch build log size", "device", w.index, "status", int(status))
		return
	}
	if logSize == 0 {
		return
	}

	buf := make([]byte, int(logSize))
	if status := C.clGetProgramBuildInfo(w.program, w.device, C.CL_PROGRAM_BUILD_LOG, logSize, unsafe.Pointer(&buf[0]), nil); status != C.CL_SUCCESS {
		slog.Error("Failed to fetch build log", "device", w.index, "status", int(status))
		return
	}

	slog.Error("Kernel build log", "device", w.index, "name", w.target.Device.Name, "log", string(buf))
}

func clError(prefix string, status C.cl_int) error {
	return fmt.Errorf("%s: %s (%d)", prefix, C.GoString(C.clburn_load_error_string(status)), int(status))
}
