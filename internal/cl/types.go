package cl

import "unsafe"

// PlatformHandle is an opaque reference to an OpenCL platform. It is only
// populated by Enumerate and is nil in tests that fake the platform layer.
type PlatformHandle unsafe.Pointer

// DeviceHandle is an opaque reference to an OpenCL device.
type DeviceHandle unsafe.Pointer

// DeviceType describes the class of an OpenCL device.
type DeviceType string

const (
	DeviceTypeGPU         DeviceType = "GPU"
	DeviceTypeCPU         DeviceType = "CPU"
	DeviceTypeAccelerator DeviceType = "Accelerator"
	DeviceTypeDefault     DeviceType = "Default"
	DeviceTypeUnknown     DeviceType = "Unknown"
)

// Device captures one physical accelerator exposed by a platform.
type Device struct {
	Handle          DeviceHandle
	Name            string
	Vendor          string
	Version         string
	Type            DeviceType
	MaxComputeUnits uint32
}

// Platform captures an OpenCL platform and the devices it exposes.
type Platform struct {
	Handle  PlatformHandle
	Name    string
	Vendor  string
	Version string
	Devices []Device
}

// Target pairs one device with the platform it belongs to. Each load worker
// owns exactly one Target.
type Target struct {
	Platform PlatformHandle
	Device   Device
}
