package cl

import "strings"

// FilterAccelerators selects the GPU-type devices on every platform whose
// vendor string contains vendor, case-insensitively. Platform enumeration
// order is preserved, and within a platform, device enumeration order.
// The substring match is a behavioral contract with whatever vendor strings
// the installed drivers report, so it is deliberately loose.
func FilterAccelerators(platforms []Platform, vendor string) []Target {
	needle := strings.ToLower(vendor)

	var targets []Target
	for _, platform := range platforms {
		if !strings.Contains(strings.ToLower(platform.Vendor), needle) {
			continue
		}
		for _, device := range platform.Devices {
			if device.Type != DeviceTypeGPU {
				continue
			}
			targets = append(targets, Target{
				Platform: platform.Handle,
				Device:   device,
			})
		}
	}

	return targets
}
