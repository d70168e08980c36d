//go:build !gpu

package cl

// Enumerate returns an error when OpenCL support is not compiled in.
func Enumerate() ([]Platform, error) {
	return nil, ErrNotBuilt
}
