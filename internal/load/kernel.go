package load

import "math"

// kernelName is the entry point compiled from kernelSource.
const kernelName = "burn"

// kernelSource is the synthetic workload. Each work item reads one float,
// applies rounds iterations of a trigonometric transform, and writes it back.
// The divide by 1.0001+|val| keeps magnitudes bounded so the buffer never
// drifts toward NaN or infinity no matter how often the kernel reruns. The
// arithmetic per element heavily outweighs the memory traffic, so device time
// is spent in the execution units rather than on bandwidth.
const kernelSource = `
__kernel void burn(__global float *data, const int count, const int rounds) {
    int id = get_global_id(0);
    if (id < count) {
        float val = data[id];
        for (int i = 0; i < rounds; ++i) {
            val = val * sin((float)id * 0.01f + (float)i * 0.001f) + cos((float)id * 0.02f - (float)i * 0.002f);
            val = val / (1.0001f + fabs(val));
        }
        data[id] = val;
    }
}
`

// transform is the host-side mirror of one kernel dispatch for a single
// element. It exists so the boundedness of the workload can be verified
// without a device.
func transform(val float32, id, rounds int) float32 {
	for i := 0; i < rounds; i++ {
		v := float64(val)
		v = v*math.Sin(float64(id)*0.01+float64(i)*0.001) + math.Cos(float64(id)*0.02-float64(i)*0.002)
		v = v / (1.0001 + math.Abs(v))
		val = float32(v)
	}
	return val
}

// hostValue is the deterministic initial value for element i of the
// workload buffer.
func hostValue(i int) float32 {
	return float32(i%100) + 0.1
}

// hostData builds the initial workload buffer contents.
func hostData(elements int) []float32 {
	data := make([]float32, elements)
	for i := range data {
		data[i] = hostValue(i)
	}
	return data
}
