// Package tuner detects system resources and bounds the walker worker count
// and record batch sizes so large scans stay within a small memory budget.
package tuner

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the available (free) RAM in bytes.
	// This may be an estimate based on system heuristics.
	AvailableRAM int64
}

// defaultTotalRAM is the fallback total RAM value when detection fails.
const defaultTotalRAM = 8 * 1024 * 1024 * 1024

// Auto detects resources and calculates a plan. Detection errors fall back
// to the estimates Detect returned.
func Auto(req Requested) Plan {
	resources, _ := Detect()
	if resources.AvailableRAM <= 0 {
		resources.AvailableRAM = defaultTotalRAM / 2
	}
	return Calculate(resources, req)
}
