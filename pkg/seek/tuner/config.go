package tuner

// Worker limits.
const (
	maxWorkers = 64
	minWorkers = 4
)

// Batch sizing.
const (
	// bytesPerRecord estimates memory per pending record: a path, a name
	// and the metadata columns.
	bytesPerRecord = 512

	// batchMemoryFraction is the fraction of available RAM one pending
	// batch may occupy.
	batchMemoryFraction = 0.01

	minBatchSize = 100
)

// Plan is the tuned configuration for one indexing session.
type Plan struct {
	// WalkWorkers is the number of fastwalk workers.
	WalkWorkers int

	// WalkBatch and JournalBatch are the flush thresholds per strategy.
	WalkBatch    int
	JournalBatch int
}

// Requested holds the configured values a Plan is derived from.
// A zero Workers means tune automatically.
type Requested struct {
	Workers      int
	WalkBatch    int
	JournalBatch int
}

// Calculate returns a plan for the detected resources.
//
// Workers default to NumCPU, at least 4 since directory traversal is
// metadata-heavy, and never above 64. Batch sizes are the requested values
// lowered when a batch would not fit in the memory budget.
func Calculate(resources SystemResources, req Requested) Plan {
	workers := req.Workers
	if workers <= 0 {
		workers = max(resources.CPUCores, minWorkers)
	}
	workers = min(workers, maxWorkers)

	limit := batchLimit(resources.AvailableRAM)
	return Plan{
		WalkWorkers:  workers,
		WalkBatch:    clampBatch(req.WalkBatch, limit),
		JournalBatch: clampBatch(req.JournalBatch, limit),
	}
}

func batchLimit(availableRAM int64) int {
	entries := int(float64(availableRAM) * batchMemoryFraction / bytesPerRecord)
	return max(entries, minBatchSize)
}

func clampBatch(requested, limit int) int {
	if requested <= 0 {
		return limit
	}
	return min(requested, limit)
}
