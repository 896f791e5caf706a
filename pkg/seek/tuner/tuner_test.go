package tuner

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gb = 1024 * 1024 * 1024

func TestDetect(t *testing.T) {
	resources, err := Detect()
	require.NoError(t, err)

	assert.Equal(t, runtime.NumCPU(), resources.CPUCores)
	assert.Greater(t, resources.TotalRAM, int64(0))
	assert.Greater(t, resources.AvailableRAM, int64(0))
	assert.LessOrEqual(t, resources.AvailableRAM, resources.TotalRAM)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		resources SystemResources
		req       Requested
		want      Plan
	}{
		{
			name:      "plenty of memory keeps requested batches",
			resources: SystemResources{CPUCores: 8, AvailableRAM: 8 * gb},
			req:       Requested{WalkBatch: 5000, JournalBatch: 1000},
			want:      Plan{WalkWorkers: 8, WalkBatch: 5000, JournalBatch: 1000},
		},
		{
			name:      "few cores get the minimum worker count",
			resources: SystemResources{CPUCores: 1, AvailableRAM: 8 * gb},
			req:       Requested{WalkBatch: 5000, JournalBatch: 1000},
			want:      Plan{WalkWorkers: 4, WalkBatch: 5000, JournalBatch: 1000},
		},
		{
			name:      "worker override is capped",
			resources: SystemResources{CPUCores: 8, AvailableRAM: 8 * gb},
			req:       Requested{Workers: 500, WalkBatch: 5000, JournalBatch: 1000},
			want:      Plan{WalkWorkers: 64, WalkBatch: 5000, JournalBatch: 1000},
		},
		{
			name: "tight memory lowers batch sizes",
			// 100 MiB * 1% / 512 B = 2048 records
			resources: SystemResources{CPUCores: 2, AvailableRAM: 100 * 1024 * 1024},
			req:       Requested{WalkBatch: 5000, JournalBatch: 1000},
			want:      Plan{WalkWorkers: 4, WalkBatch: 2048, JournalBatch: 1000},
		},
		{
			name:      "no memory still allows the minimum batch",
			resources: SystemResources{CPUCores: 2},
			req:       Requested{WalkBatch: 5000, JournalBatch: 1000},
			want:      Plan{WalkWorkers: 4, WalkBatch: minBatchSize, JournalBatch: minBatchSize},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Calculate(tt.resources, tt.req))
		})
	}
}

func TestAuto(t *testing.T) {
	p := Auto(Requested{WalkBatch: 5000, JournalBatch: 1000})
	assert.GreaterOrEqual(t, p.WalkWorkers, minWorkers)
	assert.Positive(t, p.WalkBatch)
	assert.LessOrEqual(t, p.JournalBatch, 1000)
}
