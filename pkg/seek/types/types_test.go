package types

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"walk", StrategyWalk, false},
		{" Journal ", StrategyJournal, false},
		{"usn", StrategyWalk, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanRequestJSON(t *testing.T) {
	req := ScanRequest{Targets: []string{"/data"}, Strategy: StrategyWalk, Scope: ScopeDirectory}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"targets":["/data"],"strategy":"walk","scope":"dir"}`, string(data))

	var back ScanRequest
	require.NoError(t, json.Unmarshal([]byte(`{"targets":["C:\\"],"strategy":"journal","scope":"drives"}`), &back))
	assert.Equal(t, StrategyJournal, back.Strategy)
	assert.Equal(t, ScopeVolumes, back.Scope)

	assert.Error(t, json.Unmarshal([]byte(`{"strategy":"fuzzy"}`), &back))
	assert.Error(t, json.Unmarshal([]byte(`{"scope":"galaxy"}`), &back))
}

func TestScanRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  ScanRequest
		ok   bool
	}{
		{"volumes", ScanRequest{Targets: []string{"C:\\", "D:\\"}, Strategy: StrategyJournal}, true},
		{"directory", ScanRequest{Targets: []string{"/src"}, Scope: ScopeDirectory}, true},
		{"no targets", ScanRequest{Strategy: StrategyWalk}, false},
		{"two directories", ScanRequest{Targets: []string{"/a", "/b"}, Scope: ScopeDirectory}, false},
		{"journal directory", ScanRequest{Targets: []string{"/a"}, Scope: ScopeDirectory, Strategy: StrategyJournal}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			}
		})
	}
}

func TestSessionState(t *testing.T) {
	assert.False(t, StateIdle.Terminal())
	assert.False(t, StateRunning.Terminal())
	for _, s := range []SessionState{StateCompleted, StateCancelled, StateFailed} {
		assert.True(t, s.Terminal(), s.String())
	}

	data, err := json.Marshal(map[string]SessionState{"s": StateCancelled})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"cancelled"}`, string(data))
}

func TestOutcome(t *testing.T) {
	o := Outcome{Elapsed: 1500 * time.Millisecond}
	assert.InDelta(t, 1.5, o.ElapsedSeconds(), 1e-9)
	assert.False(t, o.Published())
	o.SnapshotPath = "/c/x.db"
	assert.True(t, o.Published())
}

func TestVolumeError(t *testing.T) {
	err := NewVolumeError("D:\\", ErrUnsupportedFilesystem)
	assert.Equal(t, "D:\\: unsupported filesystem", err.Error())
	assert.True(t, errors.Is(err, ErrUnsupportedFilesystem))

	var ve *VolumeError
	require.ErrorAs(t, error(err), &ve)
	assert.Equal(t, "D:\\", ve.Volume)
}

func TestFormatting(t *testing.T) {
	rec := FileRecord{Size: 1536, ModTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	assert.Equal(t, "1.5 KiB", rec.HumanSize())
	assert.Equal(t, "2024-01-02 03:04:05", rec.ModTimeString())
	assert.Equal(t, "1,234,567", FormatCount(1234567))
	assert.Equal(t, "records", ProgressRecords.String())
}
