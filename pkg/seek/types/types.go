// Package types provides the core data types shared by the seek indexer:
// file records, scan requests, progress events and session outcomes, along
// with helpers for formatting sizes and the catalog time formats.
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Catalog time formats.
const (
	// SnapshotTimeFormat is the completion timestamp prefix of a snapshot name.
	SnapshotTimeFormat = "2006-01-02_15-04-05"

	// ModTimeFormat is how modified_time is stored in the files table.
	ModTimeFormat = "2006-01-02 15:04:05"
)

// FileRecord is one row of a catalog. Path is the unique key.
type FileRecord struct {
	// Path is the absolute path to the file.
	Path string `json:"path" yaml:"path"`

	// Filename is the base name searched by keyword queries.
	Filename string `json:"filename" yaml:"filename"`

	// Size is the file size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// ModTime is the last modification time, truncated to the second.
	ModTime time.Time `json:"modified_time" yaml:"modified_time"`
}

// HumanSize returns the file size formatted with IEC units.
func (r *FileRecord) HumanSize() string {
	return FormatSize(r.Size)
}

// ModTimeString returns ModTime in the catalog's stored format.
func (r *FileRecord) ModTimeString() string {
	return r.ModTime.Format(ModTimeFormat)
}

// Strategy selects how a session enumerates files.
type Strategy int

const (
	// StrategyWalk recursively walks directory trees.
	StrategyWalk Strategy = iota
	// StrategyJournal reads the NTFS change journal of each volume.
	StrategyJournal
)

// String returns the lowercase strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyWalk:
		return "walk"
	case StrategyJournal:
		return "journal"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStrategy parses "walk" or "journal".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "walk":
		return StrategyWalk, nil
	case "journal":
		return StrategyJournal, nil
	default:
		return StrategyWalk, fmt.Errorf("unknown strategy %q", s)
	}
}

// Scope says whether a request targets whole volumes or a single directory.
// It decides the scan-type label of the resulting snapshot.
type Scope int

const (
	// ScopeVolumes targets one or more volume roots (label Drive_<letters>).
	ScopeVolumes Scope = iota
	// ScopeDirectory targets exactly one directory (label Dir_<name>).
	ScopeDirectory
)

// String returns "volumes" or "dir".
func (s Scope) String() string {
	if s == ScopeDirectory {
		return "dir"
	}
	return "volumes"
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "dir", "directory":
		*s = ScopeDirectory
	case "volumes", "drives", "":
		*s = ScopeVolumes
	default:
		return fmt.Errorf("unknown scope %q", text)
	}
	return nil
}

// ScanRequest describes one user-triggered indexing run.
// Cancellation is carried by the context passed to the session.
type ScanRequest struct {
	Targets  []string `json:"targets"`
	Strategy Strategy `json:"strategy"`
	Scope    Scope    `json:"scope"`
}

// Validate checks the request shape.
func (r ScanRequest) Validate() error {
	if len(r.Targets) == 0 {
		return fmt.Errorf("%w: no targets", ErrInvalidRequest)
	}
	if r.Scope == ScopeDirectory {
		if len(r.Targets) != 1 {
			return fmt.Errorf("%w: directory scan takes exactly one target", ErrInvalidRequest)
		}
		if r.Strategy != StrategyWalk {
			return fmt.Errorf("%w: directory scan requires the walk strategy", ErrInvalidRequest)
		}
	}
	return nil
}

// ProgressKind classifies a progress event.
type ProgressKind int

const (
	// ProgressStarted is emitted once when the session begins.
	ProgressStarted ProgressKind = iota
	// ProgressTarget is emitted when scanning moves to a new volume or directory.
	ProgressTarget
	// ProgressRecords is emitted every N flushed records.
	ProgressRecords
	// ProgressSkipped is emitted when a volume is skipped with a reason.
	ProgressSkipped
)

// String returns a short name for the kind.
func (k ProgressKind) String() string {
	switch k {
	case ProgressStarted:
		return "started"
	case ProgressTarget:
		return "target"
	case ProgressRecords:
		return "records"
	case ProgressSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ProgressKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Progress reports indexing progress. Records counts only flushed records.
type Progress struct {
	Kind    ProgressKind `json:"kind"`
	Target  string       `json:"target,omitempty"`
	Records int64        `json:"records"`
	Batches int64        `json:"batches"`
	Message string       `json:"message,omitempty"`
}

// SessionState is the state of the indexing session state machine.
type SessionState int

const (
	// StateIdle means no session is running.
	StateIdle SessionState = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the state ends a session.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Outcome is the single terminal result of a session.
type Outcome struct {
	SessionID string       `json:"session_id"`
	State     SessionState `json:"state"`

	// SnapshotPath is empty when no snapshot was published.
	SnapshotPath string        `json:"snapshot_path,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
	Records      int64         `json:"records"`
	Skipped      []VolumeError `json:"skipped,omitempty"`
	Err          error         `json:"-"`
}

// ElapsedSeconds returns the elapsed time in seconds.
func (o Outcome) ElapsedSeconds() float64 {
	return o.Elapsed.Seconds()
}

// Published reports whether the session produced a snapshot.
func (o Outcome) Published() bool {
	return o.SnapshotPath != ""
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}

// FormatCount formats a count with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}
